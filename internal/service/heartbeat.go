package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/omnipushdigital/smartretail/internal/errors"
	"github.com/omnipushdigital/smartretail/internal/events"
	"github.com/omnipushdigital/smartretail/internal/model"
	redisclient "github.com/omnipushdigital/smartretail/internal/redis"
	"github.com/omnipushdigital/smartretail/internal/repository"
)

type DeviceStatus struct {
	DeviceCode string     `json:"device_code"`
	Online     bool       `json:"online"`
	Version    *string    `json:"version,omitempty"`
	Status     *string    `json:"status,omitempty"`
	ReportedAt *time.Time `json:"reported_at,omitempty"`
}

type HeartbeatService struct {
	heartbeatRepo repository.HeartbeatRepository
	deviceRepo    repository.DeviceRepository
	redis         *redisclient.Client
	broker        *events.Broker
	onlineWindow  time.Duration
}

func NewHeartbeatService(
	heartbeatRepo repository.HeartbeatRepository,
	deviceRepo repository.DeviceRepository,
	redis *redisclient.Client,
	broker *events.Broker,
	onlineWindow time.Duration,
) *HeartbeatService {
	return &HeartbeatService{
		heartbeatRepo: heartbeatRepo,
		deviceRepo:    deviceRepo,
		redis:         redis,
		broker:        broker,
		onlineWindow:  onlineWindow,
	}
}

// Record appends a heartbeat row and mirrors it into redis under a key whose
// TTL is the online window, so "is this device online" is a key-presence
// check. The redis write is best-effort; the append-only row is the record.
func (s *HeartbeatService) Record(ctx context.Context, params model.InsertHeartbeatParams) error {
	hb, err := s.heartbeatRepo.Insert(ctx, params)
	if err != nil {
		return apperrors.Database(err)
	}

	if err := s.deviceRepo.UpdateLastSeen(ctx, params.DeviceCode); err != nil {
		log.Warn().Err(err).Str("deviceCode", params.DeviceCode).Msg("failed to update last seen")
	}

	if s.redis != nil {
		key := redisclient.DeviceStatusKey(params.DeviceCode)
		wasOnline, err := s.redis.Exists(ctx, key).Result()
		if err != nil {
			log.Warn().Err(err).Str("deviceCode", params.DeviceCode).Msg("failed to check device status key")
		}

		payload, _ := json.Marshal(hb)
		if err := s.redis.Set(ctx, key, payload, s.onlineWindow).Err(); err != nil {
			log.Warn().Err(err).Str("deviceCode", params.DeviceCode).Msg("failed to cache heartbeat")
		}

		// First heartbeat inside the online window means the device just came
		// (back) online.
		if wasOnline == 0 && s.broker != nil && params.TenantID != "" {
			data, _ := json.Marshal(map[string]string{"device_code": params.DeviceCode})
			if err := s.broker.Publish(ctx, params.TenantID, events.Event{
				Type: events.TypeDeviceOnline,
				Data: data,
			}); err != nil {
				log.Warn().Err(err).Str("deviceCode", params.DeviceCode).Msg("failed to publish online event")
			}
		}
	}

	return nil
}

// Status reports a device's liveness, preferring the redis mirror and
// falling back to the latest heartbeat row.
func (s *HeartbeatService) Status(ctx context.Context, deviceCode string) (*DeviceStatus, error) {
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, redisclient.DeviceStatusKey(deviceCode)).Result()
		if err == nil {
			var hb model.Heartbeat
			if err := json.Unmarshal([]byte(raw), &hb); err == nil {
				return &DeviceStatus{
					DeviceCode: deviceCode,
					Online:     true,
					Version:    hb.Version,
					Status:     hb.Status,
					ReportedAt: &hb.ReportedAt,
				}, nil
			}
		}
	}

	hb, err := s.heartbeatRepo.LatestByDevice(ctx, deviceCode)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if hb == nil {
		return &DeviceStatus{DeviceCode: deviceCode, Online: false}, nil
	}

	return &DeviceStatus{
		DeviceCode: deviceCode,
		Online:     time.Since(hb.ReportedAt) < s.onlineWindow,
		Version:    hb.Version,
		Status:     hb.Status,
		ReportedAt: &hb.ReportedAt,
	}, nil
}
