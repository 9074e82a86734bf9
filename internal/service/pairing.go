package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/omnipushdigital/smartretail/internal/audit"
	apperrors "github.com/omnipushdigital/smartretail/internal/errors"
	"github.com/omnipushdigital/smartretail/internal/model"
	"github.com/omnipushdigital/smartretail/internal/repository"
	"github.com/omnipushdigital/smartretail/internal/util"
)

// ClaimPollStatus is the unpaired device's view of its own pairing.
type ClaimPollStatus string

const (
	ClaimPollPending ClaimPollStatus = "PENDING"
	ClaimPollPaired  ClaimPollStatus = "PAIRED"
)

type ClaimPollResult struct {
	Status       ClaimPollStatus
	DeviceSecret string
}

type PairingService struct {
	deviceRepo repository.DeviceRepository
	roleRepo   repository.RoleRepository
	tenantID   string
	pinTTL     time.Duration
}

func NewPairingService(
	deviceRepo repository.DeviceRepository,
	roleRepo repository.RoleRepository,
	tenantID string,
	pinTTL time.Duration,
) *PairingService {
	return &PairingService{
		deviceRepo: deviceRepo,
		roleRepo:   roleRepo,
		tenantID:   tenantID,
		pinTTL:     pinTTL,
	}
}

// Init issues a fresh pairing pin for a device, creating the device row if it
// does not exist yet. Re-issuing invalidates any prior unclaimed pin. An
// existing secret stays on the row but ClaimPoll will report PENDING until
// the new pin has been claimed.
func (s *PairingService) Init(ctx context.Context, deviceCode string) (*model.Device, error) {
	deviceCode = strings.ToUpper(strings.TrimSpace(deviceCode))
	if !util.IsValidDeviceCode(deviceCode) {
		return nil, apperrors.InvalidInput("device_code", "expected uppercase alphanumerics and dashes")
	}

	pin, err := util.GeneratePin()
	if err != nil {
		return nil, fmt.Errorf("generate pin: %w", err)
	}
	expiresAt := time.Now().Add(s.pinTTL)

	device, err := s.deviceRepo.FindByCode(ctx, deviceCode)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	if device == nil {
		device, err = s.deviceRepo.Create(ctx, model.CreateDeviceParams{
			TenantID:         s.tenantID,
			DeviceCode:       deviceCode,
			PairingPin:       pin,
			PairingExpiresAt: expiresAt,
		})
		if err != nil {
			return nil, apperrors.Database(err)
		}
		audit.Log(ctx, audit.Event{
			Type:       audit.EventPairingInit,
			DeviceCode: deviceCode,
			TenantID:   s.tenantID,
		})
		log.Info().
			Str("deviceCode", deviceCode).
			Time("pinExpiresAt", expiresAt).
			Msg("pairing initialized for new device")
		return device, nil
	}

	device, err = s.deviceRepo.IssuePin(ctx, device.ID, pin, expiresAt)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("deviceCode", deviceCode).
		Time("pinExpiresAt", expiresAt).
		Msg("pairing pin re-issued")
	return device, nil
}

// Claim redeems a pin on behalf of an administrator. This is the only path
// that mints a usable device secret. The claim is atomic per pin: the repo
// combines the expiry check with the pin-clearing update in one statement.
func (s *PairingService) Claim(ctx context.Context, pin string) (*model.Device, error) {
	pin = strings.TrimSpace(pin)
	if !util.IsValidPin(pin) {
		return nil, apperrors.InvalidOrExpiredPin()
	}

	secret, err := util.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	defaultRole, err := s.roleRepo.FindDefault(ctx, s.tenantID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	defaultRoleID := ""
	if defaultRole != nil {
		defaultRoleID = defaultRole.ID
	}

	device, err := s.deviceRepo.ClaimPin(ctx, pin, secret, defaultRoleID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if device == nil {
		audit.Log(ctx, audit.Event{
			Type:    audit.EventPairingClaimFailed,
			Details: map[string]interface{}{"pin": util.MaskSecret(pin)},
		})
		return nil, apperrors.InvalidOrExpiredPin()
	}

	audit.Log(ctx, audit.Event{
		Type:       audit.EventPairingClaimed,
		DeviceCode: device.DeviceCode,
		TenantID:   device.TenantID,
	})
	log.Info().
		Str("deviceCode", device.DeviceCode).
		Msg("pairing pin claimed, secret issued")

	return device, nil
}

// ClaimPoll returns PENDING while a pin is outstanding or the device has
// never been paired, and the secret only once Claim has cleared the pin. The
// pin-present gate keeps a poll from racing ahead of an administrator's
// claim during re-pairing.
func (s *PairingService) ClaimPoll(ctx context.Context, deviceCode string) (*ClaimPollResult, error) {
	deviceCode = strings.ToUpper(strings.TrimSpace(deviceCode))

	device, err := s.deviceRepo.FindByCode(ctx, deviceCode)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if device == nil {
		return nil, apperrors.NotFound("Device")
	}

	if device.PairingState != model.PairingStatePaired || device.DeviceSecret == nil {
		return &ClaimPollResult{Status: ClaimPollPending}, nil
	}

	return &ClaimPollResult{
		Status:       ClaimPollPaired,
		DeviceSecret: *device.DeviceSecret,
	}, nil
}
