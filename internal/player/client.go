package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/omnipushdigital/smartretail/internal/model"
)

const requestTimeout = 15 * time.Second

// FailureKind classifies a failed API call. The sync engine reacts
// differently to each: credentials are dropped, standby is not a fault,
// network failures fall back to cache.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureCredential
	FailureNoContent
	FailureNetwork
	FailureServer
)

// APIError carries the classification alongside the underlying cause.
type APIError struct {
	Kind    FailureKind
	Status  int
	Standby *model.StandbyInfo
	cause   error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case FailureCredential:
		return fmt.Sprintf("credential rejected (status %d)", e.Status)
	case FailureNoContent:
		return "no active publication"
	case FailureNetwork:
		return fmt.Sprintf("network failure: %v", e.cause)
	default:
		return fmt.Sprintf("server failure (status %d): %v", e.Status, e.cause)
	}
}

func (e *APIError) Unwrap() error { return e.cause }

// ClassifyError extracts the FailureKind from an error returned by Client.
func ClassifyError(err error) FailureKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return FailureServer
}

// Client is the player's view of the backend API.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
	}
}

type manifestRequest struct {
	DeviceCode     string `json:"device_code"`
	DeviceSecret   string `json:"device_secret"`
	CurrentVersion string `json:"current_version,omitempty"`
}

// FetchManifest requests the current manifest. Timeouts and connection
// errors come back as FailureNetwork, a 401 as FailureCredential and a 404
// with a standby body as FailureNoContent.
func (c *Client) FetchManifest(ctx context.Context, deviceCode, secret, currentVersion string) (*model.Manifest, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(manifestRequest{
			DeviceCode:     deviceCode,
			DeviceSecret:   secret,
			CurrentVersion: currentVersion,
		}).
		Post("/api/player/manifest")
	if err != nil {
		return nil, &APIError{Kind: FailureNetwork, cause: err}
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		var manifest model.Manifest
		if err := json.Unmarshal(resp.Body(), &manifest); err != nil {
			return nil, &APIError{Kind: FailureServer, Status: resp.StatusCode(), cause: err}
		}
		return &manifest, nil

	case http.StatusUnauthorized:
		return nil, &APIError{Kind: FailureCredential, Status: resp.StatusCode()}

	case http.StatusNotFound:
		apiErr := &APIError{Kind: FailureNoContent, Status: resp.StatusCode()}
		var body struct {
			Details *model.StandbyInfo `json:"details"`
		}
		if err := json.Unmarshal(resp.Body(), &body); err == nil {
			apiErr.Standby = body.Details
		}
		return nil, apiErr

	default:
		return nil, &APIError{
			Kind:   FailureServer,
			Status: resp.StatusCode(),
			cause:  fmt.Errorf("unexpected status %d", resp.StatusCode()),
		}
	}
}

type heartbeatRequest struct {
	DeviceCode   string  `json:"device_code"`
	DeviceSecret string  `json:"device_secret"`
	Version      *string `json:"version,omitempty"`
	Status       *string `json:"status,omitempty"`
}

// SendHeartbeat reports liveness. Fire-and-forget from the engine's point of
// view; the error is only ever logged.
func (c *Client) SendHeartbeat(ctx context.Context, deviceCode, secret string, version, status *string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(heartbeatRequest{
			DeviceCode:   deviceCode,
			DeviceSecret: secret,
			Version:      version,
			Status:       status,
		}).
		Post("/api/player/heartbeat")
	if err != nil {
		return &APIError{Kind: FailureNetwork, cause: err}
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return &APIError{Kind: FailureCredential, Status: resp.StatusCode()}
	}
	if resp.StatusCode() != http.StatusOK {
		return &APIError{Kind: FailureServer, Status: resp.StatusCode()}
	}
	return nil
}

type pairingRequest struct {
	Action     string `json:"action"`
	DeviceCode string `json:"device_code,omitempty"`
	Pin        string `json:"pin,omitempty"`
}

// PairingInitResult is the device-side view of a freshly issued pin.
type PairingInitResult struct {
	Pin       string `json:"pin"`
	ExpiresAt string `json:"expires_at"`
	PinQRPNG  string `json:"pin_qr_png"`
}

func (c *Client) PairingInit(ctx context.Context, deviceCode string) (*PairingInitResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(pairingRequest{Action: "INIT", DeviceCode: deviceCode}).
		Post("/api/pairing")
	if err != nil {
		return nil, &APIError{Kind: FailureNetwork, cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{Kind: FailureServer, Status: resp.StatusCode()}
	}

	var result PairingInitResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, &APIError{Kind: FailureServer, Status: resp.StatusCode(), cause: err}
	}
	return &result, nil
}

// PairingClaimPoll asks whether an administrator has claimed our pin yet.
// Returns the device secret once paired, or empty string while pending.
func (c *Client) PairingClaimPoll(ctx context.Context, deviceCode string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(pairingRequest{Action: "CLAIM_POLL", DeviceCode: deviceCode}).
		Post("/api/pairing")
	if err != nil {
		return "", &APIError{Kind: FailureNetwork, cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return "", &APIError{Kind: FailureServer, Status: resp.StatusCode()}
	}

	var result struct {
		Status       string `json:"status"`
		DeviceSecret string `json:"device_secret"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", &APIError{Kind: FailureServer, Status: resp.StatusCode(), cause: err}
	}
	if result.Status == "PAIRED" {
		return result.DeviceSecret, nil
	}
	return "", nil
}
