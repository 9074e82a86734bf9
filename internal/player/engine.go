package player

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/omnipushdigital/smartretail/internal/model"
)

type State string

const (
	StateLoading        State = "LOADING"
	StateSecretRequired State = "SECRET_REQUIRED"
	StatePlaying        State = "PLAYING"
	StateStandby        State = "STANDBY"
	StateError          State = "ERROR"
)

// Snapshot is the engine's externally visible state at one moment. Offline
// means the screen is rendering a cached manifest because the last fetch
// failed with a network error.
type Snapshot struct {
	State    State
	Offline  bool
	Manifest *model.Manifest
	Standby  *model.StandbyInfo
}

// api is the backend surface the engine depends on.
type api interface {
	FetchManifest(ctx context.Context, deviceCode, secret, currentVersion string) (*model.Manifest, error)
	SendHeartbeat(ctx context.Context, deviceCode, secret string, version, status *string) error
	PairingInit(ctx context.Context, deviceCode string) (*PairingInitResult, error)
	PairingClaimPoll(ctx context.Context, deviceCode string) (string, error)
}

type EngineConfig struct {
	DeviceCode          string
	DefaultPollInterval time.Duration // used until a manifest dictates poll_seconds
	StandbyPollInterval time.Duration
	HeartbeatInterval   time.Duration
	ClaimPollInterval   time.Duration
	RetryInterval       time.Duration // cadence while in ERROR
}

// Engine runs the player's sync state machine: one loop refreshing the
// manifest, one loop emitting heartbeats. The two share nothing but the
// secret, which only changes on re-pairing.
type Engine struct {
	cfg    EngineConfig
	api    api
	store  *Store

	// OnState fires on every transition; the playback layer keys off it.
	// OnPairing surfaces a freshly issued pin for the operator screen.
	OnState   func(Snapshot)
	OnPairing func(PairingInitResult)

	mu          sync.Mutex
	secret      string
	snapshot    Snapshot
	cancelFetch context.CancelFunc

	kick chan struct{}
	wg   sync.WaitGroup
}

func NewEngine(cfg EngineConfig, client *Client, store *Store) *Engine {
	return newEngine(cfg, client, store)
}

func newEngine(cfg EngineConfig, apiClient api, store *Store) *Engine {
	return &Engine{
		cfg:      cfg,
		api:      apiClient,
		store:    store,
		snapshot: Snapshot{State: StateLoading},
		kick:     make(chan struct{}, 1),
	}
}

// Run blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	secret, err := e.store.LoadSecret(e.cfg.DeviceCode)
	if err != nil {
		return err
	}

	if secret == "" {
		secret, err = e.pair(ctx)
		if err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.secret = secret
	e.mu.Unlock()

	e.wg.Add(2)
	go e.refreshLoop(ctx)
	go e.heartbeatLoop(ctx)
	e.wg.Wait()
	return ctx.Err()
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// RefreshNow supersedes any in-flight fetch and triggers an immediate one.
func (e *Engine) RefreshNow() {
	e.mu.Lock()
	if e.cancelFetch != nil {
		e.cancelFetch()
	}
	e.mu.Unlock()

	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// pair walks the device through INIT and the ClaimPoll loop until an
// administrator redeems the pin. Blocks until paired or ctx cancelled.
func (e *Engine) pair(ctx context.Context) (string, error) {
	e.setState(func(s *Snapshot) {
		s.State = StateSecretRequired
		s.Offline = false
	})

	for {
		init, err := e.api.PairingInit(ctx, e.cfg.DeviceCode)
		if err != nil {
			log.Warn().Err(err).Msg("pairing init failed, retrying")
			if !sleepCtx(ctx, e.cfg.RetryInterval) {
				return "", ctx.Err()
			}
			continue
		}

		log.Info().Str("deviceCode", e.cfg.DeviceCode).Msg("pairing pin issued")
		if e.OnPairing != nil {
			e.OnPairing(*init)
		}

		// Poll until claimed or the pin expires; on expiry INIT again.
		deadline := time.Now().Add(10 * time.Minute)
		if t, err := time.Parse(time.RFC3339, init.ExpiresAt); err == nil {
			deadline = t
		}

		for time.Now().Before(deadline) {
			if !sleepCtx(ctx, e.cfg.ClaimPollInterval) {
				return "", ctx.Err()
			}

			secret, err := e.api.PairingClaimPoll(ctx, e.cfg.DeviceCode)
			if err != nil {
				log.Warn().Err(err).Msg("claim poll failed")
				continue
			}
			if secret != "" {
				if err := e.store.SaveSecret(e.cfg.DeviceCode, secret); err != nil {
					return "", err
				}
				log.Info().Str("deviceCode", e.cfg.DeviceCode).Msg("device paired")
				return secret, nil
			}
		}

		log.Info().Msg("pairing pin expired before claim, issuing a new one")
	}
}

// refreshLoop drives manifest fetches. The next interval comes from the
// fetched manifest's poll_seconds, or the standby/retry cadence on the other
// outcomes. A tick while a fetch is still in flight cancels that fetch.
func (e *Engine) refreshLoop(ctx context.Context) {
	defer e.wg.Done()

	for {
		interval := e.fetchOnce(ctx)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-e.kick:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (e *Engine) fetchOnce(ctx context.Context) time.Duration {
	e.mu.Lock()
	secret := e.secret
	currentVersion := ""
	if e.snapshot.Manifest != nil {
		currentVersion = e.snapshot.Manifest.Resolved.Version
	}
	fetchCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	e.cancelFetch = cancel
	e.mu.Unlock()
	defer cancel()

	manifest, err := e.api.FetchManifest(fetchCtx, e.cfg.DeviceCode, secret, currentVersion)

	e.mu.Lock()
	e.cancelFetch = nil
	e.mu.Unlock()

	if err == nil {
		if saveErr := e.store.SaveManifest(e.cfg.DeviceCode, manifest); saveErr != nil {
			log.Warn().Err(saveErr).Msg("failed to cache manifest")
		}
		e.setState(func(s *Snapshot) {
			s.State = StatePlaying
			s.Offline = false
			s.Manifest = manifest
			s.Standby = nil
		})
		if manifest.PollSeconds > 0 {
			return time.Duration(manifest.PollSeconds) * time.Second
		}
		return e.cfg.DefaultPollInterval
	}

	switch ClassifyError(err) {
	case FailureNoContent:
		var standby *model.StandbyInfo
		if apiErr, ok := err.(*APIError); ok {
			standby = apiErr.Standby
		}
		e.setState(func(s *Snapshot) {
			s.State = StateStandby
			s.Offline = false
			s.Manifest = nil
			s.Standby = standby
		})
		if standby != nil && standby.PollSeconds > 0 {
			return time.Duration(standby.PollSeconds) * time.Second
		}
		return e.cfg.StandbyPollInterval

	case FailureCredential:
		log.Warn().Msg("credential rejected, dropping secret and re-pairing")
		if dropErr := e.store.DropSecret(e.cfg.DeviceCode); dropErr != nil {
			log.Error().Err(dropErr).Msg("failed to drop secret")
		}

		secret, pairErr := e.pair(ctx)
		if pairErr != nil {
			return e.cfg.RetryInterval
		}
		e.mu.Lock()
		e.secret = secret
		e.mu.Unlock()
		return 0 // fetch immediately with the new secret

	case FailureNetwork:
		cached, loadErr := e.store.LoadManifest(e.cfg.DeviceCode)
		if loadErr != nil {
			log.Warn().Err(loadErr).Msg("failed to load cached manifest")
		}
		if cached != nil {
			// Keep playing from cache; only the offline flag changes.
			log.Warn().Err(err).Msg("manifest fetch failed, playing from cache")
			e.setState(func(s *Snapshot) {
				s.State = StatePlaying
				s.Offline = true
				s.Manifest = cached
				s.Standby = nil
			})
			if cached.PollSeconds > 0 {
				return time.Duration(cached.PollSeconds) * time.Second
			}
			return e.cfg.DefaultPollInterval
		}
		log.Error().Err(err).Msg("manifest fetch failed with no cache")
		e.setState(func(s *Snapshot) {
			s.State = StateError
			s.Offline = true
			s.Manifest = nil
		})
		return e.cfg.RetryInterval

	default:
		log.Error().Err(err).Msg("manifest fetch failed")
		e.mu.Lock()
		hasManifest := e.snapshot.Manifest != nil
		e.mu.Unlock()
		if hasManifest {
			// Keep whatever is rendering; retry on schedule.
			return e.cfg.DefaultPollInterval
		}
		e.setState(func(s *Snapshot) {
			s.State = StateError
			s.Manifest = nil
		})
		return e.cfg.RetryInterval
	}
}

// heartbeatLoop reports liveness on a fixed cadence, independent of manifest
// fetch outcomes. Failures are logged and never retried out of cadence.
func (e *Engine) heartbeatLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sendHeartbeat(ctx)
		}
	}
}

func (e *Engine) sendHeartbeat(ctx context.Context) {
	e.mu.Lock()
	secret := e.secret
	state := string(e.snapshot.State)
	var version *string
	if e.snapshot.Manifest != nil {
		v := e.snapshot.Manifest.Resolved.Version
		version = &v
	}
	e.mu.Unlock()

	if secret == "" {
		return
	}

	hbCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := e.api.SendHeartbeat(hbCtx, e.cfg.DeviceCode, secret, version, &state); err != nil {
		log.Warn().Err(err).Msg("heartbeat failed")
	}
}

func (e *Engine) setState(mutate func(*Snapshot)) {
	e.mu.Lock()
	mutate(&e.snapshot)
	snap := e.snapshot
	e.mu.Unlock()

	log.Debug().
		Str("state", string(snap.State)).
		Bool("offline", snap.Offline).
		Msg("sync state")

	if e.OnState != nil {
		e.OnState(snap)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
