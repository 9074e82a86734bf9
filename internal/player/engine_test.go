package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnipushdigital/smartretail/internal/model"
)

type fakeAPI struct {
	mu sync.Mutex

	manifest    *model.Manifest
	manifestErr error

	claimPollSecret string
	initCalls       int
	claimPollCalls  int
	heartbeats      int
}

func (a *fakeAPI) FetchManifest(ctx context.Context, deviceCode, secret, currentVersion string) (*model.Manifest, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.manifestErr != nil {
		return nil, a.manifestErr
	}
	return a.manifest, nil
}

func (a *fakeAPI) SendHeartbeat(ctx context.Context, deviceCode, secret string, version, status *string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.heartbeats++
	return nil
}

func (a *fakeAPI) PairingInit(ctx context.Context, deviceCode string) (*PairingInitResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initCalls++
	return &PairingInitResult{
		Pin:       "123456",
		ExpiresAt: time.Now().Add(10 * time.Minute).Format(time.RFC3339),
	}, nil
}

func (a *fakeAPI) PairingClaimPoll(ctx context.Context, deviceCode string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.claimPollCalls++
	return a.claimPollSecret, nil
}

func (a *fakeAPI) setManifestErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.manifestErr = err
}

func testManifest(version string) *model.Manifest {
	return &model.Manifest{
		Device:      model.ManifestDevice{DeviceCode: "LOBBY-01"},
		Resolved:    model.ResolvedInfo{Scope: model.ScopeGlobal, Version: version},
		PollSeconds: 60,
		GeneratedAt: time.Now(),
	}
}

func newTestEngine(t *testing.T, api *fakeAPI) (*Engine, *Store) {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	cfg := EngineConfig{
		DeviceCode:          "LOBBY-01",
		DefaultPollInterval: time.Minute,
		StandbyPollInterval: 2 * time.Minute,
		HeartbeatInterval:   time.Minute,
		ClaimPollInterval:   time.Millisecond,
		RetryInterval:       time.Second,
	}
	return newEngine(cfg, api, store), store
}

func TestEngineFetchSuccess(t *testing.T) {
	api := &fakeAPI{manifest: testManifest("v1")}
	e, store := newTestEngine(t, api)
	e.secret = "s3cret"

	interval := e.fetchOnce(context.Background())

	snap := e.Snapshot()
	assert.Equal(t, StatePlaying, snap.State)
	assert.False(t, snap.Offline)
	require.NotNil(t, snap.Manifest)
	assert.Equal(t, "v1", snap.Manifest.Resolved.Version)
	assert.Equal(t, time.Minute, interval, "interval follows the manifest's poll_seconds")

	cached, err := store.LoadManifest("LOBBY-01")
	require.NoError(t, err)
	require.NotNil(t, cached, "successful fetch populates the cache")
	assert.Equal(t, "v1", cached.Resolved.Version)
}

func TestEngineStandby(t *testing.T) {
	api := &fakeAPI{manifestErr: &APIError{
		Kind:   FailureNoContent,
		Status: 404,
		Standby: &model.StandbyInfo{
			Standby:     true,
			DeviceCode:  "LOBBY-01",
			PollSeconds: 120,
		},
	}}
	e, _ := newTestEngine(t, api)
	e.secret = "s3cret"

	interval := e.fetchOnce(context.Background())

	snap := e.Snapshot()
	assert.Equal(t, StateStandby, snap.State, "no content is standby, not an error")
	assert.False(t, snap.Offline)
	require.NotNil(t, snap.Standby)
	assert.Equal(t, 2*time.Minute, interval, "standby polls at the server-dictated cadence")
}

func TestEngineNetworkFailureWithCache(t *testing.T) {
	api := &fakeAPI{manifest: testManifest("v1")}
	e, _ := newTestEngine(t, api)
	e.secret = "s3cret"

	// Prime the cache with a successful fetch, then lose the network.
	e.fetchOnce(context.Background())
	api.setManifestErr(&APIError{Kind: FailureNetwork})

	e.fetchOnce(context.Background())

	snap := e.Snapshot()
	assert.Equal(t, StatePlaying, snap.State, "cached content keeps playing through network loss")
	assert.True(t, snap.Offline, "offline flag surfaces to the UI")
	require.NotNil(t, snap.Manifest)
	assert.Equal(t, "v1", snap.Manifest.Resolved.Version)
}

func TestEngineNetworkFailureWithoutCache(t *testing.T) {
	api := &fakeAPI{manifestErr: &APIError{Kind: FailureNetwork}}
	e, _ := newTestEngine(t, api)
	e.secret = "s3cret"

	interval := e.fetchOnce(context.Background())

	snap := e.Snapshot()
	assert.Equal(t, StateError, snap.State, "no cache means an error screen")
	assert.Equal(t, time.Second, interval, "error state retries on the retry cadence")
}

func TestEngineCredentialFailureRepairs(t *testing.T) {
	api := &fakeAPI{
		manifestErr:     &APIError{Kind: FailureCredential, Status: 401},
		claimPollSecret: "fresh-secret",
	}
	e, store := newTestEngine(t, api)
	e.secret = "stale-secret"
	require.NoError(t, store.SaveSecret("LOBBY-01", "stale-secret"))

	var states []State
	e.OnState = func(s Snapshot) { states = append(states, s.State) }

	interval := e.fetchOnce(context.Background())

	assert.Contains(t, states, StateSecretRequired, "credential rejection re-enters pairing")
	assert.GreaterOrEqual(t, api.initCalls, 1)

	e.mu.Lock()
	secret := e.secret
	e.mu.Unlock()
	assert.Equal(t, "fresh-secret", secret)

	stored, err := store.LoadSecret("LOBBY-01")
	require.NoError(t, err)
	assert.Equal(t, "fresh-secret", stored, "new secret is persisted")
	assert.Equal(t, time.Duration(0), interval, "re-fetch immediately after re-pairing")
}

func TestEngineHeartbeatSkippedWithoutSecret(t *testing.T) {
	api := &fakeAPI{}
	e, _ := newTestEngine(t, api)

	e.sendHeartbeat(context.Background())
	assert.Equal(t, 0, api.heartbeats)

	e.mu.Lock()
	e.secret = "s3cret"
	e.mu.Unlock()

	e.sendHeartbeat(context.Background())
	assert.Equal(t, 1, api.heartbeats)
}
