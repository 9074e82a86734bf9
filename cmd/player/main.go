package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omnipushdigital/smartretail/internal/model"
	"github.com/omnipushdigital/smartretail/internal/player"
)

type playerConfig struct {
	ServerURL  string `env:"SERVER_URL,required"`
	DeviceCode string `env:"DEVICE_CODE,required"`
	StateDir   string `env:"STATE_DIR" envDefault:"./state"`

	DefaultPollSeconds int `env:"DEFAULT_POLL_SECONDS" envDefault:"60"`
	StandbyPollSeconds int `env:"STANDBY_POLL_SECONDS" envDefault:"120"`
	HeartbeatSeconds   int `env:"HEARTBEAT_SECONDS" envDefault:"60"`
	ClaimPollSeconds   int `env:"CLAIM_POLL_SECONDS" envDefault:"3"`
	RetrySeconds       int `env:"RETRY_SECONDS" envDefault:"30"`
}

// consoleRenderer is a headless Renderer for running a player off a terminal
// or under systemd without a display stack. Real deployments swap in a
// renderer backed by the display process.
type consoleRenderer struct{}

func (consoleRenderer) Show(item player.RenderItem, done func()) {
	log.Info().
		Str("item", item.PlaylistItemID).
		Str("type", string(item.Type)).
		Str("url", item.URL).
		Msg("showing")

	// Without a real video pipeline, approximate playback length.
	if item.Type == model.MediaTypeVideo && done != nil {
		time.AfterFunc(10*time.Second, done)
	}
}

func (consoleRenderer) Preload(item player.RenderItem) {
	log.Debug().Str("item", item.PlaylistItemID).Msg("preloading")
}

func (consoleRenderer) BeginTransition(done func()) {
	time.AfterFunc(player.TransitionDuration, done)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var cfg playerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse config")
	}

	store, err := player.NewStore(cfg.StateDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open state dir")
	}

	client := player.NewClient(cfg.ServerURL)
	engine := player.NewEngine(player.EngineConfig{
		DeviceCode:          cfg.DeviceCode,
		DefaultPollInterval: time.Duration(cfg.DefaultPollSeconds) * time.Second,
		StandbyPollInterval: time.Duration(cfg.StandbyPollSeconds) * time.Second,
		HeartbeatInterval:   time.Duration(cfg.HeartbeatSeconds) * time.Second,
		ClaimPollInterval:   time.Duration(cfg.ClaimPollSeconds) * time.Second,
		RetryInterval:       time.Duration(cfg.RetrySeconds) * time.Second,
	}, client, store)

	playback := player.NewPlayback(consoleRenderer{})
	defer playback.Stop()

	engine.OnPairing = func(init player.PairingInitResult) {
		log.Info().
			Str("pin", init.Pin).
			Str("expiresAt", init.ExpiresAt).
			Msg("enter this pin in the back office to pair this screen")
	}

	var lastVersion string
	engine.OnState = func(snap player.Snapshot) {
		switch snap.State {
		case player.StatePlaying:
			if snap.Offline {
				log.Warn().Msg("offline, playing cached content")
			}
			if snap.Manifest == nil || snap.Manifest.Resolved.Version == lastVersion {
				return
			}
			lastVersion = snap.Manifest.Resolved.Version

			// Drive playback from the first region that has content.
			for _, region := range snap.Manifest.Layout.Regions {
				items := snap.Manifest.RegionPlaylists[region.RegionID]
				if len(items) > 0 {
					log.Info().
						Str("version", lastVersion).
						Str("region", region.RegionKey).
						Int("items", len(items)).
						Msg("applying manifest")
					playback.Update(items, snap.Manifest.Assets)
					return
				}
			}
			log.Warn().Str("version", lastVersion).Msg("manifest has no playable region")

		case player.StateStandby:
			lastVersion = ""
			playback.Stop()
			log.Info().Msg("standby: nothing published for this screen yet")

		case player.StateSecretRequired:
			lastVersion = ""
			playback.Stop()

		case player.StateError:
			log.Error().Msg("no content and no cache, retrying")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("deviceCode", cfg.DeviceCode).Str("server", cfg.ServerURL).Msg("player starting")
	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("player stopped")
	}
	log.Info().Msg("player stopped")
}
