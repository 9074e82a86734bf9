package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/omnipushdigital/smartretail/internal/errors"
	"github.com/omnipushdigital/smartretail/internal/model"
	"github.com/omnipushdigital/smartretail/internal/repository"
)

type ManifestService struct {
	resolver    *ResolverService
	contentRepo repository.ContentRepository
	signer      *URLSigner
	pollSeconds int
	standbyPollSeconds int
}

func NewManifestService(
	resolver *ResolverService,
	contentRepo repository.ContentRepository,
	signer *URLSigner,
	pollSeconds, standbyPollSeconds int,
) *ManifestService {
	return &ManifestService{
		resolver:           resolver,
		contentRepo:        contentRepo,
		signer:             signer,
		pollSeconds:        pollSeconds,
		standbyPollSeconds: standbyPollSeconds,
	}
}

// Build resolves the device's publication and expands it into a
// self-contained manifest. On ErrNoActivePublication the returned AppError
// carries a structured standby body so the player can render an idle screen
// instead of treating absence of content as a fault.
func (s *ManifestService) Build(ctx context.Context, device *model.Device) (*model.Manifest, error) {
	pub, diag, err := s.resolver.Resolve(ctx, device)
	if err != nil {
		if errors.Is(err, ErrNoActivePublication) {
			return nil, apperrors.NoActivePublication(s.standbyInfo(device, diag))
		}
		return nil, err
	}

	layout, err := s.contentRepo.GetLayout(ctx, pub.LayoutID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if layout == nil {
		return nil, apperrors.Internal("publication references missing layout")
	}

	regions, err := s.contentRepo.GetLayoutRegions(ctx, layout.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	bundle, err := s.contentRepo.GetBundle(ctx, pub.BundleID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	version := ""
	if bundle != nil {
		version = bundle.Version
	}

	manifest := &model.Manifest{
		Device: model.ManifestDevice{
			DeviceCode:  device.DeviceCode,
			Orientation: device.Orientation,
			Resolution:  device.Resolution,
		},
		Resolved: model.ResolvedInfo{
			Scope:         pub.Scope,
			RoleID:        pub.RoleID,
			PublicationID: pub.ID,
			BundleID:      pub.BundleID,
			Version:       version,
		},
		Layout: model.ManifestLayout{
			LayoutID:   layout.ID,
			TemplateID: layout.TemplateID,
			Regions:    make([]model.ManifestRegion, 0, len(regions)),
		},
		RegionPlaylists: make(map[string][]model.ManifestItem),
		PollSeconds:     s.pollSeconds,
		GeneratedAt:     time.Now(),
	}

	// Collect items per region; a region without a playlist yields no
	// entries. Media ids are deduplicated across regions.
	mediaIDs := make([]string, 0)
	seenMedia := make(map[string]bool)

	for _, region := range regions {
		manifest.Layout.Regions = append(manifest.Layout.Regions, model.ManifestRegion{
			RegionID:   region.ID,
			RegionKey:  region.RegionKey,
			PlaylistID: region.PlaylistID,
		})

		if region.PlaylistID == nil {
			continue
		}

		items, err := s.contentRepo.GetPlaylistItems(ctx, *region.PlaylistID)
		if err != nil {
			return nil, apperrors.Database(err)
		}

		manifestItems := make([]model.ManifestItem, 0, len(items))
		for _, item := range items {
			manifestItems = append(manifestItems, model.ManifestItem{
				PlaylistItemID:  item.ID,
				MediaID:         item.MediaID,
				Type:            item.Type,
				WebURL:          item.WebURL,
				DurationSeconds: item.DurationSeconds,
				SortOrder:       item.SortOrder,
			})
			if item.MediaID != nil && !seenMedia[*item.MediaID] {
				seenMedia[*item.MediaID] = true
				mediaIDs = append(mediaIDs, *item.MediaID)
			}
		}
		manifest.RegionPlaylists[region.ID] = manifestItems
	}

	assets, err := s.resolveAssets(ctx, mediaIDs)
	if err != nil {
		return nil, err
	}
	manifest.Assets = assets

	log.Debug().
		Str("deviceCode", device.DeviceCode).
		Str("scope", string(pub.Scope)).
		Int("regions", len(regions)).
		Int("assets", len(assets)).
		Msg("manifest assembled")

	return manifest, nil
}

// resolveAssets loads the deduplicated media and attaches playable URLs:
// signed, expiring URLs for storage-backed assets (signed as one batch) and
// pass-through URLs for external web content.
func (s *ManifestService) resolveAssets(ctx context.Context, mediaIDs []string) ([]model.ManifestAsset, error) {
	media, err := s.contentRepo.GetMediaByIDs(ctx, mediaIDs)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	storageBacked := make([]string, 0, len(media))
	for _, m := range media {
		if m.StorageKey != nil {
			storageBacked = append(storageBacked, m.ID)
		}
	}
	signedURLs := s.signer.SignAll(storageBacked)

	assets := make([]model.ManifestAsset, 0, len(media))
	for _, m := range media {
		asset := model.ManifestAsset{
			MediaID:        m.ID,
			Type:           m.Type,
			ChecksumSHA256: m.ChecksumSHA256,
			Bytes:          m.Bytes,
		}
		switch {
		case m.StorageKey != nil:
			asset.URL = signedURLs[m.ID]
		case m.ExternalURL != nil:
			asset.URL = *m.ExternalURL
		default:
			log.Warn().Str("mediaId", m.ID).Msg("media asset has neither storage key nor external url")
			continue
		}
		assets = append(assets, asset)
	}

	return assets, nil
}

func (s *ManifestService) standbyInfo(device *model.Device, diag *ResolveDiagnostics) model.StandbyInfo {
	return model.StandbyInfo{
		Standby:       true,
		DeviceCode:    device.DeviceCode,
		TenantID:      diag.TenantID,
		RoleID:        diag.RoleID,
		ActiveForRole: diag.ActiveForRole,
		PollSeconds:   s.standbyPollSeconds,
		Reason:        "no active publication for this device's role and scope",
	}
}
