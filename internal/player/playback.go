package player

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/omnipushdigital/smartretail/internal/model"
)

const (
	// Images and web pages advance on distinct default timers; either can be
	// overridden per playlist item.
	DefaultImageDuration = 10 * time.Second
	DefaultWebDuration   = 30 * time.Second
	TransitionDuration   = 500 * time.Millisecond
)

// RenderItem is one playable unit handed to the renderer: the item plus its
// resolved URL.
type RenderItem struct {
	PlaylistItemID string
	Type           model.MediaType
	URL            string
}

// Renderer is the display surface. Show makes an item visible; for videos the
// renderer must invoke done on natural end of playback or on a playback error
// (an error is an implicit skip). Preload fetches and decodes without
// changing what is visible. BeginTransition runs the cross-fade and invokes
// done when the fade completes.
type Renderer interface {
	Show(item RenderItem, done func())
	Preload(item RenderItem)
	BeginTransition(done func())
}

// Playback sequences one region's playlist: items ordered by sort_order,
// type-specific durations, preload of the next item while the current one
// plays, and a cross-fade between items. The index never advances while a
// transition is in flight.
type Playback struct {
	renderer Renderer

	mu            sync.Mutex
	items         []model.ManifestItem
	assets        map[string]model.ManifestAsset
	idx           int
	timer         *time.Timer
	transitioning bool
	generation    int
}

func NewPlayback(renderer Renderer) *Playback {
	return &Playback{renderer: renderer}
}

// Update replaces the playlist, re-sorts it by sort_order and restarts from
// the first item. Called whenever the sync engine applies a new manifest.
func (p *Playback) Update(items []model.ManifestItem, assets []model.ManifestAsset) {
	sorted := make([]model.ManifestItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortOrder < sorted[j].SortOrder
	})

	assetMap := make(map[string]model.ManifestAsset, len(assets))
	for _, a := range assets {
		assetMap[a.MediaID] = a
	}

	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.items = sorted
	p.assets = assetMap
	p.idx = 0
	p.transitioning = false
	p.stopTimerLocked()
	p.mu.Unlock()

	p.show(gen)
}

// Stop halts sequencing. The renderer keeps showing whatever is visible.
func (p *Playback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.stopTimerLocked()
}

func (p *Playback) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// show displays the current item and arms the advance trigger: a timer for
// images and web content, the renderer's completion callback for videos.
func (p *Playback) show(gen int) {
	p.mu.Lock()
	if gen != p.generation || len(p.items) == 0 {
		p.mu.Unlock()
		return
	}

	item := p.items[p.idx]
	render, ok := p.resolveLocked(item)
	if !ok {
		// Unresolvable item; scan forward for one that resolves rather than
		// blank the screen. Resolvability is fixed within a generation, so a
		// playlist with nothing resolvable goes idle instead of spinning on
		// the skip path.
		log.Warn().Str("playlistItemId", item.PlaylistItemID).Msg("skipping unresolvable playlist item")
		for i := 1; i < len(p.items); i++ {
			candidate := (p.idx + i) % len(p.items)
			if r, candidateOK := p.resolveLocked(p.items[candidate]); candidateOK {
				p.idx = candidate
				item = p.items[candidate]
				render = r
				ok = true
				break
			}
		}
		if !ok {
			p.mu.Unlock()
			log.Warn().Msg("no resolvable playlist items, playback idle")
			return
		}
	}

	var next *RenderItem
	if len(p.items) > 1 {
		nextItem := p.items[(p.idx+1)%len(p.items)]
		if r, ok := p.resolveLocked(nextItem); ok {
			next = &r
		}
	}

	isVideo := item.Type == model.MediaTypeVideo
	duration := p.durationLocked(item)
	p.mu.Unlock()

	if isVideo {
		p.renderer.Show(render, func() { p.advance(gen) })
	} else {
		p.renderer.Show(render, nil)
		p.mu.Lock()
		if gen == p.generation {
			p.stopTimerLocked()
			p.timer = time.AfterFunc(duration, func() { p.advance(gen) })
		}
		p.mu.Unlock()
	}

	if next != nil {
		p.renderer.Preload(*next)
	}
}

// advance moves to the next item through a cross-fade. A single-item playlist
// short-circuits: videos restart directly and timed items simply stay up, so
// the loop never shows a visible reset.
func (p *Playback) advance(gen int) {
	p.mu.Lock()
	if gen != p.generation || p.transitioning || len(p.items) == 0 {
		p.mu.Unlock()
		return
	}

	if len(p.items) == 1 {
		isVideo := p.items[0].Type == model.MediaTypeVideo
		p.mu.Unlock()
		if isVideo {
			p.show(gen)
		}
		return
	}

	p.transitioning = true
	p.mu.Unlock()

	p.renderer.BeginTransition(func() {
		p.mu.Lock()
		if gen != p.generation {
			p.mu.Unlock()
			return
		}
		p.transitioning = false
		p.idx = (p.idx + 1) % len(p.items)
		p.mu.Unlock()

		p.show(gen)
	})
}

func (p *Playback) resolveLocked(item model.ManifestItem) (RenderItem, bool) {
	render := RenderItem{
		PlaylistItemID: item.PlaylistItemID,
		Type:           item.Type,
	}

	switch {
	case item.Type == model.MediaTypeWeb && item.WebURL != nil:
		render.URL = *item.WebURL
	case item.MediaID != nil:
		asset, ok := p.assets[*item.MediaID]
		if !ok {
			return render, false
		}
		render.URL = asset.URL
	default:
		return render, false
	}

	return render, true
}

func (p *Playback) durationLocked(item model.ManifestItem) time.Duration {
	if item.DurationSeconds != nil && *item.DurationSeconds > 0 {
		return time.Duration(*item.DurationSeconds) * time.Second
	}
	if item.Type == model.MediaTypeWeb {
		return DefaultWebDuration
	}
	return DefaultImageDuration
}
