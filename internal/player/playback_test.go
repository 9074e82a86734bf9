package player

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnipushdigital/smartretail/internal/model"
)

// fakeRenderer records calls and lets the test drive video completion and
// transition completion by hand.
type fakeRenderer struct {
	mu          sync.Mutex
	shown       []RenderItem
	preloaded   []RenderItem
	dones       []func()
	transitions int
	autoFade    bool
	pendingFade func()
}

func (r *fakeRenderer) Show(item RenderItem, done func()) {
	r.mu.Lock()
	r.shown = append(r.shown, item)
	r.dones = append(r.dones, done)
	r.mu.Unlock()
}

func (r *fakeRenderer) Preload(item RenderItem) {
	r.mu.Lock()
	r.preloaded = append(r.preloaded, item)
	r.mu.Unlock()
}

func (r *fakeRenderer) BeginTransition(done func()) {
	r.mu.Lock()
	r.transitions++
	auto := r.autoFade
	if !auto {
		r.pendingFade = done
	}
	r.mu.Unlock()

	if auto {
		done()
	}
}

func (r *fakeRenderer) shownIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.shown))
	for i, item := range r.shown {
		ids[i] = item.PlaylistItemID
	}
	return ids
}

// finishCurrent invokes the most recent Show's done callback, as a video
// renderer would at end of playback.
func (r *fakeRenderer) finishCurrent(t *testing.T) {
	t.Helper()
	r.mu.Lock()
	require.NotEmpty(t, r.dones)
	done := r.dones[len(r.dones)-1]
	r.mu.Unlock()
	require.NotNil(t, done, "current item is not a video")
	done()
}

func videoItem(id string, order int) model.ManifestItem {
	mediaID := "media-" + id
	return model.ManifestItem{
		PlaylistItemID: id,
		MediaID:        &mediaID,
		Type:           model.MediaTypeVideo,
		SortOrder:      order,
	}
}

func videoAssets(items ...model.ManifestItem) []model.ManifestAsset {
	assets := make([]model.ManifestAsset, 0, len(items))
	for _, item := range items {
		assets = append(assets, model.ManifestAsset{
			MediaID: *item.MediaID,
			Type:    model.MediaTypeVideo,
			URL:     "https://cdn.example/" + *item.MediaID,
		})
	}
	return assets
}

func TestPlaybackOrdering(t *testing.T) {
	renderer := &fakeRenderer{autoFade: true}
	p := NewPlayback(renderer)
	defer p.Stop()

	// Array order 2,0,1; playback must follow sort_order 0,1,2.
	items := []model.ManifestItem{
		videoItem("item-2", 2),
		videoItem("item-0", 0),
		videoItem("item-1", 1),
	}
	p.Update(items, videoAssets(items...))

	renderer.finishCurrent(t)
	renderer.finishCurrent(t)
	renderer.finishCurrent(t) // wraps around

	assert.Equal(t, []string{"item-0", "item-1", "item-2", "item-0"}, renderer.shownIDs())
}

func TestPlaybackSingleItemLoops(t *testing.T) {
	renderer := &fakeRenderer{autoFade: true}
	p := NewPlayback(renderer)
	defer p.Stop()

	items := []model.ManifestItem{videoItem("only", 0)}
	p.Update(items, videoAssets(items...))

	renderer.finishCurrent(t)
	renderer.finishCurrent(t)

	// The video restarts directly, with no transition and no blank frame.
	assert.Equal(t, []string{"only", "only", "only"}, renderer.shownIDs())
	assert.Equal(t, 0, renderer.transitions)
}

func TestPlaybackPreloadsNext(t *testing.T) {
	renderer := &fakeRenderer{autoFade: true}
	p := NewPlayback(renderer)
	defer p.Stop()

	items := []model.ManifestItem{
		videoItem("a", 0),
		videoItem("b", 1),
	}
	p.Update(items, videoAssets(items...))

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	require.Len(t, renderer.preloaded, 1)
	assert.Equal(t, "b", renderer.preloaded[0].PlaylistItemID)
	assert.Equal(t, []RenderItem{{PlaylistItemID: "a", Type: model.MediaTypeVideo, URL: "https://cdn.example/media-a"}}, renderer.shown)
}

func TestPlaybackNoAdvanceDuringTransition(t *testing.T) {
	renderer := &fakeRenderer{autoFade: false}
	p := NewPlayback(renderer)
	defer p.Stop()

	items := []model.ManifestItem{
		videoItem("a", 0),
		videoItem("b", 1),
	}
	p.Update(items, videoAssets(items...))

	renderer.finishCurrent(t) // starts a cross-fade, held open by the fake
	renderer.finishCurrent(t) // fires again mid-fade; must be ignored

	renderer.mu.Lock()
	assert.Equal(t, 1, renderer.transitions)
	fade := renderer.pendingFade
	renderer.mu.Unlock()

	fade() // fade completes, now the index may advance

	assert.Equal(t, []string{"a", "b"}, renderer.shownIDs())
}

func TestPlaybackSkipsUnresolvableItem(t *testing.T) {
	renderer := &fakeRenderer{autoFade: true}
	p := NewPlayback(renderer)
	defer p.Stop()

	broken := videoItem("broken", 0)
	good := videoItem("good", 1)
	// Only the good item's asset is present.
	p.Update([]model.ManifestItem{broken, good}, videoAssets(good))

	assert.Equal(t, []string{"good"}, renderer.shownIDs())
}

func TestPlaybackSoleUnresolvableItemGoesIdle(t *testing.T) {
	renderer := &fakeRenderer{autoFade: true}
	p := NewPlayback(renderer)
	defer p.Stop()

	// A video item whose asset is missing from the manifest. With a single
	// item there is nothing to skip to; playback must go idle, not loop.
	p.Update([]model.ManifestItem{videoItem("orphan", 0)}, nil)

	assert.Empty(t, renderer.shownIDs())
	assert.Equal(t, 0, renderer.transitions)
}

func TestPlaybackAllUnresolvableGoesIdle(t *testing.T) {
	renderer := &fakeRenderer{autoFade: true}
	p := NewPlayback(renderer)
	defer p.Stop()

	items := []model.ManifestItem{videoItem("a", 0), videoItem("b", 1)}
	p.Update(items, nil)

	assert.Empty(t, renderer.shownIDs())
	assert.Equal(t, 0, renderer.transitions)
}

func TestPlaybackUpdateInvalidatesOldCallbacks(t *testing.T) {
	renderer := &fakeRenderer{autoFade: true}
	p := NewPlayback(renderer)
	defer p.Stop()

	first := []model.ManifestItem{videoItem("old-a", 0), videoItem("old-b", 1)}
	p.Update(first, videoAssets(first...))

	renderer.mu.Lock()
	staleDone := renderer.dones[0]
	renderer.mu.Unlock()

	second := []model.ManifestItem{videoItem("new-a", 0), videoItem("new-b", 1)}
	p.Update(second, videoAssets(second...))

	staleDone() // a video from the replaced playlist finishing must be a no-op

	assert.Equal(t, []string{"old-a", "new-a"}, renderer.shownIDs())
}

func TestPlaybackDurations(t *testing.T) {
	p := NewPlayback(&fakeRenderer{})

	override := 7
	webURL := "https://example.com"

	tests := []struct {
		name string
		item model.ManifestItem
		want string
	}{
		{"image default", model.ManifestItem{Type: model.MediaTypeImage}, DefaultImageDuration.String()},
		{"web default", model.ManifestItem{Type: model.MediaTypeWeb, WebURL: &webURL}, DefaultWebDuration.String()},
		{"per-item override", model.ManifestItem{Type: model.MediaTypeImage, DurationSeconds: &override}, "7s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.durationLocked(tt.item).String())
		})
	}
}
