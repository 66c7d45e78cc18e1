package httpapi

import (
	"context"
	"sync"

	"github.com/247pages/Ofplay/internal/dragdrop"
	"github.com/247pages/Ofplay/internal/realtime"
)

// remoteWidget adapts the embedded player on the page to the widget
// contract: commands go out as realtime events, position comes back in
// over the tick endpoint. Command delivery is fire-and-forget; the
// widget's own state-change callbacks confirm the effect.
type remoteWidget struct {
	rt        *realtime.Server
	sessionID string

	mu  sync.Mutex
	cur float64
	dur float64
}

func (w *remoteWidget) send(kind string, payload any) error {
	w.rt.Publish(context.Background(), map[string]any{
		"type":      kind,
		"sessionId": w.sessionID,
		"payload":   payload,
	})
	return nil
}

func (w *remoteWidget) Load(trackID string) error {
	w.mu.Lock()
	w.cur = 0
	w.dur = 0
	w.mu.Unlock()
	return w.send("widget.load", map[string]any{"trackId": trackID})
}

func (w *remoteWidget) Play() error {
	return w.send("widget.play", nil)
}

func (w *remoteWidget) Pause() error {
	return w.send("widget.pause", nil)
}

func (w *remoteWidget) Seek(seconds float64) error {
	// Optimistic: the next tick report overwrites it anyway.
	w.mu.Lock()
	w.cur = seconds
	w.mu.Unlock()
	return w.send("widget.seek", map[string]any{"seconds": seconds})
}

func (w *remoteWidget) CurrentTime() (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cur, nil
}

func (w *remoteWidget) Duration() (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dur, nil
}

// SetVolume tells the page to set the widget volume (0..100).
func (w *remoteWidget) SetVolume(volume int) {
	w.send("widget.volume", map[string]any{"volume": volume})
}

// ReportTick stores the position the page last reported.
func (w *remoteWidget) ReportTick(current, duration float64) {
	w.mu.Lock()
	w.cur = current
	w.dur = duration
	w.mu.Unlock()
}

// remoteView mirrors the rendered queue list: the page reports row
// geometry with each drag event, and visual effects go back out as
// realtime events.
type remoteView struct {
	rt        *realtime.Server
	sessionID string

	mu         sync.Mutex
	items      []dragdrop.Item
	scrollTop  float64
	viewTop    float64
	viewBottom float64
}

func (v *remoteView) send(kind string, payload any) {
	v.rt.Publish(context.Background(), map[string]any{
		"type":      kind,
		"sessionId": v.sessionID,
		"payload":   payload,
	})
}

// SetGeometry replaces the mirrored list geometry.
func (v *remoteView) SetGeometry(items []dragdrop.Item, scrollTop, viewTop, viewBottom float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = append(v.items[:0:0], items...)
	v.scrollTop = scrollTop
	v.viewTop = viewTop
	v.viewBottom = viewBottom
}

func (v *remoteView) Items() []dragdrop.Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]dragdrop.Item(nil), v.items...)
}

func (v *remoteView) ScrollTop() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrollTop
}

func (v *remoteView) Viewport() (float64, float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewTop, v.viewBottom
}

func (v *remoteView) ScrollBy(delta float64) {
	v.mu.Lock()
	v.scrollTop += delta
	v.mu.Unlock()
	v.send("list.scrollBy", map[string]any{"delta": delta})
}

func (v *remoteView) SetDropMarker(index int) {
	v.send("list.dropMarker", map[string]any{"index": index})
}

func (v *remoteView) RemoveDragVisuals() {
	v.send("drag.cleanup", nil)
}
