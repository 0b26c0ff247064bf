// Package notify tells live-reload listeners that a batch finished.
package notify

import (
	"context"
	"time"

	"github.com/specialistvlad/bundlegrid/internal/executor"
)

// EventBundlesBuilt is emitted after every batch.
const EventBundlesBuilt = "bundles_built"

// Notifier publishes batch outcomes.
type Notifier interface {
	Notify(ctx context.Context, b *executor.Batch) error
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, *executor.Batch) error { return nil }

// Payload is the event body sent to listeners.
type Payload struct {
	Batch      string   `json:"batch"`
	Artifacts  []string `json:"artifacts"`
	Failed     []string `json:"failed"`
	DurationMS int64    `json:"duration_ms"`
}

// NewPayload summarizes b.
func NewPayload(b *executor.Batch) Payload {
	p := Payload{
		Batch:      b.ID,
		Artifacts:  []string{},
		Failed:     []string{},
		DurationMS: b.Duration.Milliseconds(),
	}
	for _, out := range b.Outputs() {
		p.Artifacts = append(p.Artifacts, out.ArtifactName)
	}
	p.Failed = append(p.Failed, b.Failed()...)
	return p
}

// AsMap converts the payload to the generic form socket.io serializes.
func (p Payload) AsMap() map[string]any {
	return map[string]any{
		"batch":       p.Batch,
		"artifacts":   p.Artifacts,
		"failed":      p.Failed,
		"duration_ms": p.DurationMS,
	}
}

// DefaultTimeout bounds one notification round trip.
const DefaultTimeout = 5 * time.Second
