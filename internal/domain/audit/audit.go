// Package audit defines the write-event side channel. Mutating engine
// operations emit one event per change; observers are best-effort and must
// never affect the primary operation.
package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Action classifies what happened to the record.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event is one structured audit record.
type Event struct {
	Entity   string
	Action   Action
	ActorID  string
	RecordID string
	Before   any
	After    any
	At       time.Time
}

// Observer consumes audit events. Implementations swallow their own errors.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) Observe(context.Context, Event) {}

// LogObserver writes audit events to the context logger.
type LogObserver struct{}

// NewLogObserver creates a LogObserver.
func NewLogObserver() *LogObserver {
	return &LogObserver{}
}

// Observe logs the event with sanitized before/after snapshots.
func (*LogObserver) Observe(ctx context.Context, ev Event) {
	zctx.From(ctx).Info("audit",
		zap.String("entity", ev.Entity),
		zap.String("action", string(ev.Action)),
		zap.String("actor_id", ev.ActorID),
		zap.String("record_id", ev.RecordID),
		zap.Any("before", Snapshot(ev.Before)),
		zap.Any("after", Snapshot(ev.After)),
		zap.Time("at", ev.At),
	)
}

// Snapshot converts a record into a loggable map with credential-looking
// fields stripped. Values that do not round-trip through JSON come back nil.
func Snapshot(v any) map[string]any {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	for k := range m {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "password") ||
			strings.Contains(lower, "token") ||
			strings.Contains(lower, "secret") {
			delete(m, k)
		}
	}
	return m
}
