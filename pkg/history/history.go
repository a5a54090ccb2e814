// Package history records launch attempts.
//
// Every attempt, successful or not, becomes one [Record]. Records are kept
// in a [Store]: a JSON-lines file under the base directory by default, or a
// MongoDB collection when several launcher installs share one history.
package history

import (
	"context"
	"time"
)

// Record is one launch attempt.
type Record struct {
	ID        string        `json:"id" bson:"_id"`
	Version   string        `json:"version" bson:"version"`
	Username  string        `json:"username" bson:"username"`
	Java      string        `json:"java,omitempty" bson:"java,omitempty"`
	StartedAt time.Time     `json:"started_at" bson:"started_at"`
	Duration  time.Duration `json:"duration" bson:"duration"`
	Outcome   string        `json:"outcome" bson:"outcome"`
	Error     string        `json:"error,omitempty" bson:"error,omitempty"`
}

// Succeeded reports whether the attempt reached a confirmed launch.
func (r Record) Succeeded() bool { return r.Error == "" && r.Outcome == "confirmed" }

// Store persists launch records.
type Store interface {
	// Append adds a record.
	Append(ctx context.Context, r Record) error

	// Recent returns up to limit records, newest first. A limit <= 0 returns all.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// Close releases resources held by the store.
	Close() error
}

// NullStore discards records.
type NullStore struct{}

// NewNullStore returns a store that keeps nothing.
func NewNullStore() NullStore { return NullStore{} }

func (NullStore) Append(context.Context, Record) error          { return nil }
func (NullStore) Recent(context.Context, int) ([]Record, error) { return nil, nil }
func (NullStore) Close() error                                  { return nil }

var _ Store = NullStore{}
