// Package checkpoint persists the per-account watermark: the Unix time of the
// newest activity already ingested. Activities are fetched strictly after it.
package checkpoint

import (
	"context"
	"time"
)

// Store reads and writes per-account checkpoints.
//
// Get never persists anything; an account without a stored value gets the
// start of the current UTC day. Set must leave either the old or the new
// value behind if the process dies mid-write.
type Store interface {
	Get(ctx context.Context, account string) (int64, error)
	Set(ctx context.Context, account string, ts int64) error
}

// StartOfDay returns 00:00:00 UTC of t's UTC date as epoch seconds.
func StartOfDay(t time.Time) int64 {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Unix()
}

// Format renders a checkpoint for log lines.
func Format(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("January 02 2006, 03:04:05 PM UTC")
}
