package events

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/safetrack/safetrack/internal/inspection"
)

// DeduplicationConfig holds configuration for event deduplication
type DeduplicationConfig struct {
	Enabled bool
	TTL     time.Duration
}

// DefaultDeduplicationConfig returns default deduplication settings
func DefaultDeduplicationConfig() DeduplicationConfig {
	return DeduplicationConfig{
		Enabled: true,
		TTL:     10 * time.Minute,
	}
}

// Deduplicator suppresses repeats of the same event within a TTL window, so an
// operator toggling an item between states does not raise the same alert twice.
// Expired keys are purged on Sweep; no janitor goroutine is started.
type Deduplicator struct {
	config DeduplicationConfig
	seen   *cache.Cache

	totalSeen       atomic.Uint64
	totalSuppressed atomic.Uint64
}

// NewDeduplicator creates a deduplicator.
func NewDeduplicator(config DeduplicationConfig) *Deduplicator {
	if config.TTL <= 0 {
		config.TTL = DefaultDeduplicationConfig().TTL
	}
	return &Deduplicator{
		config: config,
		seen:   cache.New(config.TTL, 0),
	}
}

// ShouldProcess reports whether event is new within the TTL window.
func (d *Deduplicator) ShouldProcess(event inspection.Event) bool {
	if d == nil || !d.config.Enabled {
		return true
	}
	d.totalSeen.Add(1)

	// Add fails while an unexpired entry exists.
	if err := d.seen.Add(eventKey(event), struct{}{}, cache.DefaultExpiration); err != nil {
		d.totalSuppressed.Add(1)
		return false
	}
	return true
}

// Sweep removes expired entries.
func (d *Deduplicator) Sweep() {
	if d != nil {
		d.seen.DeleteExpired()
	}
}

// Stats returns the number of events seen and suppressed.
func (d *Deduplicator) Stats() (seen, suppressed uint64) {
	if d == nil {
		return 0, 0
	}
	return d.totalSeen.Load(), d.totalSuppressed.Load()
}

// eventKey hashes the fields that identify an event, ignoring timestamps and progress.
func eventKey(event inspection.Event) string {
	h := sha256.New()
	for _, part := range []string{
		string(event.Type),
		event.InspectionID,
		event.ItemID,
		string(event.State),
		event.Comment,
		string(event.Status),
		event.Reason,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
