package assistant

import (
	"context"
	"errors"
)

// TieredHistory layers the redis cache over the durable Postgres store.
// Reads prefer the cache and fall back to Postgres when the cache is
// cold or unavailable; writes go to both.
type TieredHistory struct {
	cache   History
	durable History
}

// NewTieredHistory wires the two layers. Either may be nil; the other
// then serves alone.
func NewTieredHistory(cache, durable History) *TieredHistory {
	return &TieredHistory{cache: cache, durable: durable}
}

// Append writes the turn to both layers. The durable write is the one
// that must succeed; a cache failure alone is still reported so the
// caller can log it.
func (h *TieredHistory) Append(ctx context.Context, userID string, msg Message) error {
	var errs []error
	if h.durable != nil {
		if err := h.durable.Append(ctx, userID, msg); err != nil {
			errs = append(errs, err)
		}
	}
	if h.cache != nil {
		if err := h.cache.Append(ctx, userID, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recent reads from the cache first and falls back to the durable store
// when the cache errors or is empty.
func (h *TieredHistory) Recent(ctx context.Context, userID string) ([]Message, error) {
	if h.cache != nil {
		msgs, err := h.cache.Recent(ctx, userID)
		if err == nil && len(msgs) > 0 {
			return msgs, nil
		}
	}
	if h.durable != nil {
		return h.durable.Recent(ctx, userID)
	}
	return nil, nil
}
