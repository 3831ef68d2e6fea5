package cart

import (
	"context"

	"go.uber.org/zap"

	"github.com/xenking/rosecart/internal/api"
	"github.com/xenking/rosecart/internal/storage"
)

// MergeOnLogin reconciles the persisted guest cart into the authenticated
// user's cart with the sum strategy: quantities of overlapping products add
// together. It is meant to run once per unauthenticated-to-authenticated
// transition; wire it to the session's login edge, not to a polling check.
//
// The guest id is discarded after the merge attempt regardless of outcome:
// a guest cart must never be reused after a merge, or a repeated login would
// double-count its items. The authoritative view is refreshed afterward even
// when the merge fails, so a merge problem never blocks the user from seeing
// their account cart.
func (e *Engine) MergeOnLogin(ctx context.Context) error {
	raw, ok := e.store.Get(storage.GuestCartKey)
	if !ok {
		e.setState(StateUser)
		return e.Refresh(ctx)
	}
	guestID, valid := NormalizeCartID(raw)
	if !valid {
		// Nothing mergeable; drop the junk value.
		if err := e.store.Delete(storage.GuestCartKey); err != nil {
			e.lg.Warn("discard malformed guest cart id", zap.Error(err))
		}
		e.setState(StateUser)
		return e.Refresh(ctx)
	}

	e.setState(StateMerging)

	merged, mergeErr := e.backend.MergeMyCart(ctx, guestID, api.MergeSum)

	if err := e.store.Delete(storage.GuestCartKey); err != nil {
		e.lg.Warn("discard guest cart id after merge", zap.Error(err))
	}

	if mergeErr != nil {
		e.lg.Warn("guest cart merge failed",
			zap.String("guest_cart_id", guestID), zap.Error(mergeErr))
	} else if merged != nil && merged.ID != "" {
		e.commitView(merged, StateUser)
	}

	// MERGING always exits to USER, merge success or not.
	e.setState(StateUser)
	if err := e.Refresh(ctx); err != nil {
		e.lg.Warn("post-merge refresh failed", zap.Error(err))
	}
	return mergeErr
}
