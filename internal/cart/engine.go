// Package cart implements the client-side cart synchronization engine: it
// resolves which cart the client is operating on (guest or user), applies
// mutations against the authoritative backend with optimistic local updates,
// keeps coupon and totals state in sync, and merges the guest cart into the
// user cart exactly once per login.
package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xenking/rosecart/internal/api"
	"github.com/xenking/rosecart/internal/storage"
)

// State is the engine's view of the current cart identity.
type State int

const (
	// StateUnresolved means no cart identity has been established yet.
	StateUnresolved State = iota
	// StateGuest means operations target a guest cart with a persisted id.
	StateGuest
	// StateMerging is the transient state while a guest cart is merged
	// into the user cart; it always exits to StateUser.
	StateMerging
	// StateUser means operations target the authenticated user's cart.
	StateUser
)

func (s State) String() string {
	switch s {
	case StateGuest:
		return "guest"
	case StateMerging:
		return "merging"
	case StateUser:
		return "user"
	default:
		return "unresolved"
	}
}

// Backend is the subset of the API client the engine depends on.
type Backend interface {
	CreateGuestCart(ctx context.Context) (string, error)
	GetCart(ctx context.Context, cartID string) (*api.CartView, error)
	GetMyCart(ctx context.Context) (*api.CartView, error)
	AddCartItem(ctx context.Context, cartID, productID string, quantity int) (*api.CartView, error)
	UpdateCartItem(ctx context.Context, cartID, productID string, quantity int) (*api.CartView, error)
	RemoveCartItem(ctx context.Context, cartID, productID string) (*api.CartView, error)
	ClearCart(ctx context.Context, cartID string) (*api.CartView, error)
	RemoveCartCoupon(ctx context.Context, cartID string) (*api.CartView, error)
	SyncCartSummary(ctx context.Context, cartID string, coupon api.CouponArg) (*api.CartView, error)
	RemoveMyCartCoupon(ctx context.Context) (*api.CartView, error)
	SyncMyCartSummary(ctx context.Context, coupon api.CouponArg) (*api.CartView, error)
	MergeMyCart(ctx context.Context, guestCartID string, strategy api.MergeStrategy) (*api.CartView, error)
	ValidateCoupon(ctx context.Context, code string, vctx api.CouponContext) (*api.CouponValidation, error)
}

// AuthState is the authentication context the engine consults. Satisfied by
// *session.Session.
type AuthState interface {
	Authenticated() bool
	UserID() string
}

// Config tunes engine behavior.
type Config struct {
	// RollbackOnFailure restores the pre-mutation view when an optimistic
	// update's authoritative request fails. The default keeps the
	// optimistic state visible, trading strict consistency for
	// responsiveness; the next successful sync corrects either way.
	RollbackOnFailure bool
}

// Engine owns the client's view of the current cart.
type Engine struct {
	backend Backend
	auth    AuthState
	store   storage.Store
	cfg     Config
	lg      *zap.Logger

	resolveGroup singleflight.Group

	mu    sync.Mutex
	state State
	view  *api.CartView
}

// New creates an Engine. The view starts unresolved; call Refresh (or any
// mutation) to establish a cart identity.
func New(backend Backend, auth AuthState, store storage.Store, cfg Config, lg *zap.Logger) *Engine {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Engine{
		backend: backend,
		auth:    auth,
		store:   store,
		cfg:     cfg,
		lg:      lg.Named("cart"),
	}
}

// State returns the current identity state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// View returns a copy of the current cart snapshot, or nil before the first
// successful sync.
func (e *Engine) View() *api.CartView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.Clone()
}

// Count returns the current total quantity for badge display; zero when
// unresolved.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view == nil {
		return 0
	}
	return e.view.TotalQuantity
}

// commitView replaces the local snapshot with an authoritative response.
func (e *Engine) commitView(cv *api.CartView, st State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view = cv.Clone()
	e.state = st
}

// restoreView puts back a pre-mutation snapshot (rollback policy only).
func (e *Engine) restoreView(cv *api.CartView) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view = cv
}

// snapshotView returns the current view without copying; callers must treat
// it as read-only.
func (e *Engine) snapshotView() *api.CartView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

func (e *Engine) setState(st State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = st
}

// recomputeTotals rebuilds quantity, subtotal, line totals, and total from
// the item list. Used only for optimistic guesses between a local edit and
// the authoritative response; the server-computed discount is carried over
// unchanged so the total stays plausible while a coupon is applied.
func recomputeTotals(cv *api.CartView) {
	totalQty := 0
	subtotal := decimal.Zero
	for i := range cv.Items {
		it := &cv.Items[i]
		it.LineTotal = it.EffectivePrice().Mul(decimal.NewFromInt(int64(it.Quantity)))
		totalQty += it.Quantity
		subtotal = subtotal.Add(it.LineTotal)
	}
	cv.TotalQuantity = totalQty
	cv.Subtotal = subtotal
	total := subtotal
	if cv.AppliedCouponCode != nil {
		total = total.Sub(cv.DiscountAmount)
		if total.IsNegative() {
			total = decimal.Zero
		}
	}
	cv.Total = total
}

// applyOptimisticQuantity sets (or removes, for quantity <= 0) a product line
// in the local view and recomputes totals. Returns the pre-edit snapshot for
// the rollback policy, or nil when there was nothing to edit.
func (e *Engine) applyOptimisticQuantity(productID string, quantity int) *api.CartView {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.view == nil {
		return nil
	}
	prev := e.view
	next := e.view.Clone()

	idx := -1
	for i := range next.Items {
		if next.Items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if quantity <= 0 {
		next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	} else {
		next.Items[idx].Quantity = quantity
	}
	recomputeTotals(next)
	e.view = next
	return prev
}

// AddItem adds quantity units of a product to the effective cart. A stale
// guest cart id (NOT_FOUND or CONFLICT while unauthenticated) is
// re-provisioned and the request retried exactly once; a second failure is
// reported as-is rather than looping against a broken backend.
func (e *Engine) AddItem(ctx context.Context, productID string, quantity int) error {
	id, err := e.ResolveEffectiveCartID(ctx)
	if err != nil {
		return err
	}

	cv, err := e.backend.AddCartItem(ctx, id, productID, quantity)
	if err != nil {
		if e.auth.Authenticated() || !(api.IsNotFound(err) || api.IsConflict(err)) {
			return err
		}
		e.lg.Info("guest cart stale, re-provisioning",
			zap.String("cart_id", id), zap.Error(err))
		newID, provErr := e.reprovisionGuestCart(ctx)
		if provErr != nil {
			return provErr
		}
		cv, err = e.backend.AddCartItem(ctx, newID, productID, quantity)
		if err != nil {
			return err
		}
		id = newID
	}

	e.commitView(cv, e.steadyState())
	e.reconcile(ctx, id)
	return nil
}

// UpdateItem sets the quantity of a product line. The local view updates
// optimistically before the authoritative PATCH; a NOT_FOUND response with a
// positive target quantity falls back to adding the item, covering lines the
// server never had. Failures leave the optimistic state visible unless
// RollbackOnFailure is set.
func (e *Engine) UpdateItem(ctx context.Context, productID string, quantity int) error {
	prev := e.applyOptimisticQuantity(productID, quantity)

	id, err := e.ResolveEffectiveCartID(ctx)
	if err != nil {
		e.maybeRollback(prev)
		return err
	}

	cv, err := e.backend.UpdateCartItem(ctx, id, productID, quantity)
	if err != nil {
		if api.IsNotFound(err) && quantity > 0 {
			cv, err = e.backend.AddCartItem(ctx, id, productID, quantity)
		}
		if err != nil {
			e.maybeRollback(prev)
			return err
		}
	}

	e.commitView(cv, e.steadyState())
	e.reconcile(ctx, id)
	return nil
}

// RemoveItem deletes a product line, optimistically first. Same failure
// policy as UpdateItem.
func (e *Engine) RemoveItem(ctx context.Context, productID string) error {
	prev := e.applyOptimisticQuantity(productID, 0)

	id, err := e.ResolveEffectiveCartID(ctx)
	if err != nil {
		e.maybeRollback(prev)
		return err
	}

	cv, err := e.backend.RemoveCartItem(ctx, id, productID)
	if err != nil {
		e.maybeRollback(prev)
		return err
	}

	e.commitView(cv, e.steadyState())
	e.reconcile(ctx, id)
	return nil
}

// Clear empties the effective cart.
func (e *Engine) Clear(ctx context.Context) error {
	id, err := e.ResolveEffectiveCartID(ctx)
	if err != nil {
		return err
	}
	cv, err := e.backend.ClearCart(ctx, id)
	if err != nil {
		return err
	}
	if cv == nil || cv.ID == "" {
		cv = &api.CartView{ID: id, Items: []api.CartItem{}}
	}
	e.commitView(cv, e.steadyState())
	e.reconcile(ctx, id)
	return nil
}

// maybeRollback restores prev when the rollback policy is enabled and there
// is a snapshot to restore.
func (e *Engine) maybeRollback(prev *api.CartView) {
	if e.cfg.RollbackOnFailure && prev != nil {
		e.restoreView(prev)
	}
}

// steadyState is the identity state mutations commit with: user when
// authenticated, guest otherwise.
func (e *Engine) steadyState() State {
	if e.auth.Authenticated() {
		return StateUser
	}
	return StateGuest
}

// reconcile re-fetches the authoritative cart after a mutation so any
// discrepancy between the optimistic guess and server truth (stock clamping,
// price changes) is corrected within one round trip. Best effort: the
// mutation already succeeded, so reconcile failures are only logged.
func (e *Engine) reconcile(ctx context.Context, cartID string) {
	var (
		cv  *api.CartView
		err error
	)
	if e.auth.Authenticated() {
		cv, err = e.backend.SyncMyCartSummary(ctx, api.KeepCoupon())
		if err != nil {
			cv, err = e.backend.GetMyCart(ctx)
		}
	} else {
		cv, err = e.backend.SyncCartSummary(ctx, cartID, api.KeepCoupon())
		if err != nil {
			cv, err = e.backend.GetCart(ctx, cartID)
		}
	}
	if err != nil {
		e.lg.Debug("post-mutation reconcile failed", zap.Error(err))
		return
	}
	e.commitView(cv, e.steadyState())
}

// Refresh replaces the local view with the authoritative cart, provisioning
// a guest identity when none exists. A guest cart the backend no longer
// knows is re-provisioned so the next interaction starts clean.
func (e *Engine) Refresh(ctx context.Context) error {
	if e.auth.Authenticated() {
		cv, err := e.backend.SyncMyCartSummary(ctx, api.KeepCoupon())
		if err != nil {
			cv, err = e.backend.GetMyCart(ctx)
		}
		if err != nil {
			return err
		}
		e.commitView(cv, StateUser)
		return nil
	}

	id, err := e.ensureGuestCartID(ctx)
	if err != nil {
		return err
	}
	cv, err := e.backend.SyncCartSummary(ctx, id, api.KeepCoupon())
	if err != nil {
		cv, err = e.backend.GetCart(ctx, id)
	}
	if err != nil {
		if !api.IsNotFound(err) {
			return err
		}
		// Stale guest id: provision once and fetch the fresh cart, no
		// further retries.
		newID, provErr := e.reprovisionGuestCart(ctx)
		if provErr != nil {
			return provErr
		}
		cv, err = e.backend.GetCart(ctx, newID)
		if err != nil {
			return err
		}
	}
	e.commitView(cv, StateGuest)
	return nil
}

// Reset drops the engine to the unresolved state and discards the persisted
// guest identity. Used after logout and after successful order placement; the
// next interaction re-provisions a fresh cart.
func (e *Engine) Reset() error {
	e.mu.Lock()
	e.state = StateUnresolved
	e.view = nil
	e.mu.Unlock()
	return e.store.Delete(storage.GuestCartKey)
}
