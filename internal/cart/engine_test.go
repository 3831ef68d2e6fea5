package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/rosecart/internal/api"
	"github.com/xenking/rosecart/internal/storage"
)

// --- Mock implementations ---

type mockBackend struct {
	mu    sync.Mutex
	calls []string

	createGuestCart    func(ctx context.Context) (string, error)
	getCart            func(ctx context.Context, cartID string) (*api.CartView, error)
	getMyCart          func(ctx context.Context) (*api.CartView, error)
	addCartItem        func(ctx context.Context, cartID, productID string, quantity int) (*api.CartView, error)
	updateCartItem     func(ctx context.Context, cartID, productID string, quantity int) (*api.CartView, error)
	removeCartItem     func(ctx context.Context, cartID, productID string) (*api.CartView, error)
	clearCart          func(ctx context.Context, cartID string) (*api.CartView, error)
	removeCartCoupon   func(ctx context.Context, cartID string) (*api.CartView, error)
	syncCartSummary    func(ctx context.Context, cartID string, coupon api.CouponArg) (*api.CartView, error)
	removeMyCartCoupon func(ctx context.Context) (*api.CartView, error)
	syncMyCartSummary  func(ctx context.Context, coupon api.CouponArg) (*api.CartView, error)
	mergeMyCart        func(ctx context.Context, guestCartID string, strategy api.MergeStrategy) (*api.CartView, error)
	validateCoupon     func(ctx context.Context, code string, vctx api.CouponContext) (*api.CouponValidation, error)
}

func (m *mockBackend) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockBackend) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *mockBackend) CreateGuestCart(ctx context.Context) (string, error) {
	m.record("CreateGuestCart")
	if m.createGuestCart == nil {
		return "", errors.New("unexpected CreateGuestCart")
	}
	return m.createGuestCart(ctx)
}

func (m *mockBackend) GetCart(ctx context.Context, cartID string) (*api.CartView, error) {
	m.record("GetCart")
	if m.getCart == nil {
		return nil, errors.New("unexpected GetCart")
	}
	return m.getCart(ctx, cartID)
}

func (m *mockBackend) GetMyCart(ctx context.Context) (*api.CartView, error) {
	m.record("GetMyCart")
	if m.getMyCart == nil {
		return nil, errors.New("unexpected GetMyCart")
	}
	return m.getMyCart(ctx)
}

func (m *mockBackend) AddCartItem(ctx context.Context, cartID, productID string, quantity int) (*api.CartView, error) {
	m.record("AddCartItem")
	if m.addCartItem == nil {
		return nil, errors.New("unexpected AddCartItem")
	}
	return m.addCartItem(ctx, cartID, productID, quantity)
}

func (m *mockBackend) UpdateCartItem(ctx context.Context, cartID, productID string, quantity int) (*api.CartView, error) {
	m.record("UpdateCartItem")
	if m.updateCartItem == nil {
		return nil, errors.New("unexpected UpdateCartItem")
	}
	return m.updateCartItem(ctx, cartID, productID, quantity)
}

func (m *mockBackend) RemoveCartItem(ctx context.Context, cartID, productID string) (*api.CartView, error) {
	m.record("RemoveCartItem")
	if m.removeCartItem == nil {
		return nil, errors.New("unexpected RemoveCartItem")
	}
	return m.removeCartItem(ctx, cartID, productID)
}

func (m *mockBackend) ClearCart(ctx context.Context, cartID string) (*api.CartView, error) {
	m.record("ClearCart")
	if m.clearCart == nil {
		return nil, errors.New("unexpected ClearCart")
	}
	return m.clearCart(ctx, cartID)
}

func (m *mockBackend) RemoveCartCoupon(ctx context.Context, cartID string) (*api.CartView, error) {
	m.record("RemoveCartCoupon")
	if m.removeCartCoupon == nil {
		return nil, errors.New("unexpected RemoveCartCoupon")
	}
	return m.removeCartCoupon(ctx, cartID)
}

func (m *mockBackend) SyncCartSummary(ctx context.Context, cartID string, coupon api.CouponArg) (*api.CartView, error) {
	m.record("SyncCartSummary")
	if m.syncCartSummary == nil {
		return nil, errors.New("unexpected SyncCartSummary")
	}
	return m.syncCartSummary(ctx, cartID, coupon)
}

func (m *mockBackend) RemoveMyCartCoupon(ctx context.Context) (*api.CartView, error) {
	m.record("RemoveMyCartCoupon")
	if m.removeMyCartCoupon == nil {
		return nil, errors.New("unexpected RemoveMyCartCoupon")
	}
	return m.removeMyCartCoupon(ctx)
}

func (m *mockBackend) SyncMyCartSummary(ctx context.Context, coupon api.CouponArg) (*api.CartView, error) {
	m.record("SyncMyCartSummary")
	if m.syncMyCartSummary == nil {
		return nil, errors.New("unexpected SyncMyCartSummary")
	}
	return m.syncMyCartSummary(ctx, coupon)
}

func (m *mockBackend) MergeMyCart(ctx context.Context, guestCartID string, strategy api.MergeStrategy) (*api.CartView, error) {
	m.record("MergeMyCart")
	if m.mergeMyCart == nil {
		return nil, errors.New("unexpected MergeMyCart")
	}
	return m.mergeMyCart(ctx, guestCartID, strategy)
}

func (m *mockBackend) ValidateCoupon(ctx context.Context, code string, vctx api.CouponContext) (*api.CouponValidation, error) {
	m.record("ValidateCoupon")
	if m.validateCoupon == nil {
		return nil, errors.New("unexpected ValidateCoupon")
	}
	return m.validateCoupon(ctx, code, vctx)
}

type mockAuth struct {
	authenticated bool
	userID        string
}

func (a *mockAuth) Authenticated() bool { return a.authenticated }
func (a *mockAuth) UserID() string      { return a.userID }

// --- Helpers ---

const (
	guestID    = "7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"
	newGuestID = "9f86d081-884c-4d63-a1ff-a0b846c0a9d1"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testView(id string, items ...api.CartItem) *api.CartView {
	cv := &api.CartView{ID: id, Items: items}
	recomputeTotals(cv)
	return cv
}

func item(productID, price string, quantity int) api.CartItem {
	return api.CartItem{
		ProductID: productID,
		Price:     d(price),
		Quantity:  quantity,
	}
}

func notFoundErr() error {
	return &api.Error{Status: 404, Code: api.CodeNotFound}
}

func conflictErr() error {
	return &api.Error{Status: 409, Code: api.CodeConflict}
}

func newGuestEngine(t *testing.T, backend *mockBackend, cfg Config) (*Engine, *storage.MemStore) {
	t.Helper()
	store := storage.NewMem()
	require.NoError(t, store.Set(storage.GuestCartKey, guestID))
	return New(backend, &mockAuth{}, store, cfg, nil), store
}

// passthroughSummary makes reconcile a no-op that re-reports the given view.
func passthroughSummary(cv *api.CartView) func(context.Context, string, api.CouponArg) (*api.CartView, error) {
	return func(_ context.Context, _ string, _ api.CouponArg) (*api.CartView, error) {
		return cv, nil
	}
}

// --- Tests ---

func TestAddItem_CommitsAuthoritativeView(t *testing.T) {
	added := testView(guestID, item("p1", "10", 2))
	reconciled := testView(guestID, item("p1", "10", 2))
	reconciled.Total = d("20")

	backend := &mockBackend{
		addCartItem: func(_ context.Context, cartID, productID string, quantity int) (*api.CartView, error) {
			assert.Equal(t, guestID, cartID)
			assert.Equal(t, "p1", productID)
			assert.Equal(t, 2, quantity)
			return added, nil
		},
		syncCartSummary: passthroughSummary(reconciled),
	}
	e, _ := newGuestEngine(t, backend, Config{})

	require.NoError(t, e.AddItem(context.Background(), "p1", 2))

	assert.Equal(t, StateGuest, e.State())
	got := e.View()
	require.NotNil(t, got)
	assert.True(t, got.Total.Equal(d("20")))
	assert.Equal(t, 2, e.Count())
}

func TestAddItem_RetriesOnceOnStaleGuestCart(t *testing.T) {
	fresh := testView(newGuestID, item("p1", "10", 1))

	backend := &mockBackend{
		addCartItem: func(_ context.Context, cartID, _ string, _ int) (*api.CartView, error) {
			if cartID == guestID {
				return nil, notFoundErr()
			}
			return fresh, nil
		},
		createGuestCart: func(_ context.Context) (string, error) {
			return newGuestID, nil
		},
		syncCartSummary: passthroughSummary(fresh),
	}
	e, store := newGuestEngine(t, backend, Config{})

	require.NoError(t, e.AddItem(context.Background(), "p1", 1))

	stored, ok := store.Get(storage.GuestCartKey)
	require.True(t, ok)
	assert.Equal(t, newGuestID, stored)
	assert.Equal(t, 2, backend.callCount("AddCartItem"))
	assert.Equal(t, 1, backend.callCount("CreateGuestCart"))
}

func TestAddItem_RetriesOnConflictToo(t *testing.T) {
	fresh := testView(newGuestID, item("p1", "10", 1))

	backend := &mockBackend{
		addCartItem: func(_ context.Context, cartID, _ string, _ int) (*api.CartView, error) {
			if cartID == guestID {
				return nil, conflictErr()
			}
			return fresh, nil
		},
		createGuestCart: func(_ context.Context) (string, error) {
			return newGuestID, nil
		},
		syncCartSummary: passthroughSummary(fresh),
	}
	e, _ := newGuestEngine(t, backend, Config{})

	require.NoError(t, e.AddItem(context.Background(), "p1", 1))
	assert.Equal(t, 2, backend.callCount("AddCartItem"))
}

func TestAddItem_SecondFailureSurfaces(t *testing.T) {
	backend := &mockBackend{
		addCartItem: func(_ context.Context, _, _ string, _ int) (*api.CartView, error) {
			return nil, notFoundErr()
		},
		createGuestCart: func(_ context.Context) (string, error) {
			return newGuestID, nil
		},
	}
	e, _ := newGuestEngine(t, backend, Config{})

	err := e.AddItem(context.Background(), "p1", 1)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	// Exactly one retry, no loop.
	assert.Equal(t, 2, backend.callCount("AddCartItem"))
	assert.Equal(t, 1, backend.callCount("CreateGuestCart"))
}

func TestAddItem_AuthenticatedDoesNotReprovision(t *testing.T) {
	userCart := testView("user-cart", item("p1", "10", 1))
	backend := &mockBackend{
		getMyCart: func(_ context.Context) (*api.CartView, error) {
			return userCart, nil
		},
		addCartItem: func(_ context.Context, _, _ string, _ int) (*api.CartView, error) {
			return nil, notFoundErr()
		},
	}
	e := New(backend, &mockAuth{authenticated: true, userID: "u1"}, storage.NewMem(), Config{}, nil)

	err := e.AddItem(context.Background(), "p1", 1)
	require.Error(t, err)
	assert.Equal(t, 0, backend.callCount("CreateGuestCart"))
}

func TestUpdateItem_OptimisticBeforeResponse(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	result := testView(guestID, item("p1", "10", 5))

	backend := &mockBackend{
		updateCartItem: func(_ context.Context, _, _ string, _ int) (*api.CartView, error) {
			close(started)
			<-release
			return result, nil
		},
		syncCartSummary: passthroughSummary(result),
	}
	e, _ := newGuestEngine(t, backend, Config{})
	e.commitView(testView(guestID, item("p1", "10", 2)), StateGuest)

	done := make(chan error, 1)
	go func() {
		done <- e.UpdateItem(context.Background(), "p1", 5)
	}()

	// While the request is in flight the local view already shows the edit.
	<-started
	got := e.View()
	require.NotNil(t, got)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 5, got.Items[0].Quantity)
	assert.True(t, got.Subtotal.Equal(d("50")))

	close(release)
	require.NoError(t, <-done)
}

func TestUpdateItem_FailureKeepsOptimisticByDefault(t *testing.T) {
	backend := &mockBackend{
		updateCartItem: func(_ context.Context, _, _ string, _ int) (*api.CartView, error) {
			return nil, errors.New("backend down")
		},
	}
	e, _ := newGuestEngine(t, backend, Config{})
	e.commitView(testView(guestID, item("p1", "10", 2)), StateGuest)

	err := e.UpdateItem(context.Background(), "p1", 7)
	require.Error(t, err)

	got := e.View()
	require.Len(t, got.Items, 1)
	assert.Equal(t, 7, got.Items[0].Quantity)
}

func TestUpdateItem_FailureRollsBackWhenConfigured(t *testing.T) {
	backend := &mockBackend{
		updateCartItem: func(_ context.Context, _, _ string, _ int) (*api.CartView, error) {
			return nil, errors.New("backend down")
		},
	}
	e, _ := newGuestEngine(t, backend, Config{RollbackOnFailure: true})
	e.commitView(testView(guestID, item("p1", "10", 2)), StateGuest)

	err := e.UpdateItem(context.Background(), "p1", 7)
	require.Error(t, err)

	got := e.View()
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestUpdateItem_NotFoundFallsBackToAdd(t *testing.T) {
	added := testView(guestID, item("p2", "4", 3))
	backend := &mockBackend{
		updateCartItem: func(_ context.Context, _, _ string, _ int) (*api.CartView, error) {
			return nil, notFoundErr()
		},
		addCartItem: func(_ context.Context, _, productID string, quantity int) (*api.CartView, error) {
			assert.Equal(t, "p2", productID)
			assert.Equal(t, 3, quantity)
			return added, nil
		},
		syncCartSummary: passthroughSummary(added),
	}
	e, _ := newGuestEngine(t, backend, Config{})
	e.commitView(testView(guestID), StateGuest)

	require.NoError(t, e.UpdateItem(context.Background(), "p2", 3))
	assert.Equal(t, 1, backend.callCount("AddCartItem"))
}

func TestUpdateItem_NotFoundWithZeroQuantityDoesNotAdd(t *testing.T) {
	backend := &mockBackend{
		updateCartItem: func(_ context.Context, _, _ string, _ int) (*api.CartView, error) {
			return nil, notFoundErr()
		},
	}
	e, _ := newGuestEngine(t, backend, Config{})
	e.commitView(testView(guestID, item("p1", "10", 1)), StateGuest)

	err := e.UpdateItem(context.Background(), "p1", 0)
	require.Error(t, err)
	assert.Equal(t, 0, backend.callCount("AddCartItem"))
}

func TestRemoveItem_RemovesLocallyThenCommits(t *testing.T) {
	remaining := testView(guestID, item("p2", "4", 1))
	backend := &mockBackend{
		removeCartItem: func(_ context.Context, _, productID string) (*api.CartView, error) {
			assert.Equal(t, "p1", productID)
			return remaining, nil
		},
		syncCartSummary: passthroughSummary(remaining),
	}
	e, _ := newGuestEngine(t, backend, Config{})
	e.commitView(testView(guestID, item("p1", "10", 2), item("p2", "4", 1)), StateGuest)

	require.NoError(t, e.RemoveItem(context.Background(), "p1"))

	got := e.View()
	require.Len(t, got.Items, 1)
	assert.Equal(t, "p2", got.Items[0].ProductID)
}

func TestClear_EmptiesCart(t *testing.T) {
	empty := testView(guestID)
	backend := &mockBackend{
		clearCart: func(_ context.Context, cartID string) (*api.CartView, error) {
			assert.Equal(t, guestID, cartID)
			return empty, nil
		},
		syncCartSummary: passthroughSummary(empty),
	}
	e, _ := newGuestEngine(t, backend, Config{})
	e.commitView(testView(guestID, item("p1", "10", 2)), StateGuest)

	require.NoError(t, e.Clear(context.Background()))
	assert.Equal(t, 0, e.Count())
}

func TestRefresh_GuestSummaryFallsBackToGet(t *testing.T) {
	cv := testView(guestID, item("p1", "10", 1))
	backend := &mockBackend{
		syncCartSummary: func(_ context.Context, _ string, _ api.CouponArg) (*api.CartView, error) {
			return nil, errors.New("summary route unsupported")
		},
		getCart: func(_ context.Context, cartID string) (*api.CartView, error) {
			assert.Equal(t, guestID, cartID)
			return cv, nil
		},
	}
	e, _ := newGuestEngine(t, backend, Config{})

	require.NoError(t, e.Refresh(context.Background()))
	assert.Equal(t, StateGuest, e.State())
	assert.Equal(t, 1, e.Count())
}

func TestRefresh_StaleGuestCartReprovisions(t *testing.T) {
	fresh := testView(newGuestID)
	backend := &mockBackend{
		syncCartSummary: func(_ context.Context, _ string, _ api.CouponArg) (*api.CartView, error) {
			return nil, notFoundErr()
		},
		getCart: func(_ context.Context, cartID string) (*api.CartView, error) {
			if cartID == guestID {
				return nil, notFoundErr()
			}
			return fresh, nil
		},
		createGuestCart: func(_ context.Context) (string, error) {
			return newGuestID, nil
		},
	}
	e, store := newGuestEngine(t, backend, Config{})

	require.NoError(t, e.Refresh(context.Background()))

	stored, _ := store.Get(storage.GuestCartKey)
	assert.Equal(t, newGuestID, stored)
	assert.Equal(t, 1, backend.callCount("CreateGuestCart"))
}

func TestRefresh_AuthenticatedUsesUserCart(t *testing.T) {
	cv := testView("user-cart", item("p1", "10", 3))
	backend := &mockBackend{
		syncMyCartSummary: func(_ context.Context, coupon api.CouponArg) (*api.CartView, error) {
			assert.Equal(t, api.KeepCoupon(), coupon)
			return cv, nil
		},
	}
	e := New(backend, &mockAuth{authenticated: true, userID: "u1"}, storage.NewMem(), Config{}, nil)

	require.NoError(t, e.Refresh(context.Background()))
	assert.Equal(t, StateUser, e.State())
	assert.Equal(t, 3, e.Count())
}

func TestReset_DropsStateAndGuestID(t *testing.T) {
	e, store := newGuestEngine(t, &mockBackend{}, Config{})
	e.commitView(testView(guestID, item("p1", "10", 1)), StateGuest)

	require.NoError(t, e.Reset())

	assert.Equal(t, StateUnresolved, e.State())
	assert.Nil(t, e.View())
	_, ok := store.Get(storage.GuestCartKey)
	assert.False(t, ok)
}

func TestRecomputeTotals(t *testing.T) {
	discounted := d("8")
	code := "SAVE10"

	cv := &api.CartView{
		ID: guestID,
		Items: []api.CartItem{
			{ProductID: "p1", Price: d("10"), DiscountedPrice: &discounted, Quantity: 2},
			{ProductID: "p2", Price: d("5"), Quantity: 1},
		},
		AppliedCouponCode: &code,
		DiscountAmount:    d("2.10"),
	}
	recomputeTotals(cv)

	assert.Equal(t, 3, cv.TotalQuantity)
	assert.True(t, cv.Subtotal.Equal(d("21")), "subtotal uses discounted unit price")
	assert.True(t, cv.Total.Equal(d("18.90")), "total carries over the server discount")

	// A discount larger than the subtotal floors the total at zero.
	cv.DiscountAmount = d("100")
	recomputeTotals(cv)
	assert.True(t, cv.Total.IsZero())
}
