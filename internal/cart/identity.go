package cart

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/rosecart/internal/storage"
)

// uuidPattern matches a canonical UUID anywhere inside a string. The backend
// identifier format changed over time, so stale client storage may hold a
// bare UUID, a legacy "cart-<uuid>" form, or a UUID embedded in older
// wrapper text.
var uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// NormalizeCartID reduces a stored cart identifier to its canonical UUID
// form. It accepts a canonical UUID unchanged, unwraps the legacy
// "cart-<uuid>" prefix, and extracts the first embedded UUID from any other
// string. Anything without a UUID is rejected; a malformed stored id must
// trigger re-provisioning, never a crash.
func NormalizeCartID(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if _, err := uuid.Parse(raw); err == nil && len(raw) == 36 {
		return raw, true
	}
	if rest, ok := strings.CutPrefix(raw, "cart-"); ok && len(rest) == 36 {
		if _, err := uuid.Parse(rest); err == nil {
			return rest, true
		}
	}
	if m := uuidPattern.FindString(raw); m != "" {
		return m, true
	}
	return "", false
}

// ErrUnavailable reports that neither the authenticated-cart fetch nor the
// guest-cart creation could reach the backend. It is transient: the cart is
// not gone, the backend is.
var ErrUnavailable = errors.New("cart backend unavailable")

// ResolveEffectiveCartID decides which cart every operation targets. An
// authenticated session resolves to the user cart (fetching it creates it);
// otherwise the persisted guest id is normalized and used, or a fresh guest
// cart is provisioned and persisted. Concurrent calls share one resolution,
// so two racing resolutions never provision two guest carts.
func (e *Engine) ResolveEffectiveCartID(ctx context.Context) (string, error) {
	id, err, _ := e.resolveGroup.Do("resolve", func() (any, error) {
		return e.resolveCartID(ctx)
	})
	if err != nil {
		return "", err
	}
	return id.(string), nil
}

func (e *Engine) resolveCartID(ctx context.Context) (string, error) {
	if e.auth.Authenticated() {
		cv, err := e.backend.GetMyCart(ctx)
		if err == nil {
			e.commitView(cv, StateUser)
			return cv.ID, nil
		}
		e.lg.Debug("user cart fetch failed, falling back to guest", zap.Error(err))
		// Fall through: a transient failure on the user path must not
		// leave the caller without a cart id if a guest cart works.
	}
	return e.ensureGuestCartID(ctx)
}

// ensureGuestCartID returns a valid persisted guest id, re-persisting the
// normalized form when the stored value was a legacy shape, or provisions a
// new guest cart.
func (e *Engine) ensureGuestCartID(ctx context.Context) (string, error) {
	if raw, ok := e.store.Get(storage.GuestCartKey); ok {
		if id, valid := NormalizeCartID(raw); valid {
			if id != raw {
				if err := e.store.Set(storage.GuestCartKey, id); err != nil {
					e.lg.Warn("persist normalized cart id", zap.Error(err))
				}
			}
			e.enterGuestState()
			return id, nil
		}
	}
	id, err := e.backend.CreateGuestCart(ctx)
	if err != nil {
		return "", errors.Wrap(ErrUnavailable, err.Error())
	}
	if err := e.store.Set(storage.GuestCartKey, id); err != nil {
		return "", errors.Wrap(err, "persist guest cart id")
	}
	e.enterGuestState()
	return id, nil
}

// reprovisionGuestCart discards the stored guest id and creates a fresh
// guest cart. Used when the backend reports the stored id stale.
func (e *Engine) reprovisionGuestCart(ctx context.Context) (string, error) {
	id, err := e.backend.CreateGuestCart(ctx)
	if err != nil {
		return "", err
	}
	if err := e.store.Set(storage.GuestCartKey, id); err != nil {
		return "", errors.Wrap(err, "persist guest cart id")
	}
	e.enterGuestState()
	return id, nil
}

func (e *Engine) enterGuestState() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateUnresolved {
		e.state = StateGuest
	}
}
