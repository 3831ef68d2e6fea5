// Package checkout places orders against the backend and handles the one
// recoverable failure mode: stock conflicts, where the affected cart lines
// are clamped to the backend-reported availability and the user retries.
package checkout

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/rosecart/internal/api"
	"github.com/xenking/rosecart/internal/cart"
)

// PaymentMethod values accepted by the backend.
const (
	PaymentCOD  = "COD"
	PaymentCard = "CARD"
)

// Card is the card payment details, required when paying by card.
type Card struct {
	Number string `validate:"required,min=12,max=19"`
	Expiry string `validate:"required"`
	CVV    string `validate:"required,len=3"`
}

// Request is the checkout form. Validation runs locally before any network
// call so field errors surface without a round trip.
type Request struct {
	Name          string `validate:"required"`
	Email         string `validate:"required,email"`
	Phone         string `validate:"omitempty,min=5"`
	Address       string `validate:"required"`
	City          string `validate:"required"`
	PostalCode    string `validate:"required"`
	PaymentMethod string `validate:"required,oneof=COD CARD"`
	Card          *Card  `validate:"-"`
}

// StockAdjustedError reports that order placement hit a stock conflict and
// the affected cart lines were reduced to the available quantities. The user
// should review the cart and retry; nothing was silently dropped.
type StockAdjustedError struct {
	// Adjusted maps product id to the quantity the line was clamped to.
	Adjusted map[string]int
}

func (e *StockAdjustedError) Error() string {
	return fmt.Sprintf("out of stock: %d cart lines adjusted, review and retry", len(e.Adjusted))
}

// Backend is the subset of the API client checkout depends on.
type Backend interface {
	CreateGuestOrder(ctx context.Context, req api.OrderRequest) (*api.OrderView, error)
	CreateMyOrder(ctx context.Context, req api.OrderRequest) (*api.OrderView, error)
}

// Auth is the authentication context checkout consults.
type Auth interface {
	Authenticated() bool
}

// Service places orders.
type Service struct {
	backend  Backend
	cart     *cart.Engine
	auth     Auth
	validate *validator.Validate
	lg       *zap.Logger
}

// New creates a checkout Service.
func New(backend Backend, engine *cart.Engine, auth Auth, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{
		backend:  backend,
		cart:     engine,
		auth:     auth,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		lg:       lg.Named("checkout"),
	}
}

// PlaceOrder validates the form, places the order against the effective
// cart, and resets the client cart on success. A stock conflict clamps the
// affected lines and returns *StockAdjustedError so the caller can prompt a
// retry.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*api.OrderView, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.Wrap(err, "validate checkout form")
	}
	if req.PaymentMethod == PaymentCard {
		if req.Card == nil {
			return nil, errors.New("card details required for card payment")
		}
		if err := s.validate.Struct(req.Card); err != nil {
			return nil, errors.Wrap(err, "validate card details")
		}
	}

	orderReq := api.OrderRequest{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		PostalCode:    req.PostalCode,
		PaymentMethod: req.PaymentMethod,
	}
	if req.Card != nil && req.PaymentMethod == PaymentCard {
		orderReq.Card = &api.CardDetails{
			Number: req.Card.Number,
			Expiry: req.Card.Expiry,
			CVV:    req.Card.CVV,
		}
	}

	var (
		order *api.OrderView
		err   error
	)
	if s.auth.Authenticated() {
		order, err = s.backend.CreateMyOrder(ctx, orderReq)
	} else {
		cartID, resolveErr := s.cart.ResolveEffectiveCartID(ctx)
		if resolveErr != nil {
			return nil, resolveErr
		}
		orderReq.CartID = cartID
		order, err = s.backend.CreateGuestOrder(ctx, orderReq)
	}
	if err != nil {
		if api.IsOutOfStock(err) {
			return nil, s.adjustStock(ctx, err)
		}
		return nil, err
	}

	// Order placed: the cart identity it consumed is gone. Reset and let
	// the next interaction provision a fresh guest cart.
	if resetErr := s.cart.Reset(); resetErr != nil {
		s.lg.Warn("reset cart after order", zap.Error(resetErr))
	}
	return order, nil
}

// adjustStock reduces each conflicting cart line to the backend-reported
// available quantity: never negative, never above what the cart already
// requested. The cart is refreshed afterward so the caller shows corrected
// quantities when prompting the retry.
func (s *Service) adjustStock(ctx context.Context, cause error) error {
	apiErr, _ := api.AsError(cause)
	adjusted := make(map[string]int, len(apiErr.Fields))

	current := map[string]int{}
	if cv := s.cart.View(); cv != nil {
		for _, it := range cv.Items {
			current[it.ProductID] = it.Quantity
		}
	}

	for productID, raw := range apiErr.Fields {
		available, err := strconv.Atoi(raw)
		if err != nil || available < 0 {
			available = 0
		}
		if have, ok := current[productID]; ok && available > have {
			available = have
		}
		if err := s.cart.UpdateItem(ctx, productID, available); err != nil {
			s.lg.Warn("clamp cart line to available stock",
				zap.String("product_id", productID),
				zap.Int("available", available),
				zap.Error(err))
		}
		adjusted[productID] = available
	}

	if err := s.cart.Refresh(ctx); err != nil {
		s.lg.Warn("refresh cart after stock adjustment", zap.Error(err))
	}
	return &StockAdjustedError{Adjusted: adjusted}
}
