package app

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
)

// ErrStepNotAllowed indicates an operation was requested from a step that
// does not permit it.
var ErrStepNotAllowed = errors.New("checkout step does not allow this operation")

// CheckoutCart is what the checkout needs from a cart.
type CheckoutCart interface {
	Items() []domain.CartLineItem
	Count() int
	Subtotal() int
	Clear()
}

// Checkout drives one client's Cart → Delivery → Review → Complete flow and
// owns its OrderState. Every OrderState mutation is persisted before the
// method returns.
type Checkout struct {
	mu      sync.Mutex
	cart    CheckoutCart
	orders  *OrderStore
	numbers *OrderNumbers
	log     *zap.Logger
	metrics *metrics.Metrics

	step   domain.CheckoutStep
	state  domain.OrderState
	closed bool
}

// NewCheckout creates a checkout at the Cart step with the OrderState
// rehydrated from orders.
func NewCheckout(ctx context.Context, cart CheckoutCart, orders *OrderStore, numbers *OrderNumbers, log *zap.Logger, m *metrics.Metrics) *Checkout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checkout{
		cart:    cart,
		orders:  orders,
		numbers: numbers,
		log:     log,
		metrics: m,
		step:    domain.StepCart,
		state:   orders.Load(ctx),
	}
}

// CheckoutView is a consistent snapshot of a checkout for rendering.
type CheckoutView struct {
	Step       domain.CheckoutStep   `json:"step"`
	Progress   int                   `json:"progress"`
	Items      []domain.CartLineItem `json:"items"`
	Count      int                   `json:"count"`
	Subtotal   int                   `json:"subtotal"`
	Order      domain.OrderState     `json:"order"`
	CanProceed bool                  `json:"canProceed"`
}

// View returns a snapshot of the checkout.
func (c *Checkout) View() CheckoutView {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen()

	count := c.cart.Count()
	canProceed := true
	if c.step == domain.StepCart {
		canProceed = count > 0
	} else if c.step == domain.StepComplete {
		canProceed = false
	}
	return CheckoutView{
		Step:       c.step,
		Progress:   c.step.Progress(),
		Items:      c.cart.Items(),
		Count:      count,
		Subtotal:   c.cart.Subtotal(),
		Order:      c.state,
		CanProceed: canProceed,
	}
}

// Step returns the current step.
func (c *Checkout) Step() domain.CheckoutStep {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen()
	return c.step
}

// State returns a copy of the OrderState.
func (c *Checkout) State() domain.OrderState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen()
	return c.state
}

// DeliveryDraft returns the committed delivery info used to prefill the
// delivery form, with the default country when none was stored.
func (c *Checkout) DeliveryDraft() domain.DeliveryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen()

	draft := c.state.DeliveryInfo
	if draft.Country == "" {
		draft.Country = domain.DefaultCountry
	}
	return draft
}

// ProceedToDelivery moves Cart → Delivery. It is refused, leaving the step
// unchanged, when the cart is empty or the checkout is not at Cart.
func (c *Checkout) ProceedToDelivery() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen()
	return c.proceedToDeliveryLocked()
}

func (c *Checkout) proceedToDeliveryLocked() bool {
	if c.step != domain.StepCart || c.cart.Count() == 0 {
		c.metrics.Transition(c.step.String(), domain.StepDelivery.String(), "refused")
		return false
	}
	c.moveLocked(domain.StepDelivery)
	return true
}

// SubmitDelivery validates form and, if valid, commits it into the OrderState,
// persists it and moves Delivery → Review. On failure the field errors are
// returned and nothing changes. Called outside Delivery it returns
// ErrStepNotAllowed.
func (c *Checkout) SubmitDelivery(ctx context.Context, form domain.DeliveryInfo) (domain.FieldErrors, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen()
	return c.submitDeliveryLocked(ctx, form)
}

func (c *Checkout) submitDeliveryLocked(ctx context.Context, form domain.DeliveryInfo) (domain.FieldErrors, error) {
	if c.step != domain.StepDelivery {
		return nil, ErrStepNotAllowed
	}
	if errs := domain.ValidateDelivery(form); !errs.OK() {
		c.metrics.Transition(c.step.String(), domain.StepReview.String(), "invalid")
		return errs, nil
	}

	c.state.DeliveryInfo = form
	c.orders.Save(ctx, c.state)
	c.moveLocked(domain.StepReview)
	return domain.FieldErrors{}, nil
}

// PlaceOrder moves Review → Complete: it generates an order number, records
// it in the OrderState, persists, and only then clears the cart. Calling it
// again once Complete returns the number already issued.
func (c *Checkout) PlaceOrder(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen()
	return c.placeOrderLocked(ctx)
}

func (c *Checkout) placeOrderLocked(ctx context.Context) (string, error) {
	switch c.step {
	case domain.StepComplete:
		if c.state.OrderNumber != nil {
			return *c.state.OrderNumber, nil
		}
		return "", ErrStepNotAllowed
	case domain.StepReview:
	default:
		return "", ErrStepNotAllowed
	}

	number := c.numbers.Next()
	c.state.OrderPlaced = true
	c.state.OrderNumber = &number
	c.orders.Save(ctx, c.state)
	c.cart.Clear()

	c.metrics.OrderPlaced()
	c.log.Info("order placed", zap.String("order_number", number))
	c.moveLocked(domain.StepComplete)
	return number, nil
}

// Next performs whatever forward transition the current step allows. form is
// only used at Delivery; nil means the committed delivery info.
func (c *Checkout) Next(ctx context.Context, form *domain.DeliveryInfo) (domain.FieldErrors, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen()

	switch c.step {
	case domain.StepCart:
		c.proceedToDeliveryLocked()
		return nil, nil
	case domain.StepDelivery:
		f := c.state.DeliveryInfo
		if form != nil {
			f = *form
		}
		return c.submitDeliveryLocked(ctx, f)
	case domain.StepReview:
		_, err := c.placeOrderLocked(ctx)
		return nil, err
	default:
		return nil, nil
	}
}

// Back moves Delivery → Cart or Review → Delivery. Other steps are left
// unchanged and false is returned.
func (c *Checkout) Back() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen()

	switch c.step {
	case domain.StepDelivery:
		c.moveLocked(domain.StepCart)
	case domain.StepReview:
		c.moveLocked(domain.StepDelivery)
	default:
		return false
	}
	return true
}

// StartOver begins a new order lifecycle: the OrderState is reset to its
// defaults and persisted, and the step returns to Cart.
func (c *Checkout) StartOver(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen()

	c.state = domain.DefaultOrderState()
	c.orders.Save(ctx, c.state)
	c.step = domain.StepCart
}

// Close marks the checkout as torn down. Any later use panics.
func (c *Checkout) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Checkout) moveLocked(to domain.CheckoutStep) {
	c.metrics.Transition(c.step.String(), to.String(), "ok")
	c.log.Debug("checkout step", zap.Stringer("from", c.step), zap.Stringer("to", to))
	c.step = to
}

func (c *Checkout) mustBeOpen() {
	if c.closed {
		panic("app: checkout used after its client session was closed")
	}
}
