package domain

import (
	"context"
	"fmt"
)

// OrderStateKey is the storage key under which a client's order state lives.
const OrderStateKey = "uganda-coffee-order"

// OrderState is the persisted part of a checkout.
type OrderState struct {
	DeliveryInfo DeliveryInfo `json:"deliveryInfo"`
	OrderPlaced  bool         `json:"orderPlaced"`
	OrderNumber  *string      `json:"orderNumber"`
}

// DefaultOrderState returns the state used on first load and whenever stored
// state cannot be read.
func DefaultOrderState() OrderState {
	return OrderState{DeliveryInfo: DefaultDeliveryInfo()}
}

// CheckoutStep is one stage of the Cart → Delivery → Review → Complete
// sequence. Steps are totally ordered.
type CheckoutStep int

// Checkout steps in order.
const (
	StepCart CheckoutStep = iota
	StepDelivery
	StepReview
	StepComplete
)

var stepNames = [...]string{"cart", "delivery", "review", "complete"}

func (s CheckoutStep) String() string {
	if s < StepCart || s > StepComplete {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// Progress is the percentage of the progress bar shown for the step.
func (s CheckoutStep) Progress() int {
	switch s {
	case StepDelivery:
		return 33
	case StepReview:
		return 66
	case StepComplete:
		return 100
	default:
		return 0
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s CheckoutStep) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *CheckoutStep) UnmarshalText(b []byte) error {
	for i, name := range stepNames {
		if name == string(b) {
			*s = CheckoutStep(i)
			return nil
		}
	}
	return fmt.Errorf("unknown checkout step %q", string(b))
}

// KeyValueStore is the port for durable client storage. Get reports false
// when the key is absent.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}
