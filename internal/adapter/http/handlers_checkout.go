package adapthttp

import (
	"errors"
	"net/http"

	"storefront/internal/app"
	"storefront/internal/domain"
)

type checkoutResponse struct {
	app.CheckoutView
	Draft  domain.DeliveryInfo `json:"draft"`
	Errors domain.FieldErrors  `json:"errors,omitempty"`
}

func checkoutBody(c *app.Checkout, errs domain.FieldErrors) checkoutResponse {
	return checkoutResponse{CheckoutView: c.View(), Draft: c.DeliveryDraft(), Errors: errs}
}

func (s *Server) handleCheckoutGet(w http.ResponseWriter, r *http.Request) {
	cs := app.MustClientSession(r.Context())
	writeJSON(w, http.StatusOK, checkoutBody(cs.Checkout, nil))
}

func (s *Server) handleCheckoutNext(w http.ResponseWriter, r *http.Request) {
	cs := app.MustClientSession(r.Context())
	var body struct {
		Delivery *domain.DeliveryInfo `json:"delivery"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	errs, err := cs.Checkout.Next(r.Context(), body.Delivery)
	s.writeTransition(w, cs.Checkout, errs, err)
}

func (s *Server) handleCheckoutDelivery(w http.ResponseWriter, r *http.Request) {
	cs := app.MustClientSession(r.Context())
	var form domain.DeliveryInfo
	if err := parseJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	errs, err := cs.Checkout.SubmitDelivery(r.Context(), form)
	s.writeTransition(w, cs.Checkout, errs, err)
}

func (s *Server) handleCheckoutPlaceOrder(w http.ResponseWriter, r *http.Request) {
	cs := app.MustClientSession(r.Context())
	number, err := cs.Checkout.PlaceOrder(r.Context())
	if errors.Is(err, app.ErrStepNotAllowed) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orderNumber": number,
		"checkout":    checkoutBody(cs.Checkout, nil),
	})
}

func (s *Server) handleCheckoutBack(w http.ResponseWriter, r *http.Request) {
	cs := app.MustClientSession(r.Context())
	cs.Checkout.Back()
	writeJSON(w, http.StatusOK, checkoutBody(cs.Checkout, nil))
}

func (s *Server) handleCheckoutStartOver(w http.ResponseWriter, r *http.Request) {
	cs := app.MustClientSession(r.Context())
	cs.Checkout.StartOver(r.Context())
	writeJSON(w, http.StatusOK, checkoutBody(cs.Checkout, nil))
}

func (s *Server) writeTransition(w http.ResponseWriter, c *app.Checkout, errs domain.FieldErrors, err error) {
	if errors.Is(err, app.ErrStepNotAllowed) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, checkoutBody(c, errs))
		return
	}
	writeJSON(w, http.StatusOK, checkoutBody(c, nil))
}
