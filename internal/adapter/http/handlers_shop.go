package adapthttp

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/app"
	"storefront/internal/catalog"
	"storefront/internal/domain"
)

var errStoreNotFound = errors.New("store not found")

type cartResponse struct {
	Items    []domain.CartLineItem `json:"items"`
	Count    int                   `json:"count"`
	Subtotal int                   `json:"subtotal"`
}

func cartBody(c *domain.Cart) cartResponse {
	return cartResponse{Items: c.Items(), Count: c.Count(), Subtotal: c.Subtotal()}
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cs := app.MustClientSession(r.Context())
	q := r.URL.Query()
	mods := cs.Modifiers(boolQuery(r, "subscribe"))

	writeJSON(w, http.StatusOK, map[string]any{
		"categories": s.shop.Categories(),
		"items":      s.shop.List(catalog.ParseLocale(q.Get("locale")), q.Get("category"), mods),
		"member":     mods.MemberActive,
		"subscribe":  mods.SubscriptionActive,
	})
}

func (s *Server) handleStores(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var loc *catalog.Location
	if q.Get("city") != "" || q.Get("region") != "" {
		loc = &catalog.Location{City: q.Get("city"), Region: q.Get("region"), Country: q.Get("country")}
	}
	locale := catalog.ParseLocale(q.Get("locale"))
	nearest := catalog.NearestStores(loc)
	items := make([]catalog.LocalizedStore, 0, len(nearest))
	for _, st := range nearest {
		items = append(items, st.In(locale))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	st, ok := catalog.StoreBySlug(r.PathValue("slug"))
	if !ok {
		writeError(w, http.StatusNotFound, errStoreNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st.In(catalog.ParseLocale(r.URL.Query().Get("locale"))))
}

func (s *Server) handleCartGet(w http.ResponseWriter, r *http.Request) {
	cs := app.MustClientSession(r.Context())
	writeJSON(w, http.StatusOK, cartBody(cs.Cart))
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	cs := app.MustClientSession(r.Context())
	var body struct {
		ProductID int    `json:"productId"`
		Quantity  int    `json:"quantity"`
		Subscribe bool   `json:"subscribe"`
		Locale    string `json:"locale"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	_, err := s.shop.AddToCart(cs.Cart, body.ProductID, body.Quantity, catalog.ParseLocale(body.Locale), cs.Modifiers(body.Subscribe))
	if errors.Is(err, app.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, cartBody(cs.Cart))
}

func (s *Server) handleCartSetQuantity(w http.ResponseWriter, r *http.Request) {
	cs := app.MustClientSession(r.Context())
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid item id"))
		return
	}
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cs.Cart.SetQuantity(id, body.Quantity)
	writeJSON(w, http.StatusOK, cartBody(cs.Cart))
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	cs := app.MustClientSession(r.Context())
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid item id"))
		return
	}
	cs.Cart.Remove(id)
	writeJSON(w, http.StatusOK, cartBody(cs.Cart))
}
