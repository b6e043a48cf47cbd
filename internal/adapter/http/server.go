package adapthttp

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"storefront/internal/app"
	"storefront/internal/domain"
	"storefront/internal/metrics"
)

// SSOProvider is the authorization-code flow of an external identity
// provider.
type SSOProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.MemberSession, error)
}

// Options wires a Server.
type Options struct {
	Storefront *app.Storefront
	Shop       *app.ShopService
	// Identity may be nil, which disables membership endpoints.
	Identity domain.IdentityProvider
	// SSO may be nil.
	SSO           SSOProvider
	Log           *zap.Logger
	Metrics       *metrics.Metrics
	WebDir        string
	SecureCookies bool
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	front         *app.Storefront
	shop          *app.ShopService
	identity      domain.IdentityProvider
	sso           SSOProvider
	log           *zap.Logger
	metrics       *metrics.Metrics
	webDir        string
	secureCookies bool
}

// New creates a Server wired to the given application services.
func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	shop := opts.Shop
	if shop == nil {
		shop = app.NewShopService()
	}
	return &Server{
		front:         opts.Storefront,
		shop:          shop,
		identity:      opts.Identity,
		sso:           opts.SSO,
		log:           log.Named("http"),
		metrics:       opts.Metrics,
		webDir:        opts.WebDir,
		secureCookies: opts.SecureCookies,
	}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	api.HandleFunc("GET /config", s.handleConfig)

	api.HandleFunc("GET /catalog", s.handleCatalog)
	api.HandleFunc("GET /stores", s.handleStores)
	api.HandleFunc("GET /stores/{slug}", s.handleStore)

	api.HandleFunc("GET /cart", s.handleCartGet)
	api.HandleFunc("POST /cart/items", s.handleCartAdd)
	api.HandleFunc("PUT /cart/items/{id}", s.handleCartSetQuantity)
	api.HandleFunc("DELETE /cart/items/{id}", s.handleCartRemove)

	api.HandleFunc("GET /checkout", s.handleCheckoutGet)
	api.HandleFunc("POST /checkout/next", s.handleCheckoutNext)
	api.HandleFunc("POST /checkout/back", s.handleCheckoutBack)
	api.HandleFunc("POST /checkout/delivery", s.handleCheckoutDelivery)
	api.HandleFunc("POST /checkout/place-order", s.handleCheckoutPlaceOrder)
	api.HandleFunc("POST /checkout/start-over", s.handleCheckoutStartOver)

	api.HandleFunc("GET /membership/session", s.handleSession)
	api.HandleFunc("POST /membership/signin", s.handleSignIn)
	api.HandleFunc("POST /membership/signup", s.handleSignUp)
	api.HandleFunc("POST /membership/signout", s.handleSignOut)
	api.HandleFunc("POST /membership/otp/send", s.handleSendOTP)
	api.HandleFunc("POST /membership/otp/verify", s.handleVerifyOTP)
	api.HandleFunc("GET /membership/sso/login", s.handleSSOLogin)
	api.HandleFunc("GET /membership/sso/callback", s.handleSSOCallback)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", s.clientMiddleware(api)))
	root.Handle("GET /metrics", s.metrics.Handler())
	if s.webDir != "" {
		root.Handle("/", spaFromDisk(s.webDir))
	}

	return s.loggingMiddleware(withNoCache(root))
}
