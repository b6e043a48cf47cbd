package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	adapthttp "storefront/internal/adapter/http"
	"storefront/internal/adapter/memory"
	"storefront/internal/app"
	"storefront/internal/domain"
	"storefront/internal/metrics"
)

// ---------------------------------------------------------------------------
// Test-server helper
// ---------------------------------------------------------------------------

type testEnv struct {
	ts    *httptest.Server
	front *app.Storefront
	auth  *app.MemberAuth
}

// newTestServer wires a memory-backed storefront with the built-in identity
// provider. mutate may adjust the options before the server is built.
func newTestServer(t *testing.T, mutate func(*adapthttp.Options)) *testEnv {
	t.Helper()

	db := memory.New()
	m := metrics.New(prometheus.NewRegistry())
	auth := app.NewMemberAuth(db, db.NewSessionRepo(), db, app.LogOTPSender{}, app.AuthConfig{}, nil)
	front := app.NewStorefront(db, app.NewPresence(auth, nil, m), nil, nil, m, time.Hour)

	webDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(webDir, "index.html"), []byte("<html></html>"), 0o600); err != nil {
		t.Fatal(err)
	}

	opts := adapthttp.Options{
		Storefront: front,
		Shop:       app.NewShopService(),
		Identity:   auth,
		Metrics:    m,
		WebDir:     webDir,
	}
	if mutate != nil {
		mutate(&opts)
	}
	ts := httptest.NewServer(adapthttp.New(opts).Handler())
	t.Cleanup(func() {
		ts.Close()
		front.Close()
	})
	return &testEnv{ts: ts, front: front, auth: auth}
}

// newClient returns a client with its own cookie jar, i.e. its own storefront
// client session.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar, CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func do(t *testing.T, c *http.Client, method, target string, payload any) (int, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var m map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
			t.Fatalf("failed to decode response body: %v", err)
		}
	}
	return resp.StatusCode, m
}

func cookieValue(c *http.Client, rawURL, name string) string {
	u, _ := url.Parse(rawURL)
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	env := newTestServer(t, nil)
	c := newClient(t)

	status, body := do(t, c, http.MethodGet, env.ts.URL+"/api/health", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body["ok"])
	}
	if env.front.Len() != 0 {
		t.Fatalf("health checks should not create client sessions, got %d", env.front.Len())
	}
}

func TestConfigEndpoint(t *testing.T) {
	env := newTestServer(t, nil)

	status, body := do(t, newClient(t), http.MethodGet, env.ts.URL+"/api/config", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["membership_enabled"] != true || body["sso_enabled"] != false {
		t.Fatalf("unexpected config %v", body)
	}
}

func TestClientCookieIssuedOnce(t *testing.T) {
	env := newTestServer(t, nil)
	c := newClient(t)

	do(t, c, http.MethodGet, env.ts.URL+"/api/cart", nil)
	first := cookieValue(c, env.ts.URL, "client_id")
	if first == "" {
		t.Fatal("expected client_id cookie")
	}
	do(t, c, http.MethodGet, env.ts.URL+"/api/cart", nil)
	if got := cookieValue(c, env.ts.URL, "client_id"); got != first {
		t.Fatalf("client id changed from %s to %s", first, got)
	}
	if env.front.Len() != 1 {
		t.Fatalf("expected 1 client session, got %d", env.front.Len())
	}
}

func TestCatalog(t *testing.T) {
	env := newTestServer(t, nil)
	c := newClient(t)

	tests := []struct {
		name      string
		query     string
		wantItems int
		check     func(t *testing.T, item map[string]any)
	}{
		{
			name:      "all in english",
			query:     "",
			wantItems: 5,
			check: func(t *testing.T, item map[string]any) {
				price := item["price"].(map[string]any)
				if price["discounted"] != false {
					t.Errorf("expected undiscounted price, got %v", price)
				}
			},
		},
		{
			name:      "drip in japanese with subscription",
			query:     "?locale=ja&category=drip&subscribe=true",
			wantItems: 2,
			check: func(t *testing.T, item map[string]any) {
				if !strings.Contains(item["name"].(string), "ドリップ") {
					t.Errorf("expected japanese name, got %v", item["name"])
				}
				price := item["price"].(map[string]any)
				if price["price"].(float64) >= price["original"].(float64) {
					t.Errorf("expected subscription discount, got %v", price)
				}
			},
		},
		{
			name:      "unknown category",
			query:     "?category=tea",
			wantItems: 0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, c, http.MethodGet, env.ts.URL+"/api/catalog"+tc.query, nil)
			if status != http.StatusOK {
				t.Fatalf("expected 200, got %d", status)
			}
			items := body["items"].([]any)
			if len(items) != tc.wantItems {
				t.Fatalf("expected %d items, got %d", tc.wantItems, len(items))
			}
			if tc.check != nil {
				for _, it := range items {
					tc.check(t, it.(map[string]any))
				}
			}
		})
	}
}

func TestStoresNearestFirst(t *testing.T) {
	env := newTestServer(t, nil)

	status, body := do(t, newClient(t), http.MethodGet, env.ts.URL+"/api/stores?city=Fukuoka", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	items := body["items"].([]any)
	if slug := items[0].(map[string]any)["slug"]; slug != "fukuoka-tenjin" {
		t.Fatalf("expected fukuoka store first, got %v", slug)
	}
}

func TestCartFlow(t *testing.T) {
	env := newTestServer(t, nil)
	c := newClient(t)
	base := env.ts.URL + "/api/cart"

	status, body := do(t, c, http.MethodPost, base+"/items", map[string]any{"productId": 1})
	if status != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("add: %d %v", status, body)
	}
	_, body = do(t, c, http.MethodPost, base+"/items", map[string]any{"productId": 1, "quantity": 2})
	if body["count"].(float64) != 3 || len(body["items"].([]any)) != 1 {
		t.Fatalf("expected merged line with qty 3, got %v", body)
	}
	if body["subtotal"].(float64) != 3*2480 {
		t.Fatalf("unexpected subtotal %v", body["subtotal"])
	}

	_, body = do(t, c, http.MethodPost, base+"/items", map[string]any{"productId": 4, "subscribe": true})
	if body["subtotal"].(float64) != 3*2480+315 {
		t.Fatalf("expected subscription price for product 4, got subtotal %v", body["subtotal"])
	}

	status, _ = do(t, c, http.MethodPost, base+"/items", map[string]any{"productId": 99})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", status)
	}
	status, _ = do(t, c, http.MethodPost, base+"/items", map[string]any{"productId": 1, "colour": "red"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", status)
	}

	_, body = do(t, c, http.MethodPut, base+"/items/1", map[string]any{"quantity": 1})
	if body["count"].(float64) != 2 {
		t.Fatalf("expected count 2 after update, got %v", body["count"])
	}
	_, body = do(t, c, http.MethodPut, base+"/items/4", map[string]any{"quantity": 0})
	if body["count"].(float64) != 1 {
		t.Fatalf("expected line removed at quantity 0, got %v", body)
	}
	status, _ = do(t, c, http.MethodPut, base+"/items/abc", map[string]any{"quantity": 1})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", status)
	}

	_, body = do(t, c, http.MethodDelete, base+"/items/1", nil)
	if body["count"].(float64) != 0 || body["subtotal"].(float64) != 0 {
		t.Fatalf("expected empty cart, got %v", body)
	}
}

func TestCartsAreIsolatedPerClient(t *testing.T) {
	env := newTestServer(t, nil)
	alice, bob := newClient(t), newClient(t)

	do(t, alice, http.MethodPost, env.ts.URL+"/api/cart/items", map[string]any{"productId": 2})
	_, body := do(t, bob, http.MethodGet, env.ts.URL+"/api/cart", nil)
	if body["count"].(float64) != 0 {
		t.Fatalf("bob should not see alice's cart, got %v", body)
	}
}

var orderNumberPattern = regexp.MustCompile(`^UCS-\d+-[A-Z0-9]+$`)

func TestCheckoutEndToEnd(t *testing.T) {
	env := newTestServer(t, nil)
	c := newClient(t)
	api := env.ts.URL + "/api"

	// An empty cart cannot leave the cart step.
	status, body := do(t, c, http.MethodPost, api+"/checkout/next", nil)
	if status != http.StatusOK || body["step"] != "cart" || body["canProceed"] != false {
		t.Fatalf("expected to stay at cart, got %d %v", status, body)
	}

	do(t, c, http.MethodPost, api+"/cart/items", map[string]any{"productId": 1, "quantity": 2})
	_, body = do(t, c, http.MethodPost, api+"/checkout/next", nil)
	if body["step"] != "delivery" || body["progress"].(float64) != 33 {
		t.Fatalf("expected delivery step, got %v", body)
	}
	if draft := body["draft"].(map[string]any); draft["country"] != "Japan" {
		t.Fatalf("expected default country in draft, got %v", draft)
	}

	form := map[string]any{
		"fullName":     "A",
		"postalCode":   "123-4567",
		"prefecture":   "Tokyo",
		"city":         "Shibuya",
		"addressLine1": "",
		"country":      "Japan",
	}
	status, body = do(t, c, http.MethodPost, api+"/checkout/delivery", form)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", status)
	}
	if _, ok := body["errors"].(map[string]any)["addressLine1"]; !ok || body["step"] != "delivery" {
		t.Fatalf("expected addressLine1 error at delivery, got %v", body)
	}

	form["addressLine1"] = "1-1-1"
	status, body = do(t, c, http.MethodPost, api+"/checkout/next", map[string]any{"delivery": form})
	if status != http.StatusOK || body["step"] != "review" {
		t.Fatalf("expected review, got %d %v", status, body)
	}

	status, body = do(t, c, http.MethodPost, api+"/checkout/place-order", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", status, body)
	}
	number, _ := body["orderNumber"].(string)
	if !orderNumberPattern.MatchString(number) {
		t.Fatalf("unexpected order number %q", number)
	}
	checkout := body["checkout"].(map[string]any)
	if checkout["step"] != "complete" || checkout["count"].(float64) != 0 {
		t.Fatalf("expected complete with empty cart, got %v", checkout)
	}
	order := checkout["order"].(map[string]any)
	if order["orderPlaced"] != true || order["orderNumber"] != number {
		t.Fatalf("unexpected order state %v", order)
	}

	_, body = do(t, c, http.MethodPost, api+"/checkout/place-order", nil)
	if body["orderNumber"] != number {
		t.Fatalf("expected the same order number on retry, got %v", body["orderNumber"])
	}

	_, body = do(t, c, http.MethodPost, api+"/checkout/start-over", nil)
	if body["step"] != "cart" || body["order"].(map[string]any)["orderPlaced"] != false {
		t.Fatalf("expected a fresh order, got %v", body)
	}
}

func TestCheckoutOutOfStep(t *testing.T) {
	env := newTestServer(t, nil)
	c := newClient(t)

	status, _ := do(t, c, http.MethodPost, env.ts.URL+"/api/checkout/place-order", nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}
	status, _ = do(t, c, http.MethodPost, env.ts.URL+"/api/checkout/delivery", map[string]any{"fullName": "A"})
	if status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}
	status, body := do(t, c, http.MethodPost, env.ts.URL+"/api/checkout/back", nil)
	if status != http.StatusOK || body["step"] != "cart" {
		t.Fatalf("back from cart should be a no-op, got %d %v", status, body)
	}
}

func TestMembershipFlow(t *testing.T) {
	env := newTestServer(t, nil)
	c := newClient(t)
	api := env.ts.URL + "/api/membership"

	_, body := do(t, c, http.MethodGet, api+"/session", nil)
	if body["active"] != false {
		t.Fatalf("expected no session, got %v", body)
	}

	creds := map[string]any{"email": "member@example.com", "password": "correct-horse"}
	status, body := do(t, c, http.MethodPost, api+"/signup", creds)
	if status != http.StatusOK {
		t.Fatalf("signup: %d %v", status, body)
	}
	if cookieValue(c, env.ts.URL, "member_session") == "" {
		t.Fatal("expected member_session cookie")
	}
	if session := body["session"].(map[string]any); session["subject"] != "member@example.com" {
		t.Fatalf("unexpected session %v", session)
	}

	_, body = do(t, c, http.MethodGet, api+"/session", nil)
	if body["active"] != true {
		t.Fatalf("expected active session, got %v", body)
	}
	_, body = do(t, c, http.MethodGet, env.ts.URL+"/api/catalog", nil)
	if body["member"] != true {
		t.Fatalf("expected member pricing badge, got %v", body["member"])
	}

	status, _ = do(t, newClient(t), http.MethodPost, api+"/signup", creds)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate signup, got %d", status)
	}

	status, _ = do(t, c, http.MethodPost, api+"/signout", nil)
	if status != http.StatusOK {
		t.Fatalf("signout: %d", status)
	}
	_, body = do(t, c, http.MethodGet, api+"/session", nil)
	if body["active"] != false {
		t.Fatalf("expected no session after signout, got %v", body)
	}

	status, _ = do(t, c, http.MethodPost, api+"/signin", map[string]any{"email": "member@example.com", "password": "wrong"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	status, _ = do(t, c, http.MethodPost, api+"/signin", creds)
	if status != http.StatusOK {
		t.Fatalf("signin: %d", status)
	}
}

func TestMembershipSignOutElsewhereUpdatesPresence(t *testing.T) {
	env := newTestServer(t, nil)
	c := newClient(t)

	_, body := do(t, c, http.MethodPost, env.ts.URL+"/api/membership/signup",
		map[string]any{"email": "b@example.com", "password": "longenough"})
	token := cookieValue(c, env.ts.URL, "member_session")
	if token == "" {
		t.Fatalf("expected member cookie, got %v", body)
	}

	// Ending the session at the provider is observed by the client session.
	if err := env.auth.SignOut(context.Background(), token); err != nil {
		t.Fatal(err)
	}
	_, body = do(t, c, http.MethodGet, env.ts.URL+"/api/catalog", nil)
	if body["member"] != false {
		t.Fatalf("expected member badge cleared, got %v", body["member"])
	}
}

func TestMembershipOTPBadPhone(t *testing.T) {
	env := newTestServer(t, nil)

	status, _ := do(t, newClient(t), http.MethodPost, env.ts.URL+"/api/membership/otp/send", map[string]any{"phone": "none"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	status, _ = do(t, newClient(t), http.MethodPost, env.ts.URL+"/api/membership/otp/verify", map[string]any{"phone": "09012345678", "code": "123456"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a pending code, got %d", status)
	}
}

func TestMembershipDisabled(t *testing.T) {
	env := newTestServer(t, func(o *adapthttp.Options) { o.Identity = nil })
	c := newClient(t)

	status, _ := do(t, c, http.MethodPost, env.ts.URL+"/api/membership/signin", map[string]any{"email": "a@b.c", "password": "x"})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	_, body := do(t, c, http.MethodGet, env.ts.URL+"/api/membership/session", nil)
	if body["active"] != false {
		t.Fatalf("expected inactive, got %v", body)
	}
}

type fakeSSO struct {
	exchangeFn func(ctx context.Context, code string) (*domain.MemberSession, error)
}

func (f *fakeSSO) AuthCodeURL(state string) string {
	return "https://id.example.com/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeSSO) Exchange(ctx context.Context, code string) (*domain.MemberSession, error) {
	return f.exchangeFn(ctx, code)
}

func TestSSOFlow(t *testing.T) {
	sso := &fakeSSO{exchangeFn: func(_ context.Context, code string) (*domain.MemberSession, error) {
		if code != "good" {
			return nil, errors.New("bad code")
		}
		return &domain.MemberSession{Token: "sso-token", MemberID: 1, ExpiresAt: time.Now().Add(time.Hour)}, nil
	}}
	env := newTestServer(t, func(o *adapthttp.Options) {
		o.Identity = nil
		o.SSO = sso
	})
	c := newClient(t)

	resp, err := c.Get(env.ts.URL + "/api/membership/sso/login")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	loc, _ := url.Parse(resp.Header.Get("Location"))
	state := loc.Query().Get("state")
	if state == "" || cookieValue(c, env.ts.URL, "oauth_state") != state {
		t.Fatalf("state cookie does not match redirect state %q", state)
	}

	status, _ := do(t, c, http.MethodGet, env.ts.URL+"/api/membership/sso/callback?code=good&state=forged", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for forged state, got %d", status)
	}

	resp, err = c.Get(env.ts.URL + "/api/membership/sso/callback?code=good&state=" + url.QueryEscape(state))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect after callback, got %d", resp.StatusCode)
	}
	if cookieValue(c, env.ts.URL, "member_session") != "sso-token" {
		t.Fatal("expected member cookie from sso session")
	}
	_, body := do(t, c, http.MethodGet, env.ts.URL+"/api/catalog", nil)
	if body["member"] != true {
		t.Fatalf("expected member badge after sso, got %v", body["member"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestServer(t, nil)
	c := newClient(t)
	do(t, c, http.MethodGet, env.ts.URL+"/api/cart", nil)

	resp, err := c.Get(env.ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), "storefront_http_requests_total") {
		t.Fatalf("expected request counter in metrics output, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(b), "storefront_active_clients 1") {
		t.Fatal("expected one active client")
	}
}

func TestSPAFallback(t *testing.T) {
	env := newTestServer(t, nil)

	resp, err := http.Get(env.ts.URL + "/checkout/review")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), "<html>") {
		t.Fatalf("expected index.html, got %d %s", resp.StatusCode, b)
	}
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store, got %q", resp.Header.Get("Cache-Control"))
	}
}

func TestStoreDetail(t *testing.T) {
	env := newTestServer(t, nil)
	c := newClient(t)

	status, body := do(t, c, http.MethodGet, env.ts.URL+"/api/stores/kyoto-higashiyama?locale=ja", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["slug"] != "kyoto-higashiyama" || body["name"] != "ウガンダコーヒーショップ - 京都東山" {
		t.Fatalf("unexpected store %v", body)
	}

	_, body = do(t, c, http.MethodGet, env.ts.URL+"/api/stores/kyoto-higashiyama", nil)
	if body["hours"] != "Mon-Sun: 8:00 AM - 6:00 PM" {
		t.Fatalf("expected english hours by default, got %v", body["hours"])
	}

	status, body = do(t, c, http.MethodGet, env.ts.URL+"/api/stores/atlantis", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown store, got %d", status)
	}
	if body["error"] != "store not found" {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestStoresLocalized(t *testing.T) {
	env := newTestServer(t, nil)

	_, body := do(t, newClient(t), http.MethodGet, env.ts.URL+"/api/stores?city=Osaka&locale=ja", nil)
	first := body["items"].([]any)[0].(map[string]any)
	if first["slug"] != "osaka-umeda" {
		t.Fatalf("expected osaka store first, got %v", first["slug"])
	}
	if first["name"] != "ウガンダコーヒーショップ - 大阪梅田" {
		t.Fatalf("expected japanese name, got %v", first["name"])
	}
	if addr, _ := first["address"].(string); !strings.Contains(addr, "大阪府") {
		t.Fatalf("expected japanese address, got %v", first["address"])
	}
}

func TestMemberBadgeDropsWhenSessionExpires(t *testing.T) {
	env := newTestServer(t, func(o *adapthttp.Options) {
		db := memory.New()
		auth := app.NewMemberAuth(db, db.NewSessionRepo(), db, app.LogOTPSender{}, app.AuthConfig{SessionTTL: time.Nanosecond}, nil)
		front := app.NewStorefront(db, app.NewPresence(auth, nil, nil), nil, nil, nil, time.Hour)
		t.Cleanup(front.Close)
		o.Identity = auth
		o.Storefront = front
	})
	c := newClient(t)

	status, _ := do(t, c, http.MethodPost, env.ts.URL+"/api/membership/signup",
		map[string]any{"email": "brief@example.com", "password": "correct-horse"})
	if status != http.StatusOK {
		t.Fatalf("signup: %d", status)
	}
	if cookieValue(c, env.ts.URL, "member_session") == "" {
		t.Fatal("expected member_session cookie")
	}

	time.Sleep(time.Millisecond)
	_, body := do(t, c, http.MethodGet, env.ts.URL+"/api/catalog", nil)
	if body["member"] != false {
		t.Fatalf("expected member badge to drop after expiry, got %v", body["member"])
	}
}

func TestOAuthStateCookieFollowsSecureSetting(t *testing.T) {
	env := newTestServer(t, func(o *adapthttp.Options) {
		o.SSO = &fakeSSO{}
		o.SecureCookies = true
	})
	c := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := c.Get(env.ts.URL + "/api/membership/sso/login")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close() //nolint:errcheck

	var state *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "oauth_state" {
			state = ck
		}
	}
	if state == nil {
		t.Fatal("expected oauth_state cookie")
	}
	if !state.Secure {
		t.Error("expected oauth_state cookie to be Secure when secure cookies are configured")
	}
}
