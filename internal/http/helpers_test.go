package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"shopfront/internal/cart"
	"shopfront/internal/commerce"
	"shopfront/internal/commerce/commercetest"
	"shopfront/internal/config"
	"shopfront/internal/domain"
	"shopfront/internal/http/handlers"
	"shopfront/internal/pricing"
	"shopfront/internal/repos"
)

const (
	adminEmail    = "admin@shopfront.test"
	adminPassword = "Passw0rd!"
	adminToken    = "admin-token"
	goodCard      = "4242 4242 4242 4242"
)

type testEnv struct {
	app *fiber.App
	api *commercetest.Server
	db  *sqlx.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := commercetest.New(t,
		domain.Product{ID: "p1", Name: "Desk Lamp", Price: decimal.RequireFromString("45.00"), Stock: 3, Description: "Warm light"},
		domain.Product{ID: "p2", Name: "Notebook", Price: decimal.RequireFromString("5.00"), Stock: 200},
		domain.Product{ID: "p3", Name: "Poster", Price: decimal.RequireFromString("12.00"), Stock: 0},
	)
	api.AdminToken = adminToken

	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := repos.SeedAdmin(db, adminEmail, adminPassword); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	client, err := commerce.New(commerce.Config{BaseURL: api.BaseURL(), Timeout: 2 * time.Second, AdminToken: adminToken})
	if err != nil {
		t.Fatalf("commerce client: %v", err)
	}
	cfg := config.Config{Pricing: pricing.DefaultRules()}
	deps := handlers.NewDeps(db, cfg, cart.NewMemoryStore(), client)
	app := handlers.NewApp(handlers.AppOptions{
		TemplateDir: "../../web/templates",
		StaticDir:   "../../web/static",
	}, deps)
	return &testEnv{app: app, api: api, db: db}
}

// browser keeps cookies between requests the way a real client would.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func (e *testEnv) browser(t *testing.T) *browser {
	b := &browser{t: t, app: e.app, cookies: map[string]string{}}
	b.get("/login") // picks up the csrf cookie
	return b
}

func (b *browser) do(method, path string, form url.Values) *http.Response {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		if _, ok := form["csrf"]; !ok {
			form.Set("csrf", b.cookies["csrf_"])
		}
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range b.cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}
	resp, err := b.app.Test(req, -1)
	if err != nil {
		b.t.Fatalf("%s %s: %v", method, path, err)
	}
	for _, c := range resp.Cookies() {
		expired := c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(time.Now()))
		if c.Value == "" || expired {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c.Value
	}
	return resp
}

func (b *browser) get(path string) *http.Response { return b.do("GET", path, nil) }

func (b *browser) post(path string, form url.Values) *http.Response {
	if form == nil {
		form = url.Values{}
	}
	return b.do("POST", path, form)
}

func (b *browser) addToCart(productID string) {
	b.t.Helper()
	resp := b.post("/cart", url.Values{"productId": {productID}})
	if resp.StatusCode != http.StatusFound {
		b.t.Fatalf("add %s: expected 302, got %d", productID, resp.StatusCode)
	}
}

func (b *browser) login() {
	b.t.Helper()
	resp := b.post("/login", url.Values{"email": {adminEmail}, "password": {adminPassword}})
	if resp.StatusCode != http.StatusFound {
		b.t.Fatalf("login: expected 302, got %d", resp.StatusCode)
	}
}

type cartSummary struct {
	Count           int    `json:"count"`
	Badge           string `json:"badge"`
	Subtotal        string `json:"subtotal"`
	Shipping        string `json:"shipping"`
	Tax             string `json:"tax"`
	Total           string `json:"total"`
	FreeShippingGap string `json:"freeShippingGap"`
	Items           []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
		AtMax     bool   `json:"atMax"`
	} `json:"items"`
}

func (b *browser) cart() cartSummary {
	b.t.Helper()
	resp := b.get("/api/v1/cart")
	if resp.StatusCode != http.StatusOK {
		b.t.Fatalf("cart summary: %d", resp.StatusCode)
	}
	var s cartSummary
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		b.t.Fatalf("decode cart summary: %v", err)
	}
	return s
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

// captureLogs temporarily replaces the standard logger output and returns the raw text
// and the parsed JSON entries written by fn.
func captureLogs(t *testing.T, fn func()) (string, []logEntry) {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	raw := buf.String()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return raw, entries
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
