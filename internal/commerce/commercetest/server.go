// Package commercetest is an in-memory stand-in for the commerce API, for tests.
package commercetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shopfront/internal/domain"
)

// DeclinedCard is always refused with "Card declined".
const DeclinedCard = "4000000000000002"

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	products []domain.Product
	orders   map[string]*domain.OrderDetail
	order    []string
	requests []string

	// NextOrderID, when set, is used (once) for the next created order.
	NextOrderID string
	// FailNext makes the next N requests answer 500.
	FailNext int
	// AdminToken, when set, is required as a bearer token on /admin routes.
	AdminToken string
}

func New(t testing.TB, products ...domain.Product) *Server {
	t.Helper()
	s := &Server{products: products, orders: map[string]*domain.OrderDetail{}}
	r := chi.NewRouter()
	r.Use(s.record)
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", s.listProducts)
		r.Get("/products/{id}", s.getProduct)
		r.Post("/orders/checkout", s.checkout)
		r.Get("/orders/{id}", s.getOrder)
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get("/orders", s.adminList)
			r.Get("/orders/{id}", s.adminGet)
			r.Patch("/orders/{id}/status", s.adminStatus)
		})
	})
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the value for API_BASE_URL.
func (s *Server) BaseURL() string { return s.URL + "/api" }

// Requests lists "METHOD /path" for every request received, oldest first.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) Received(method, path string) bool {
	for _, r := range s.Requests() {
		if r == method+" "+path {
			return true
		}
	}
	return false
}

// AddOrder stores a pre-existing order.
func (s *Server) AddOrder(o domain.OrderDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := o
	s.orders[o.ID] = &cp
	s.order = append(s.order, o.ID)
}

func (s *Server) OrderStatus(id string) domain.OrderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		return o.Status
	}
	return ""
}

func (s *Server) Stock(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.findLocked(productID); p != nil {
		return p.Stock
	}
	return -1
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+strings.TrimPrefix(r.URL.Path, "/api"))
		fail := s.FailNext > 0
		if fail {
			s.FailNext--
		}
		s.mu.Unlock()
		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminToken != "" && r.Header.Get("Authorization") != "Bearer "+s.AdminToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) findLocked(id string) *domain.Product {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i]
		}
	}
	return nil
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]domain.Product(nil), s.products...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p := s.findLocked(chi.URLParam(r, "id"))
	var cp domain.Product
	if p != nil {
		cp = *p
	}
	s.mu.Unlock()
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid checkout request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	items := make([]domain.AdminOrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		p := s.findLocked(it.ProductID)
		if p == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Product not found"})
			return
		}
		if it.Quantity < 1 || it.Quantity > p.Stock {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Insufficient stock for " + p.Name})
			return
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, domain.AdminOrderItem{
			Product:  domain.ProductRef{ID: p.ID, Name: p.Name, Image: p.Image},
			Name:     p.Name,
			Quantity: it.Quantity,
			Price:    p.Price,
		})
	}

	id := s.NextOrderID
	s.NextOrderID = ""
	if id == "" {
		id = strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	}
	last4 := req.Payment.CardNumber
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	o := &domain.OrderDetail{
		ID:             id,
		Items:          items,
		Total:          total,
		Status:         domain.StatusPaid,
		PaymentDetails: domain.CardSummary{CardLast4: last4, CardHolder: req.Payment.CardHolder},
		CreatedAt:      time.Now().UTC(),
	}
	if req.Payment.CardNumber == DeclinedCard {
		o.Status = domain.StatusFailed
		s.orders[id] = o
		s.order = append(s.order, id)
		writeJSON(w, http.StatusPaymentRequired, domain.CheckoutResponse{
			OrderID: id, Status: domain.StatusFailed, Total: total, Message: "Card declined",
		})
		return
	}
	o.PaymentIntentID = "pi_" + id
	for _, it := range req.Items {
		s.findLocked(it.ProductID).Stock -= it.Quantity
	}
	s.orders[id] = o
	s.order = append(s.order, id)
	writeJSON(w, http.StatusOK, domain.CheckoutResponse{OrderID: id, Status: domain.StatusPaid, Total: total})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	o, ok := s.orders[chi.URLParam(r, "id")]
	var out domain.Order
	if ok {
		out = domain.Order{OrderID: o.ID, Status: o.Status, Total: o.Total, CreatedAt: o.CreatedAt, RefundedAt: o.RefundedAt}
		for _, it := range o.Items {
			out.Items = append(out.Items, domain.OrderItem{ProductID: it.Product.ID, Name: it.Name, Quantity: it.Quantity, Price: it.Price})
		}
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Order not found"})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) adminList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]domain.OrderSummary, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		o := s.orders[s.order[i]]
		out = append(out, domain.OrderSummary{ID: o.ID, Total: o.Total, Status: o.Status, CreatedAt: o.CreatedAt})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) adminGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	o, ok := s.orders[chi.URLParam(r, "id")]
	var cp domain.OrderDetail
	if ok {
		cp = *o
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Order not found"})
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

func (s *Server) adminStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid status"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Order not found"})
		return
	}
	if body.Status == domain.StatusRefunded {
		if o.Status != domain.StatusPaid {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Only paid orders can be refunded"})
			return
		}
		now := time.Now().UTC()
		o.RefundedAt = &now
	}
	o.Status = body.Status
	writeJSON(w, http.StatusOK, *o)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
