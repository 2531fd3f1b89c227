// Package checkout runs one checkout attempt: local validation, the remote checkout call,
// and the branch on its outcome.
package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"shopfront/internal/cart"
	"shopfront/internal/domain"
	"shopfront/internal/payment"
)

var (
	ErrInFlight       = errors.New("checkout already in progress")
	ErrEmptyCart      = errors.New("cart is empty")
	ErrInvalidPayment = errors.New("payment details are invalid")
)

const (
	MsgDeclinedDefault = "Please try again."
	MsgErrored         = "We could not reach the payment service. Please try again."
)

type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Errored:
		return "errored"
	}
	return "unknown"
}

// Gateway is the order service as seen by the flow.
type Gateway interface {
	Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error)
}

type Result struct {
	State   State
	OrderID string
	Total   decimal.Decimal
	Message string
	Fields  payment.FieldErrors
	// Err is the transport error behind an Errored result.
	Err error
}

// Flow allows one submission at a time. After any outcome it rests in Idle so the
// customer can retry or start a new purchase.
type Flow struct {
	gw    Gateway
	mu    sync.Mutex
	state State
}

func NewFlow(gw Gateway) *Flow {
	return &Flow{gw: gw}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) begin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return false
	}
	f.state = Submitting
	return true
}

func (f *Flow) finish() {
	f.mu.Lock()
	f.state = Idle
	f.mu.Unlock()
}

// Submit formats and validates d, sends c to the order service and reports the outcome.
// On a paid response c is cleared; on every other outcome it is left untouched.
// There is no retry and no idempotency key: a resubmission is a new charge attempt.
func (f *Flow) Submit(ctx context.Context, c *cart.Cart, d payment.Details) (Result, error) {
	if !f.begin() {
		return Result{State: Submitting}, ErrInFlight
	}
	defer f.finish()

	if c.Len() == 0 {
		return Result{State: Idle}, ErrEmptyCart
	}
	d = payment.Format(d)
	if errs := payment.Validate(d); !errs.OK() {
		return Result{State: Idle, Fields: errs}, ErrInvalidPayment
	}

	resp, err := f.gw.Checkout(ctx, domain.CheckoutRequest{
		Items:   c.Lines(),
		Payment: d.Payload(),
	})
	if err != nil {
		return Result{State: Errored, Message: MsgErrored, Err: err}, nil
	}
	if !resp.Paid() {
		msg := resp.Message
		if msg == "" {
			msg = MsgDeclinedDefault
		}
		return Result{State: Failed, OrderID: resp.OrderID, Total: resp.Total, Message: msg}, nil
	}
	c.Clear()
	return Result{State: Succeeded, OrderID: resp.OrderID, Total: resp.Total}, nil
}

// Registry hands out one Flow per browser session. A flow lives only while some request
// holds it, so sessions that stop submitting leave nothing behind.
type Registry struct {
	gw    Gateway
	mu    sync.Mutex
	flows map[string]*heldFlow
}

type heldFlow struct {
	flow *Flow
	refs int
}

func NewRegistry(gw Gateway) *Registry {
	return &Registry{gw: gw, flows: map[string]*heldFlow{}}
}

// Acquire returns the session's flow. Concurrent holders share one flow, which is how a
// second submission sees ErrInFlight. Call release when the request is done.
func (r *Registry) Acquire(sessionID string) (f *Flow, release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.flows[sessionID]
	if !ok {
		h = &heldFlow{flow: NewFlow(r.gw)}
		r.flows[sessionID] = h
	}
	h.refs++
	var once sync.Once
	return h.flow, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			h.refs--
			if h.refs == 0 {
				delete(r.flows, sessionID)
			}
		})
	}
}

// Len is the number of sessions currently holding a flow.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}
