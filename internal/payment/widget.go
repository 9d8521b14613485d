package payment

import (
	"context"
	"sync"
	"time"

	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/pkg/errors"
)

// The vendor script registers the widget under either spelling depending on its version
const (
	WidgetName    = "CheckoutWidget"
	WidgetNameAlt = "checkoutWidget"
)

// Widget lookup defaults
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultWidgetTimeout  = 5 * time.Second
)

// WidgetEvent is a callback the widget fires
type WidgetEvent string

const (
	EventPageLoaded        WidgetEvent = "page_loaded"
	EventCancelTransaction WidgetEvent = "cancel_transaction"
	EventError             WidgetEvent = "error_event"
	EventPaymentComplete   WidgetEvent = "payment_complete"
)

// WidgetHandler receives the event payload the widget reports
type WidgetHandler func(data map[string]any)

// Widget is the hosted payment widget capability
type Widget interface {
	SetMode(mode domain.PaymentMode)
	SetContainer(containerID string)
	SetCallback(event WidgetEvent, handler WidgetHandler)
	StartCheckout(sessionToken string) error
	// Teardown removes the widget's overlay and stops its timers
	Teardown()
}

// Registry is where asynchronously loaded widgets announce themselves
type Registry interface {
	Lookup(name string) (Widget, bool)
}

// Globals is a concurrency-safe Registry the widget bootstrap registers into
type Globals struct {
	mu      sync.RWMutex
	widgets map[string]Widget
}

// NewGlobals creates an empty registry
func NewGlobals() *Globals {
	return &Globals{widgets: make(map[string]Widget)}
}

// Register publishes w under name
func (g *Globals) Register(name string, w Widget) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.widgets[name] = w
}

// Unregister removes name
func (g *Globals) Unregister(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.widgets, name)
}

// Lookup implements Registry
func (g *Globals) Lookup(name string) (Widget, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	w, ok := g.widgets[name]
	return w, ok
}

// Locate returns the widget under whichever name it registered
func Locate(reg Registry) (Widget, bool) {
	for _, name := range []string{WidgetName, WidgetNameAlt} {
		if w, ok := reg.Lookup(name); ok && w != nil {
			return w, true
		}
	}
	return nil, false
}

// WaitForWidget polls reg every interval until a widget is located or timeout elapses
func WaitForWidget(ctx context.Context, reg Registry, interval, timeout time.Duration) (Widget, error) {
	if w, ok := Locate(reg); ok {
		return w, nil
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultWidgetTimeout
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			if w, ok := Locate(reg); ok {
				return w, nil
			}
			return nil, &errors.ErrPaymentWidgetUnavailable{
				Names:   []string{WidgetName, WidgetNameAlt},
				Timeout: timeout.String(),
			}
		case <-ticker.C:
			if w, ok := Locate(reg); ok {
				return w, nil
			}
		}
	}
}
