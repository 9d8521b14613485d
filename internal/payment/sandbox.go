package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/domain"
)

// SandboxWidget stands in for the hosted widget in test mode. StartCheckout reports
// page_loaded and then the configured final event from its own goroutine, the way the
// real widget calls back from its iframe.
type SandboxWidget struct {
	mu        sync.Mutex
	mode      domain.PaymentMode
	container string
	handlers  map[WidgetEvent]WidgetHandler
	final     WidgetEvent
	torndown  bool
	logger    *zap.Logger
}

// NewSandboxWidget creates a widget that finishes every checkout with final
func NewSandboxWidget(final WidgetEvent, logger *zap.Logger) *SandboxWidget {
	if logger == nil {
		logger = zap.NewNop()
	}
	if final == "" {
		final = EventPaymentComplete
	}
	return &SandboxWidget{handlers: make(map[WidgetEvent]WidgetHandler), final: final, logger: logger}
}

func (w *SandboxWidget) SetMode(mode domain.PaymentMode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mode = mode
}

func (w *SandboxWidget) SetContainer(containerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.container = containerID
}

func (w *SandboxWidget) SetCallback(event WidgetEvent, handler WidgetHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[event] = handler
}

func (w *SandboxWidget) StartCheckout(sessionToken string) error {
	w.mu.Lock()
	mode, container := w.mode, w.container
	w.torndown = false
	w.mu.Unlock()

	if mode != domain.PaymentModeTest {
		return fmt.Errorf("sandbox widget only runs in %s mode, got %q", domain.PaymentModeTest, mode)
	}
	w.logger.Info("Sandbox checkout started", zap.String("container", container))

	go func() {
		w.fire(EventPageLoaded, nil)
		w.fire(w.final, map[string]any{"session_token": sessionToken, "sandbox": true})
	}()
	return nil
}

func (w *SandboxWidget) Teardown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.torndown = true
}

// TornDown reports whether Teardown ran since the last StartCheckout
func (w *SandboxWidget) TornDown() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.torndown
}

func (w *SandboxWidget) fire(event WidgetEvent, data map[string]any) {
	w.mu.Lock()
	h := w.handlers[event]
	w.mu.Unlock()
	if h != nil {
		h(data)
	}
}

// SandboxSessions issues test-mode sessions without calling the payment service
type SandboxSessions struct{}

func (SandboxSessions) RequestSession(ctx context.Context, amount float64) (domain.PaymentSession, error) {
	if err := ctx.Err(); err != nil {
		return domain.PaymentSession{}, err
	}
	return domain.PaymentSession{SessionToken: "sandbox_" + uuid.NewString()[:8], Mode: domain.PaymentModeTest}, nil
}
