// Package checkout runs one order submission end to end: validation, payment session,
// hosted payment widget, dispatch and the manual-recovery fallback.
package checkout

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/dispatch"
	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/internal/payment"
	"github.com/expresscouriers/checkout/internal/repository"
	"github.com/expresscouriers/checkout/internal/retry"
	"github.com/expresscouriers/checkout/pkg/errors"
)

// widget callbacks are buffered here; anything beyond is dropped with a warning
const widgetEventBuffer = 8

// Options tune timings and the manual-recovery contact
type Options struct {
	WidgetPollInterval  time.Duration
	WidgetTimeout   time.Duration
	ContainerID    string
	SupportPhone   string
	SupportEmail   string
	SessionPolicy  retry.Policy
	DispatchPolicy retry.Policy
	// Clock stamps recovery keys and records; defaults to time.Now
	Clock func() time.Time
}

// DefaultOptions returns production timings
func DefaultOptions() Options {
	return Options{
		WidgetPollInterval:  payment.DefaultPollInterval,
		WidgetTimeout:   payment.DefaultWidgetTimeout,
		ContainerID:    "payment-widget",
		SessionPolicy:  retry.PaymentSessionPolicy(),
		DispatchPolicy: retry.DispatchPolicy(),
	}
}

// Dependencies are the collaborators a Coordinator drives. Events, Notifier, Alerter and
// Retrier are optional.
type Dependencies struct {
	Sessions   payment.SessionProvider
	Widgets    payment.Registry
	Dispatcher dispatch.Dispatcher
	Store      repository.SessionStore
	Events     repository.SubmissionEventRepository
	Cities     domain.CityTable
	Notifier   Notifier
	Alerter    Alerter
	Retrier    *retry.Retrier
}

// Coordinator allows one submission at a time
type Coordinator struct {
	deps      Dependencies
	opts      Options
	validator *Validator
	logger    *zap.Logger

	mu     sync.Mutex
	state  domain.SubmissionState
	cancel chan struct{}
}

// NewCoordinator creates an idle coordinator
func NewCoordinator(deps Dependencies, opts Options, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = NopNotifier{}
	}
	if deps.Retrier == nil {
		deps.Retrier = retry.New(logger)
	}
	defaults := DefaultOptions()
	if opts.WidgetPollInterval <= 0 {
		opts.WidgetPollInterval = defaults.WidgetPollInterval
	}
	if opts.WidgetTimeout <= 0 {
		opts.WidgetTimeout = defaults.WidgetTimeout
	}
	if opts.ContainerID == "" {
		opts.ContainerID = defaults.ContainerID
	}
	if opts.SessionPolicy.MaxAttempts == 0 {
		opts.SessionPolicy = defaults.SessionPolicy
	}
	if opts.DispatchPolicy.MaxAttempts == 0 {
		opts.DispatchPolicy = defaults.DispatchPolicy
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Coordinator{
		deps:      deps,
		opts:      opts,
		validator: NewValidator(),
		logger:    logger,
		state:     domain.SubmissionIdle,
	}
}

// State returns the current submission state
func (c *Coordinator) State() domain.SubmissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cancel abandons the payment widget of the in-flight submission. It reports false when
// no submission is waiting on the widget.
func (c *Coordinator) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.SubmissionAwaitingPaymentWidget || c.cancel == nil {
		return false
	}
	select {
	case c.cancel <- struct{}{}:
		return true
	default:
		return false
	}
}

type submission struct {
	id     uuid.UUID
	draft  domain.OrderDraft
	cancel <-chan struct{}
}

// Submit runs the checkout for draft on the caller's goroutine. The only error it returns
// is *errors.ErrSubmissionInProgress; every other result is a SubmissionOutcome.
func (c *Coordinator) Submit(ctx context.Context, draft domain.OrderDraft) (domain.SubmissionOutcome, error) {
	sub, err := c.begin(draft)
	if err != nil {
		return domain.SubmissionOutcome{}, err
	}
	defer c.finish(ctx, sub)

	c.logger.Info("Checkout submitted",
		zap.String("submission_id", sub.id.String()),
		zap.String("city", draft.CityID),
	)
	c.record(ctx, sub, string(domain.SubmissionValidating), nil)

	if outcome, ok := c.validate(ctx, sub); !ok {
		return outcome, nil
	}

	session, outcome, ok := c.requestSession(ctx, sub)
	if !ok {
		return outcome, nil
	}

	if err := c.persistPending(ctx, sub.draft); err != nil {
		c.deps.Notifier.HideLoading()
		c.transition(ctx, sub, domain.SubmissionFailed, map[string]interface{}{"error": err.Error()})
		return domain.SubmissionOutcome{
			Kind:    domain.OutcomePaymentFailed,
			Message: "We couldn't prepare your order for payment. You have not been charged. Please try again.",
			Err:     err,
		}, nil
	}

	if outcome, ok := c.awaitPayment(ctx, sub, session); !ok {
		return outcome, nil
	}

	return c.dispatch(ctx, sub), nil
}

func (c *Coordinator) begin(draft domain.OrderDraft) (*submission, error) {
	c.mu.Lock()
	if c.state != domain.SubmissionIdle {
		state := c.state
		c.mu.Unlock()
		return nil, &errors.ErrSubmissionInProgress{State: state}
	}
	c.state = domain.SubmissionValidating
	c.cancel = make(chan struct{}, 1)
	sub := &submission{id: uuid.New(), draft: draft, cancel: c.cancel}
	c.mu.Unlock()

	c.deps.Notifier.StateChanged(domain.SubmissionValidating)
	return sub, nil
}

// finish returns the coordinator to Idle so the form is actionable again
func (c *Coordinator) finish(ctx context.Context, sub *submission) {
	c.mu.Lock()
	from := c.state
	if from != domain.SubmissionIdle && !from.CanTransitionTo(domain.SubmissionIdle) {
		c.logger.Error("Submission ended in a non-terminal state",
			zap.String("submission_id", sub.id.String()),
			zap.String("state", string(from)),
		)
	}
	c.state = domain.SubmissionIdle
	c.cancel = nil
	c.mu.Unlock()

	if from != domain.SubmissionIdle {
		c.deps.Notifier.StateChanged(domain.SubmissionIdle)
		c.record(ctx, sub, string(domain.SubmissionIdle), nil)
	}
}

func (c *Coordinator) transition(ctx context.Context, sub *submission, next domain.SubmissionState, data map[string]interface{}) {
	c.mu.Lock()
	from := c.state
	if !from.CanTransitionTo(next) {
		c.mu.Unlock()
		c.logger.Error("Rejected submission state change",
			zap.String("submission_id", sub.id.String()),
			zap.Error(&errors.ErrInvalidStateTransition{From: from, To: next}),
		)
		return
	}
	c.state = next
	c.mu.Unlock()

	c.deps.Notifier.StateChanged(next)
	c.record(ctx, sub, string(next), data)
}

func (c *Coordinator) record(ctx context.Context, sub *submission, eventType string, data map[string]interface{}) {
	if c.deps.Events == nil {
		return
	}
	event := &domain.SubmissionEvent{
		SubmissionID: sub.id,
		EventType:    eventType,
		EventData:    data,
		CreatedAt:    c.opts.Clock(),
	}
	if err := c.deps.Events.Create(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Warn("Failed to record submission event",
			zap.String("submission_id", sub.id.String()),
			zap.String("event", event.EventType),
			zap.Error(err),
		)
	}
}

func (c *Coordinator) validate(ctx context.Context, sub *submission) (domain.SubmissionOutcome, bool) {
	if verr := c.validator.Validate(sub.draft); verr != nil {
		c.transition(ctx, sub, domain.SubmissionIdle, map[string]interface{}{"field": verr.Field})
		return domain.SubmissionOutcome{
			Kind:       domain.OutcomeValidationFailed,
			Message:    verr.Message,
			FieldError: &domain.FieldError{Field: verr.Field, Message: verr.Message},
			Err:        verr,
		}, false
	}

	city, _ := c.deps.Cities.Lookup(sub.draft.CityID)
	for _, a := range []struct {
		label string
		addr  domain.ResolvedAddress
	}{
		{"pickup", sub.draft.PickupAddress},
		{"drop-off", sub.draft.DropoffAddress},
	} {
		if !city.Bounds.Contains(a.addr.Point()) {
			c.deps.Notifier.Warn(fmt.Sprintf("The %s address appears to be outside %s. We'll still try to deliver it.", a.label, city.Name))
		}
	}
	return domain.SubmissionOutcome{}, true
}

func (c *Coordinator) requestSession(ctx context.Context, sub *submission) (domain.PaymentSession, domain.SubmissionOutcome, bool) {
	c.transition(ctx, sub, domain.SubmissionAwaitingPaymentSession, nil)
	c.deps.Notifier.ShowLoading("Preparing secure payment...")

	total, _ := sub.draft.Quote.TotalAmount()
	var session domain.PaymentSession
	attempts, err := c.deps.Retrier.Do(ctx, c.opts.SessionPolicy, func(ctx context.Context) error {
		s, err := c.deps.Sessions.RequestSession(ctx, total)
		if err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		c.deps.Notifier.HideLoading()
		terr := &errors.ErrTransientNetwork{Operation: "payment session", Attempts: attempts, Err: err}
		c.logger.Warn("Payment session unavailable",
			zap.String("submission_id", sub.id.String()),
			zap.Error(terr),
		)
		c.transition(ctx, sub, domain.SubmissionFailed, map[string]interface{}{"attempts": attempts, "error": err.Error()})
		return domain.PaymentSession{}, domain.SubmissionOutcome{
			Kind:    domain.OutcomePaymentFailed,
			Message: "We couldn't start the payment. You have not been charged. Please try again in a moment.",
			Err:     terr,
		}, false
	}
	return session, domain.SubmissionOutcome{}, true
}

func (c *Coordinator) persistPending(ctx context.Context, draft domain.OrderDraft) error {
	body, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode pending order: %w", err)
	}
	if err := c.deps.Store.Put(ctx, repository.PendingOrderKey, body); err != nil {
		return fmt.Errorf("failed to persist pending order: %w", err)
	}
	return nil
}

type widgetSignal struct {
	event payment.WidgetEvent
	data  map[string]any
}

// awaitPayment mounts the widget and blocks until it reports a final event or the
// customer cancels. ok is true only for payment_complete.
func (c *Coordinator) awaitPayment(ctx context.Context, sub *submission, session domain.PaymentSession) (domain.SubmissionOutcome, bool) {
	c.transition(ctx, sub, domain.SubmissionAwaitingPaymentWidget, map[string]interface{}{"mode": string(session.Mode)})

	widget, cancelled, err := c.loadWidget(ctx, sub)
	if cancelled {
		if widget != nil {
			widget.Teardown()
		}
		c.deps.Notifier.HideLoading()
		return c.paymentCancelled(ctx, sub, "customer"), false
	}
	if err != nil {
		c.deps.Notifier.HideLoading()
		c.logger.Error("Payment widget unavailable",
			zap.String("submission_id", sub.id.String()),
			zap.Error(err),
		)
		return c.paymentFailed(ctx, sub, err, "The payment form failed to load."), false
	}

	signals := make(chan widgetSignal, widgetEventBuffer)
	for _, ev := range []payment.WidgetEvent{
		payment.EventPageLoaded,
		payment.EventCancelTransaction,
		payment.EventError,
		payment.EventPaymentComplete,
	} {
		ev := ev
		widget.SetCallback(ev, func(data map[string]any) {
			select {
			case signals <- widgetSignal{event: ev, data: data}:
			default:
				c.logger.Warn("Dropped payment widget event", zap.String("event", string(ev)))
			}
		})
	}
	widget.SetMode(session.Mode)
	widget.SetContainer(c.opts.ContainerID)

	if err := widget.StartCheckout(session.SessionToken); err != nil {
		widget.Teardown()
		c.deps.Notifier.HideLoading()
		return c.paymentFailed(ctx, sub, err, "The payment form could not be started."), false
	}

	for {
		select {
		case <-ctx.Done():
			widget.Teardown()
			c.deps.Notifier.HideLoading()
			return c.paymentFailed(ctx, sub, ctx.Err(), "Checkout was interrupted."), false

		case <-sub.cancel:
			widget.Teardown()
			c.deps.Notifier.HideLoading()
			return c.paymentCancelled(ctx, sub, "customer"), false

		case sig := <-signals:
			switch sig.event {
			case payment.EventPageLoaded:
				c.deps.Notifier.HideLoading()
			case payment.EventCancelTransaction:
				widget.Teardown()
				c.deps.Notifier.HideLoading()
				return c.paymentCancelled(ctx, sub, "widget"), false
			case payment.EventError:
				widget.Teardown()
				c.deps.Notifier.HideLoading()
				return c.paymentFailed(ctx, sub, fmt.Errorf("payment widget reported an error: %v", sig.data), "The payment could not be completed."), false
			case payment.EventPaymentComplete:
				widget.Teardown()
				return domain.SubmissionOutcome{}, true
			}
		}
	}
}

// loadWidget waits for the widget script to register. A customer cancel while it loads stops
// the wait at once and reports cancelled.
func (c *Coordinator) loadWidget(ctx context.Context, sub *submission) (payment.Widget, bool, error) {
	loadCtx, stop := context.WithCancel(ctx)
	defer stop()

	cancelled := false
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		select {
		case <-sub.cancel:
			cancelled = true
			stop()
		case <-loadCtx.Done():
		}
	}()

	widget, err := payment.WaitForWidget(loadCtx, c.deps.Widgets, c.opts.WidgetPollInterval, c.opts.WidgetTimeout)
	stop()
	<-watched
	return widget, cancelled, err
}

func (c *Coordinator) paymentCancelled(ctx context.Context, sub *submission, by string) domain.SubmissionOutcome {
	if err := c.deps.Store.Delete(context.WithoutCancel(ctx), repository.PendingOrderKey); err != nil {
		c.logger.Warn("Failed to clear pending order", zap.Error(err))
	}
	c.transition(ctx, sub, domain.SubmissionIdle, map[string]interface{}{"cancelled_by": by})
	return domain.SubmissionOutcome{
		Kind:    domain.OutcomePaymentCancelled,
		Message: "Payment was cancelled. Your order has not been placed.",
	}
}

func (c *Coordinator) paymentFailed(ctx context.Context, sub *submission, cause error, headline string) domain.SubmissionOutcome {
	c.transition(ctx, sub, domain.SubmissionFailed, map[string]interface{}{"error": cause.Error()})
	key := c.fallback(ctx, sub, nil, cause.Error(), false)
	return domain.SubmissionOutcome{
		Kind:        domain.OutcomePaymentFailed,
		Message:     c.recoveryMessage(headline, false),
		RecoveryKey: key,
		Err:         cause,
	}
}

func (c *Coordinator) dispatch(ctx context.Context, sub *submission) domain.SubmissionOutcome {
	c.transition(ctx, sub, domain.SubmissionDispatching, nil)
	c.deps.Notifier.ShowLoading("Submitting your order...")

	draft := c.takePending(ctx, sub)

	var result domain.DispatchResult
	attempts, err := c.deps.Retrier.Do(ctx, c.opts.DispatchPolicy, func(ctx context.Context) error {
		r, err := c.deps.Dispatcher.Dispatch(ctx, draft)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	c.deps.Notifier.HideLoading()

	if err != nil {
		derr := &errors.ErrDispatchFailed{
			Reason: fmt.Sprintf("dispatch endpoint unavailable after %d attempts", attempts),
			Err:    &errors.ErrTransientNetwork{Operation: "dispatch", Attempts: attempts, Err: err},
		}
		c.logger.Error("Paid order could not be dispatched",
			zap.String("submission_id", sub.id.String()),
			zap.Error(err),
		)
		c.transition(ctx, sub, domain.SubmissionFailed, map[string]interface{}{"attempts": attempts, "error": err.Error()})
		key := c.fallback(ctx, sub, &draft, derr.Error(), true)
		return domain.SubmissionOutcome{
			Kind:        domain.OutcomeDispatchFailed,
			Message:     c.recoveryMessage("Your payment went through but we couldn't record your order.", true),
			RecoveryKey: key,
			Err:         derr,
		}
	}

	if err := c.deps.Store.Delete(context.WithoutCancel(ctx), repository.PendingOrderKey); err != nil {
		c.logger.Warn("Failed to clear pending order", zap.Error(err))
	}
	confirmation := domain.NewConfirmation(draft)
	c.transition(ctx, sub, domain.SubmissionSucceeded, map[string]interface{}{"reference": confirmation.Reference})
	c.deps.Notifier.ShowConfirmation(confirmation)
	c.logger.Info("Order placed",
		zap.String("submission_id", sub.id.String()),
		zap.String("reference", confirmation.Reference),
	)
	return domain.SubmissionOutcome{
		Kind:         domain.OutcomeSuccess,
		Message:      fmt.Sprintf("Order placed. Your reference is %s.", confirmation.Reference),
		Confirmation: &confirmation,
		Dispatch:     &result,
	}
}

// takePending reads the persisted draft once. The in-memory draft is used when the
// record is missing or unreadable.
func (c *Coordinator) takePending(ctx context.Context, sub *submission) domain.OrderDraft {
	draft, err := c.loadPending(ctx)
	if err != nil {
		c.logger.Warn("Using in-memory draft for dispatch",
			zap.String("submission_id", sub.id.String()),
			zap.Error(err),
		)
		return sub.draft
	}
	return draft
}

var errNoPendingOrder = goerrors.New("no pending order")

func (c *Coordinator) loadPending(ctx context.Context) (domain.OrderDraft, error) {
	entry, err := c.deps.Store.Get(ctx, repository.PendingOrderKey)
	if err != nil {
		return domain.OrderDraft{}, err
	}
	if entry == nil {
		return domain.OrderDraft{}, errNoPendingOrder
	}
	var draft domain.OrderDraft
	if err := json.Unmarshal(entry.Value, &draft); err != nil {
		return domain.OrderDraft{}, fmt.Errorf("pending order is unreadable: %w", err)
	}
	return draft, nil
}

func (c *Coordinator) recoveryMessage(headline string, paymentCaptured bool) string {
	if paymentCaptured {
		return fmt.Sprintf("%s Please contact us at %s or %s and we will complete your delivery.", headline, c.opts.SupportPhone, c.opts.SupportEmail)
	}
	return fmt.Sprintf("%s Please call %s or email %s to place your order.", headline, c.opts.SupportPhone, c.opts.SupportEmail)
}
