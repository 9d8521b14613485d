package checkout

import (
	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/domain"
)

// ManualRecoveryNotice is what the customer sees when an order has to be completed by phone or email
type ManualRecoveryNotice struct {
	Phone           string
	Email           string
	RecoveryKey     string
	PaymentCaptured bool
}

// Notifier is the UI surface the coordinator drives
type Notifier interface {
	StateChanged(state domain.SubmissionState)
	ShowLoading(message string)
	HideLoading()
	Warn(message string)
	ShowManualRecovery(notice ManualRecoveryNotice)
	ShowConfirmation(confirmation domain.Confirmation)
}

// NopNotifier ignores every call
type NopNotifier struct{}

func (NopNotifier) StateChanged(domain.SubmissionState)     {}
func (NopNotifier) ShowLoading(string)                      {}
func (NopNotifier) HideLoading()                            {}
func (NopNotifier) Warn(string)                             {}
func (NopNotifier) ShowManualRecovery(ManualRecoveryNotice) {}
func (NopNotifier) ShowConfirmation(domain.Confirmation)    {}

// LogNotifier writes UI updates to the log; used by the CLI tools
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier backed by logger
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) StateChanged(state domain.SubmissionState) {
	n.logger.Debug("Submission state changed", zap.String("state", string(state)))
}

func (n *LogNotifier) ShowLoading(message string) {
	n.logger.Info(message)
}

func (n *LogNotifier) HideLoading() {}

func (n *LogNotifier) Warn(message string) {
	n.logger.Warn(message)
}

func (n *LogNotifier) ShowManualRecovery(notice ManualRecoveryNotice) {
	n.logger.Warn("Manual recovery required",
		zap.String("phone", notice.Phone),
		zap.String("email", notice.Email),
		zap.String("recovery_key", notice.RecoveryKey),
		zap.Bool("payment_captured", notice.PaymentCaptured),
	)
}

func (n *LogNotifier) ShowConfirmation(confirmation domain.Confirmation) {
	n.logger.Info("Order confirmed",
		zap.String("reference", confirmation.Reference),
		zap.String("pickup", confirmation.PickupAddress),
		zap.String("dropoff", confirmation.DropoffAddress),
		zap.Float64("total", confirmation.Total),
	)
}
