package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/app"
	"github.com/expresscouriers/checkout/internal/checkout"
	"github.com/expresscouriers/checkout/internal/config"
	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/internal/fee"
	"github.com/expresscouriers/checkout/internal/geo"
	"github.com/expresscouriers/checkout/internal/payment"
)

var outcomes = map[string]payment.WidgetEvent{
	"complete": payment.EventPaymentComplete,
	"cancel":   payment.EventCancelTransaction,
	"error":    payment.EventError,
}

func main() {
	cityFlag := flag.String("city", "", "City id; empty uses DEFAULT_CITY")
	senderName := flag.String("sender-name", "", "Sender name")
	senderPhone := flag.String("sender-phone", "", "Sender phone")
	receiverName := flag.String("receiver-name", "", "Receiver name")
	receiverPhone := flag.String("receiver-phone", "", "Receiver phone")
	pickup := flag.String("pickup", "", "Pickup address")
	pickupAt := flag.String("pickup-at", "", "Pickup coordinate as lat,lng")
	dropoff := flag.String("dropoff", "", "Drop-off address")
	dropoffAt := flag.String("dropoff-at", "", "Drop-off coordinate as lat,lng")
	notes := flag.String("notes", "", "Delivery notes")
	tipPercent := flag.Float64("tip-percent", 0, "Tip as a percentage of the base delivery fee")
	terms := flag.Bool("terms", true, "Terms accepted")
	value := flag.Bool("value-confirmed", true, "Parcel value confirmed")
	outcome := flag.String("widget", "complete", "Sandbox widget result: complete, cancel, error or missing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeRepos, err := app.OpenRepositories(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open repositories: %v\n", err)
		os.Exit(1)
	}
	defer closeRepos()

	calc := fee.NewCalculator(fee.NewEngine(cfg.Location), cfg.Cities, *cityFlag)
	city := calc.City()

	geocoder := geo.NewStaticGeocoder()
	resolver := geo.NewBoundedResolver(geocoder, logger)
	pickupAddr := resolveAddress(ctx, resolver, geocoder, city, *pickup, *pickupAt)
	dropoffAddr := resolveAddress(ctx, resolver, geocoder, city, *dropoff, *dropoffAt)

	if pickupAddr.Resolved && dropoffAddr.Resolved {
		d := geo.DistanceKm(pickupAddr.Point(), dropoffAddr.Point())
		calc.SetDistance(&d)
	}
	if *tipPercent > 0 {
		calc.SelectTip(fee.Percent(*tipPercent))
	}

	draft := domain.OrderDraft{
		Sender:         domain.Contact{Name: *senderName, Phone: *senderPhone},
		PickupAddress:  pickupAddr,
		Receiver:       domain.Contact{Name: *receiverName, Phone: *receiverPhone},
		DropoffAddress: dropoffAddr,
		Notes:          *notes,
		CityID:         city.ID,
		Consents:       domain.Consents{TermsAccepted: *terms, ValueConfirmed: *value},
		Quote:          calc.Quote(),
	}

	globals := payment.NewGlobals()
	if final, ok := outcomes[*outcome]; ok {
		globals.Register(payment.WidgetNameAlt, payment.NewSandboxWidget(final, logger))
	} else if *outcome != "missing" {
		fmt.Fprintf(os.Stderr, "Unknown --widget %q\n", *outcome)
		os.Exit(1)
	}

	var sessions payment.SessionProvider = payment.SandboxSessions{}
	if cfg.Payment.ConfigURL != "" {
		sessions = payment.NewSessionClient(cfg.Payment.ConfigURL, nil, logger)
	}

	opts := checkout.DefaultOptions()
	opts.ContainerID = cfg.Payment.ContainerID
	opts.SupportPhone = cfg.Support.Phone
	opts.SupportEmail = cfg.Support.Email

	coordinator := checkout.NewCoordinator(checkout.Dependencies{
		Sessions:   sessions,
		Widgets:    globals,
		Dispatcher: app.NewDispatcher(cfg, logger),
		Store:      repos.Session,
		Events:     repos.SubmissionEvent,
		Cities:     cfg.Cities,
		Notifier:   checkout.NewLogNotifier(logger),
		Alerter:    checkout.NewWebhookAlerter(cfg.Support.WebhookURL, logger),
	}, opts, logger)

	// Ctrl-C closes the widget like its close button; outside the widget it restores
	// the default handler so a second Ctrl-C exits.
	go func() {
		<-ctx.Done()
		if coordinator.Cancel() {
			logger.Info("Checkout cancelled by user")
			return
		}
		stop()
	}()

	result, err := coordinator.Submit(context.WithoutCancel(ctx), draft)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Submit rejected: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	if !result.Succeeded() {
		logger.Info("Checkout did not complete", zap.String("kind", string(result.Kind)))
		os.Exit(2)
	}
}

// resolveAddress registers the typed address at its coordinate and resolves it against the
// city bounds. Without a coordinate the address stays unresolved and validation rejects it.
func resolveAddress(ctx context.Context, resolver geo.Resolver, gazetteer *geo.StaticGeocoder, city domain.CityProfile, text, at string) domain.ResolvedAddress {
	addr := domain.ResolvedAddress{Text: text}
	loc, ok := parseLatLng(at)
	if text == "" || !ok {
		return addr
	}
	gazetteer.Add(text, geo.Place{FormattedAddress: text, Location: loc})
	place, _, err := resolver.Resolve(ctx, text, city.Bounds)
	if err != nil {
		return addr
	}
	return place.Address(text)
}

func parseLatLng(s string) (domain.LatLng, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.LatLng{}, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return domain.LatLng{}, false
	}
	return domain.LatLng{Lat: lat, Lng: lng}, true
}
