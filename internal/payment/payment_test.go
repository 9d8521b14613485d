package payment

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/internal/retry"
	"github.com/expresscouriers/checkout/pkg/errors"
)

func TestSessionClient_RequestSession(t *testing.T) {
	var gotAmount float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/config/payment-session", r.URL.Path)
		var body struct {
			Amount float64 `json:"amount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotAmount = body.Amount
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sessionToken":"tok_123","mode":"test"}`))
	}))
	defer srv.Close()

	c := NewSessionClient(srv.URL+"/", srv.Client(), nil)
	s, err := c.RequestSession(context.Background(), 25.100000000000001)
	require.NoError(t, err)
	assert.Equal(t, "tok_123", s.SessionToken)
	assert.Equal(t, domain.PaymentModeTest, s.Mode)
	assert.Equal(t, 25.10, gotAmount)
}

func TestSessionClient_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewSessionClient(srv.URL, srv.Client(), nil).RequestSession(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSessionClient_MissingTokenIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"mode":"live"}`))
	}))
	defer srv.Close()

	_, err := NewSessionClient(srv.URL, srv.Client(), nil).RequestSession(context.Background(), 10)
	assert.Error(t, err)
}

func TestSessionClient_UnconfiguredIsPermanent(t *testing.T) {
	_, err := NewSessionClient("", nil, nil).RequestSession(context.Background(), 10)
	var perm *retry.PermanentError
	assert.True(t, goerrors.As(err, &perm))
}

func TestLocate_TriesBothNames(t *testing.T) {
	g := NewGlobals()
	_, ok := Locate(g)
	assert.False(t, ok)

	w := NewSandboxWidget("", nil)
	g.Register(WidgetNameAlt, w)
	got, ok := Locate(g)
	require.True(t, ok)
	assert.Same(t, w, got)

	g.Unregister(WidgetNameAlt)
	g.Register(WidgetName, w)
	got, ok = Locate(g)
	require.True(t, ok)
	assert.Same(t, w, got)
}

func TestWaitForWidget_FindsLateRegistration(t *testing.T) {
	g := NewGlobals()
	w := NewSandboxWidget("", nil)
	go func() {
		time.Sleep(30 * time.Millisecond)
		g.Register(WidgetNameAlt, w)
	}()

	got, err := WaitForWidget(context.Background(), g, 5*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Same(t, w, got)
}

func TestWaitForWidget_TimesOut(t *testing.T) {
	start := time.Now()
	_, err := WaitForWidget(context.Background(), NewGlobals(), 5*time.Millisecond, 40*time.Millisecond)
	var unavailable *errors.ErrPaymentWidgetUnavailable
	require.True(t, goerrors.As(err, &unavailable))
	assert.ElementsMatch(t, []string{WidgetName, WidgetNameAlt}, unavailable.Names)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestSandboxWidget_FiresLoadedThenFinal(t *testing.T) {
	w := NewSandboxWidget(EventPaymentComplete, nil)
	events := make(chan WidgetEvent, 2)
	w.SetCallback(EventPageLoaded, func(map[string]any) { events <- EventPageLoaded })
	w.SetCallback(EventPaymentComplete, func(data map[string]any) {
		assert.Equal(t, "tok", data["session_token"])
		events <- EventPaymentComplete
	})
	w.SetMode(domain.PaymentModeTest)
	require.NoError(t, w.StartCheckout("tok"))

	assert.Equal(t, EventPageLoaded, <-events)
	assert.Equal(t, EventPaymentComplete, <-events)
}

func TestSandboxWidget_RefusesLiveMode(t *testing.T) {
	w := NewSandboxWidget("", nil)
	w.SetMode(domain.PaymentModeLive)
	assert.Error(t, w.StartCheckout("tok"))
}

func TestSandboxSessions_IssuesTestMode(t *testing.T) {
	s, err := SandboxSessions{}.RequestSession(context.Background(), 25.10)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentModeTest, s.Mode)
	assert.Contains(t, s.SessionToken, "sandbox_")
}
