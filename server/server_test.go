package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	contractx "github.com/aryanranjan/aria/brain/contract"
	convlogx "github.com/aryanranjan/aria/brain/convlog"
	sessionx "github.com/aryanranjan/aria/brain/session"
)

type fakeBrain struct {
	lastIn  contractx.Inbound
	out     contractx.Outbound
	info    contractx.SessionInfo
	receipt contractx.Receipt
	err     error

	styleDNAUser string
	cartUser     string
	cartProduct  string
	cartQty      int
	checkoutUser string
}

func (f *fakeBrain) HandleMessage(_ context.Context, in contractx.Inbound) (contractx.Outbound, error) {
	f.lastIn = in
	return f.out, f.err
}

func (f *fakeBrain) CompleteStyleDNA(_ context.Context, userID string) (contractx.SessionInfo, error) {
	f.styleDNAUser = userID
	return f.info, f.err
}

func (f *fakeBrain) AddToCart(_ context.Context, userID, productID string, qty int) (contractx.SessionInfo, error) {
	f.cartUser, f.cartProduct, f.cartQty = userID, productID, qty
	return f.info, f.err
}

func (f *fakeBrain) Checkout(_ context.Context, userID string) (contractx.Receipt, error) {
	f.checkoutUser = userID
	return f.receipt, f.err
}

type fakeSessionStore struct {
	sessions map[string]*sessionx.Session
}

func (f *fakeSessionStore) Get(_ context.Context, identity string) (*sessionx.Session, error) {
	s, ok := f.sessions[identity]
	if !ok {
		return nil, sessionx.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) Set(context.Context, *sessionx.Session) error { return nil }

func (f *fakeSessionStore) SetIfLeased(context.Context, *sessionx.Session, string) error {
	return nil
}

func (f *fakeSessionStore) Lease(context.Context, string, time.Duration) (string, error) {
	return "token", nil
}

func (f *fakeSessionStore) Release(context.Context, string, string) error { return nil }

type fakeDashboard struct {
	dashboard convlogx.Dashboard
	err       error
}

func (f *fakeDashboard) Dashboard(context.Context) (convlogx.Dashboard, error) {
	return f.dashboard, f.err
}

func newTestServer(t *testing.T, brain Brain, store sessionx.Store, dashboard DashboardReader) *Server {
	t.Helper()
	s, err := New(Config{Addr: ":0"}, brain, store, dashboard, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestChatMessageEndpoint(t *testing.T) {
	t.Parallel()

	brain := &fakeBrain{out: contractx.Outbound{
		Response: "Welcome to ARIA!",
		SessionInfo: contractx.SessionInfo{
			ChannelsUsed:    []string{"web"},
			ChannelSwitches: 0,
		},
	}}
	s := newTestServer(t, brain, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/message",
		strings.NewReader(`{"user_id":"user-1","message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Response != "Welcome to ARIA!" || got.UserID != "user-1" {
		t.Fatalf("response = %+v", got)
	}
	if got.Channel != "web" {
		t.Fatalf("channel = %q, want web default", got.Channel)
	}
	if brain.lastIn.Channel != "web" {
		t.Fatalf("brain saw channel %q, want web default", brain.lastIn.Channel)
	}
}

func TestChatMessageRequiresUserID(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeBrain{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/message",
		strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSessionInfoEndpoint(t *testing.T) {
	t.Parallel()

	sess := sessionx.New("user-1", "web", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	sess.AppendTurn(sessionx.Turn{Role: sessionx.RoleUser, Content: "hi", Channel: "whatsapp", Timestamp: time.Now()})
	store := &fakeSessionStore{sessions: map[string]*sessionx.Session{"user-1": sess}}
	s := newTestServer(t, &fakeBrain{}, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/session/user-1", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var info contractx.SessionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(info.ChannelsUsed) != 2 || info.ChannelSwitches != 1 {
		t.Fatalf("info = %+v", info)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/chat/session/unknown", nil)
	rec = httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown user", rec.Code)
	}
}

func TestWhatsAppWebhookRepliesInTwiML(t *testing.T) {
	t.Parallel()

	brain := &fakeBrain{out: contractx.Outbound{Response: "Hello from ARIA"}}
	s := newTestServer(t, brain, nil, nil)

	form := url.Values{}
	form.Set("From", "whatsapp:+14155551234")
	form.Set("Body", "hi there")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/whatsapp/webhook",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "<Message>Hello from ARIA</Message>") {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if brain.lastIn.UserID != "+14155551234" || brain.lastIn.Channel != "whatsapp" {
		t.Fatalf("brain saw %+v", brain.lastIn)
	}
}

func TestStyleDNACompletionEndpoint(t *testing.T) {
	t.Parallel()

	brain := &fakeBrain{info: contractx.SessionInfo{HasStyleDNA: true, ChannelsUsed: []string{"web"}}}
	s := newTestServer(t, brain, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/color/style-dna/user-1", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if brain.styleDNAUser != "user-1" {
		t.Fatalf("brain saw user %q", brain.styleDNAUser)
	}
	var info contractx.SessionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !info.HasStyleDNA {
		t.Fatalf("info = %+v", info)
	}
}

func TestCartEndpoints(t *testing.T) {
	t.Parallel()

	brain := &fakeBrain{
		info:    contractx.SessionInfo{CartCount: 2},
		receipt: contractx.Receipt{Items: 2, Amount: 4998},
	}
	s := newTestServer(t, brain, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/user-1/items",
		strings.NewReader(`{"product_id":"lp-formal-shirt","quantity":2}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if brain.cartUser != "user-1" || brain.cartProduct != "lp-formal-shirt" || brain.cartQty != 2 {
		t.Fatalf("brain saw %q %q %d", brain.cartUser, brain.cartProduct, brain.cartQty)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/user-1/items",
		strings.NewReader(`{"quantity":2}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing product_id status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/user-1/checkout", nil)
	rec = httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("checkout status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var receipt contractx.Receipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if receipt.Amount != 4998 || brain.checkoutUser != "user-1" {
		t.Fatalf("receipt = %+v, checkout user = %q", receipt, brain.checkoutUser)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	t.Parallel()

	reader := &fakeDashboard{dashboard: convlogx.Dashboard{
		Metrics: convlogx.Metrics{ConversationsToday: 42},
	}}
	s := newTestServer(t, &fakeBrain{}, nil, reader)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/dashboard", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got convlogx.Dashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Metrics.ConversationsToday != 42 {
		t.Fatalf("dashboard = %+v", got)
	}
}
