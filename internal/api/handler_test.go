package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/order-notify/internal/common"
	"github.com/example/order-notify/internal/notify"
	"github.com/example/order-notify/internal/push"
	"github.com/example/order-notify/internal/store"
)

type fakePush struct {
	receipt string
	err     error
	sent    []push.Message
}

func (f *fakePush) Send(_ context.Context, msg push.Message) (string, error) {
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return "", f.err
	}
	return f.receipt, nil
}

type fakeStore struct {
	users   []store.UserRecord
	failFor map[string]error

	mu       sync.Mutex
	appended []string
}

func (f *fakeStore) ListUsers(context.Context) ([]store.UserRecord, error) {
	return f.users, nil
}

func (f *fakeStore) AppendNotification(_ context.Context, userID string, _ store.LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, userID)
	if err, ok := f.failFor[userID]; ok {
		return err
	}
	return nil
}

func newTestHandler(p push.Client, s store.Store) *Handler {
	d := &notify.Dispatcher{Push: p, Store: s, Logger: zerolog.Nop()}
	cfg := &common.Config{AllowedOrigins: []string{"*"}}
	return NewHandler(d, cfg, zerolog.Nop())
}

func doPost(t *testing.T, h *Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return body
}

func TestMissingFieldsRejectedBeforeDispatch(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"order alert without token", "/send-notification", `{"customerName":"Asha","amount":499}`},
		{"order alert without amount", "/send-notification", `{"adminToken":"tok","customerName":"Asha"}`},
		{"broadcast without topic", "/send-to-users", `{"title":"Sale","body":"50% off"}`},
		{"broadcast without body", "/send-to-users", `{"topic":"all_users","title":"Sale"}`},
		{"status update without order id", "/send-user-status-update", `{"userToken":"tok","status":"Shipped"}`},
		{"empty body", "/send-user-status-update", `{}`},
		{"malformed json", "/send-to-users", `{"topic":`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakePush{receipt: "r"}
			h := newTestHandler(p, &fakeStore{})

			rec := doPost(t, h, tc.path, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, expected 400", rec.Code)
			}
			body := decodeBody(t, rec)
			if body["success"] != false || body["error"] != "Missing fields" {
				t.Fatalf("body = %v", body)
			}
			if len(p.sent) != 0 {
				t.Fatalf("push client must not be called for rejected input")
			}
		})
	}
}

func TestSendOrderAlertSuccess(t *testing.T) {
	p := &fakePush{receipt: "projects/demo/messages/1"}
	h := newTestHandler(p, &fakeStore{})

	rec := doPost(t, h, "/send-notification", `{"adminToken":"tok","customerName":"Asha","amount":499}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["response"] != "projects/demo/messages/1" {
		t.Fatalf("body = %v", body)
	}
	if len(p.sent) != 1 || p.sent[0].Token != "tok" {
		t.Fatalf("push calls = %+v", p.sent)
	}
}

func TestSendOrderAlertDeliveryFailure(t *testing.T) {
	p := &fakePush{err: errors.New("registration token not registered")}
	h := newTestHandler(p, &fakeStore{})

	rec := doPost(t, h, "/send-notification", `{"adminToken":"tok","customerName":"Asha","amount":499}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, expected 500", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false || body["error"] != "registration token not registered" {
		t.Fatalf("body = %v", body)
	}
}

func TestSendToUsersFansOutToAllUsers(t *testing.T) {
	p := &fakePush{receipt: "r"}
	s := &fakeStore{users: []store.UserRecord{{ID: "u1"}, {ID: "u2"}}}
	h := newTestHandler(p, s)

	rec := doPost(t, h, "/send-to-users", `{"topic":"all_users","title":"Sale","body":"50% off"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200: %s", rec.Code, rec.Body.String())
	}
	if len(p.sent) != 1 || p.sent[0].Topic != "all_users" {
		t.Fatalf("push calls = %+v", p.sent)
	}
	if len(s.appended) != 2 {
		t.Fatalf("expected one append per user, got %d", len(s.appended))
	}
}

func TestSendToUsersPartialFanOutFailureStillOK(t *testing.T) {
	p := &fakePush{receipt: "r"}
	s := &fakeStore{
		users:   []store.UserRecord{{ID: "u1"}, {ID: "u2"}},
		failFor: map[string]error{"u1": errors.New("permission denied")},
	}
	h := newTestHandler(p, s)

	rec := doPost(t, h, "/send-to-users", `{"topic":"all_users","title":"Sale","body":"50% off"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("a failing log append must not change the HTTP status, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["response"] != "r" {
		t.Fatalf("body = %v", body)
	}
}

func TestSendToUsersPushFailureSkipsFanOut(t *testing.T) {
	p := &fakePush{err: errors.New("topic quota exceeded")}
	s := &fakeStore{users: []store.UserRecord{{ID: "u1"}}}
	h := newTestHandler(p, s)

	rec := doPost(t, h, "/send-to-users", `{"topic":"all_users","title":"Sale","body":"50% off"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, expected 500", rec.Code)
	}
	if len(s.appended) != 0 {
		t.Fatalf("fan-out must not run after a push failure, got %d appends", len(s.appended))
	}
}

func TestSendUserStatusUpdate(t *testing.T) {
	p := &fakePush{receipt: "r"}
	h := newTestHandler(p, &fakeStore{})

	rec := doPost(t, h, "/send-user-status-update", `{"userToken":"tok","orderId":"ord-42","status":"Shipped"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200: %s", rec.Code, rec.Body.String())
	}
	if len(p.sent) != 1 {
		t.Fatalf("expected exactly one push, got %d", len(p.sent))
	}
	msg := p.sent[0]
	if !strings.Contains(msg.Body, "Shipped") {
		t.Fatalf("body %q should contain the literal status", msg.Body)
	}
	if msg.Data["orderId"] != "ord-42" {
		t.Fatalf("data.orderId = %q", msg.Data["orderId"])
	}
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(&fakePush{}, &fakeStore{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rec.Code)
	}
}
