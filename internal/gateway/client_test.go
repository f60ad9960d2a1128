package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testCreds() Credentials {
	return Credentials{
		Username:  "school",
		Password:  "hunter2",
		Shortcode: "2525",
		SenderID:  "SCHOOL",
		APIKey:    "key-123",
	}
}

func TestClient_Send_Success(t *testing.T) {
	t.Parallel()

	var captured url.Values

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		captured = r.URL.Query()

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK 1 message queued"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testCreds(), 100, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := c.Send(ctx, "260977123456", "Fees due Friday")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if resp.Body != "OK 1 message queued" {
		t.Fatalf("unexpected body: %q", resp.Body)
	}

	want := map[string]string{
		"username":  "school",
		"password":  "hunter2",
		"msg":       "Fees due Friday",
		"shortcode": "2525",
		"sender_id": "SCHOOL",
		"phone":     "260977123456",
		"api_key":   "key-123",
	}
	for k, v := range want {
		if got := captured.Get(k); got != v {
			t.Fatalf("expected query param %s=%q, got %q", k, v, got)
		}
	}
}

func TestClient_Send_AnyTwoHundredIsSuccess(t *testing.T) {
	t.Parallel()

	// The provider has no structured response schema; any 2xx with an
	// opaque body counts as a success signal.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("1701|260977123456|some-opaque-ref"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testCreds(), 100, testLogger())

	resp, err := c.Send(context.Background(), "260977123456", "hello")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
}

func TestClient_Send_NonTwoHundred(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("insufficient credit"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testCreds(), 100, testLogger())

	_, err := c.Send(context.Background(), "260977123456", "hello")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *gateway.Error, got %T", err)
	}
	if gwErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", gwErr.StatusCode)
	}
	if gwErr.Body != "insufficient credit" {
		t.Fatalf("expected body carried for logging, got %q", gwErr.Body)
	}
}

func TestClient_Send_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c := NewClient(srv.URL, testCreds(), 100, testLogger())

	_, err := c.Send(context.Background(), "260977123456", "hello")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *gateway.Error, got %T", err)
	}
	if gwErr.Unwrap() == nil {
		t.Fatalf("expected wrapped transport cause")
	}
}

func TestClient_Send_ErrorNeverLeaksFullPhone(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testCreds(), 100, testLogger())

	_, err := c.Send(context.Background(), "260977123456", "hello")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if strings.Contains(err.Error(), "260977123456") {
		t.Fatalf("error text leaks the full phone number: %v", err)
	}
}
