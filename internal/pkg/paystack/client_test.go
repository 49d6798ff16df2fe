package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	return &Client{
		SecretKey:  "sk_test_secret",
		APIBaseURL: baseURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestVerifyTransactionSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/ref123" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_secret" {
			t.Fatalf("unexpected auth header %q", got)
		}
		w.Write([]byte(`{"status": true, "data": {"id": 789, "reference": "ref123"}}`))
	}))
	defer srv.Close()

	status, raw, err := testClient(srv.URL).VerifyTransaction(context.Background(), "ref123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusSuccess {
		t.Fatalf("status = %q, want %q", status, StatusSuccess)
	}
	if len(raw) == 0 {
		t.Fatalf("expected raw gateway data to be returned")
	}
}

func TestVerifyTransactionFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": false, "data": {"reference": "ref123"}}`))
	}))
	defer srv.Close()

	status, _, err := testClient(srv.URL).VerifyTransaction(context.Background(), "ref123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusFailed {
		t.Fatalf("status = %q, want %q", status, StatusFailed)
	}
}

func TestVerifyTransactionUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).VerifyTransaction(context.Background(), "ref123")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestVerifyTransactionUnexpectedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message": "no status field here"}`))
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).VerifyTransaction(context.Background(), "ref123")
	if err == nil {
		t.Fatalf("expected error for response without boolean status")
	}
}

func TestVerifyTransactionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).VerifyTransaction(context.Background(), "ref123")
	if err == nil {
		t.Fatalf("expected error for non-200 gateway response")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"event":"charge.success"}`)
	secret := "top-secret"

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	validSig := hex.EncodeToString(mac.Sum(nil))

	if !VerifyWebhookSignature(payload, validSig, secret) {
		t.Fatalf("expected signature to validate")
	}
	if VerifyWebhookSignature(payload, "deadbeef", secret) {
		t.Fatalf("expected invalid signature to fail")
	}
	if VerifyWebhookSignature(payload, validSig, "wrong-secret") {
		t.Fatalf("expected wrong secret to fail")
	}
	if VerifyWebhookSignature(payload, "", secret) {
		t.Fatalf("expected empty signature to fail")
	}
}
