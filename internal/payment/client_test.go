package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voyagen/goodytv/internal/logging"
	"github.com/voyagen/goodytv/internal/models"
)

func TestStatusClient_PollUntilPaid(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/check-payment" || r.URL.Query().Get("deviceId") != "dev 1" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		n := calls.Add(1)
		switch n {
		case 1:
			http.Error(w, "boom", http.StatusInternalServerError)
		case 2:
			_ = json.NewEncoder(w).Encode(Status{})
		default:
			_ = json.NewEncoder(w).Encode(Status{Paid: true, LicenseKey: "0123456789ABCDEF", Timestamp: 1700000000000})
		}
	}))
	defer srv.Close()

	c := NewStatusClient(srv.URL, logging.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := c.Poll(ctx, "dev 1", 5*time.Millisecond)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !st.Paid || st.LicenseKey != "0123456789ABCDEF" {
		t.Errorf("Unexpected status %+v", st)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 calls, got %d", calls.Load())
	}
}

func TestStatusClient_CheckHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewStatusClient(srv.URL, logging.Discard()).Check(context.Background(), "d")
	if !errors.Is(err, models.ErrFetchFailed) {
		t.Errorf("Expected ErrFetchFailed, got %v", err)
	}
}

func TestStatusClient_PollCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Status{})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := NewStatusClient(srv.URL, logging.Discard()).Poll(ctx, "d", 5*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
