package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestResend_SendsLicenseEmail(t *testing.T) {
	var got emailRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer srv.Close()

	c := NewResend("re_test", "")
	c.endpoint = srv.URL
	err := c.NotifyLicense(context.Background(), LicenseMessage{
		To: "viewer@example.com", Name: "<Sam>", DeviceID: "dev1", LicenseKey: "0123456789ABCDEF",
	})
	if err != nil {
		t.Fatalf("NotifyLicense failed: %v", err)
	}
	if auth != "Bearer re_test" {
		t.Errorf("Expected bearer auth, got %q", auth)
	}
	if got.From != defaultFrom || len(got.To) != 1 || got.To[0] != "viewer@example.com" {
		t.Errorf("Unexpected envelope %+v", got)
	}
	if !strings.Contains(got.HTML, "0123456789ABCDEF") {
		t.Error("Expected license key in email body")
	}
	if strings.Contains(got.HTML, "<Sam>") {
		t.Error("Expected customer name to be escaped")
	}
}

func TestResend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	c := NewResend("re_test", "bad")
	c.endpoint = srv.URL
	err := c.NotifyLicense(context.Background(), LicenseMessage{To: "a@b.c", LicenseKey: "K"})
	if err == nil || !strings.Contains(err.Error(), "invalid from") {
		t.Fatalf("Expected API error message, got %v", err)
	}
}

func TestResend_NoRecipient(t *testing.T) {
	c := NewResend("re_test", "")
	c.endpoint = "http://127.0.0.1:0"
	if err := c.NotifyLicense(context.Background(), LicenseMessage{DeviceID: "dev1"}); err == nil {
		t.Fatal("Expected an error without a recipient")
	}
}
