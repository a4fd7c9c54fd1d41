package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voyagen/goodytv/internal/models"
)

// DefaultPollInterval is how often Poll asks the server by default.
const DefaultPollInterval = 5 * time.Second

// StatusClient is the device side of the purchase flow: after the user pays
// in a browser it polls the payment-status endpoint for its device id.
type StatusClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Entry
}

// NewStatusClient targets the API at baseURL (e.g. "https://goodytv.com").
func NewStatusClient(baseURL string, log *logrus.Entry) *StatusClient {
	return &StatusClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

// Check asks once.
func (c *StatusClient) Check(ctx context.Context, deviceID string) (Status, error) {
	u := c.baseURL + "/api/check-payment?deviceId=" + url.QueryEscape(deviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Status{}, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{}, fetchFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Status{}, fmt.Errorf("check payment: HTTP %d: %s: %w", resp.StatusCode, body, models.ErrFetchFailed)
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return Status{}, fmt.Errorf("decode payment status: %w", err)
	}
	return st, nil
}

// Poll checks every interval until the device is paid or ctx is done.
// Transient failures are logged and retried on the next tick.
func (c *StatusClient) Poll(ctx context.Context, deviceID string, interval time.Duration) (Status, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := c.Check(ctx, deviceID)
		switch {
		case err == nil && st.Paid:
			return st, nil
		case err != nil && ctx.Err() == nil:
			c.log.WithError(err).WithField("device_id", deviceID).Warn("payment poll failed")
		}
		select {
		case <-ctx.Done():
			return Status{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func fetchFailed(err error) error {
	return fmt.Errorf("check payment: %w: %v", models.ErrFetchFailed, err)
}
