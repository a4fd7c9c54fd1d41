package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	resendAPIURL       = "https://api.resend.com/emails"
	defaultFrom        = "Goody IPTV <noreply@goodytv.com>"
	defaultHTTPTimeout = 30 * time.Second
	licenseSubject     = "Your Goody IPTV Premium License"
)

// Resend sends license emails through the Resend HTTP API.
type Resend struct {
	apiKey     string
	from       string
	endpoint   string
	httpClient *http.Client
}

// NewResend creates a Resend client. An empty from uses the default sender.
func NewResend(apiKey, from string) *Resend {
	if from == "" {
		from = defaultFrom
	}
	return &Resend{
		apiKey:   apiKey,
		from:     from,
		endpoint: resendAPIURL,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendErrorResponse struct {
	Message string `json:"message"`
}

var licenseEmail = template.Must(template.New("license").Parse(`<h1>Welcome to Goody IPTV Premium!</h1>
<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
<p>Thank you for purchasing Goody IPTV Premium! Your license is ready.</p>
<div style="border:2px dashed #6c757d; padding:20px; margin:20px 0; text-align:center;">
<h2>Your License Key</h2>
<code style="font-size:24px; letter-spacing:3px;">{{.LicenseKey}}</code>
</div>
<h3>How to activate:</h3>
<ol>
<li>Open Goody IPTV on your device</li>
<li>When the trial expires, enter this license key</li>
</ol>
`))

// NotifyLicense emails the key to msg.To.
func (c *Resend) NotifyLicense(ctx context.Context, msg LicenseMessage) error {
	if msg.To == "" {
		return fmt.Errorf("resend: no recipient for device %s", msg.DeviceID)
	}
	var html strings.Builder
	if err := licenseEmail.Execute(&html, msg); err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	bodyBytes, err := json.Marshal(emailRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: licenseSubject,
		HTML:    html.String(),
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var rErr resendErrorResponse
		_ = json.Unmarshal(respBody, &rErr)
		return fmt.Errorf("resend API %d: %s", resp.StatusCode, rErr.Message)
	}
	return nil
}
