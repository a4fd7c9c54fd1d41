package fetcher

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voyagen/goodytv/internal/metrics"
	"github.com/voyagen/goodytv/internal/models"
)

// Default fetch timeouts: connect, time to first response byte, and the
// whole request including the body download.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 15 * time.Second
	DefaultTimeout        = 2 * time.Minute
)

// Client fetches playlist and guide documents over HTTP.
type Client struct {
	http      *http.Client
	userAgent string
	log       *logrus.Entry
}

// NewClient builds a fetch client. timeout bounds a whole request including
// the body download; zero or less means DefaultTimeout.
func NewClient(userAgent string, timeout time.Duration, log *logrus.Entry) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: DefaultConnectTimeout}).DialContext,
		TLSHandshakeTimeout:   DefaultConnectTimeout,
		ResponseHeaderTimeout: DefaultReadTimeout,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Client{
		http:      &http.Client{Timeout: timeout, Transport: transport},
		userAgent: userAgent,
		log:       log,
	}
}

// FetchM3U fetches the M3U playlist at url and parses it.
func (c *Client) FetchM3U(ctx context.Context, url string) ([]models.Channel, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		metrics.PlaylistFetches.WithLabelValues("m3u", "failed").Inc()
		return nil, err
	}
	defer body.Close()
	channels := ParseM3U(body)
	if body.err != nil {
		// ParseM3U stops quietly at a read error; a cut-off body is a failed fetch.
		metrics.PlaylistFetches.WithLabelValues("m3u", "failed").Inc()
		return nil, fmt.Errorf("%w: %s: read body: %w", models.ErrFetchFailed, url, body.err)
	}
	metrics.PlaylistFetches.WithLabelValues("m3u", "ok").Inc()
	c.log.WithFields(logrus.Fields{"url": url, "channels": len(channels)}).Info("playlist fetched")
	return channels, nil
}

// FetchSchedule fetches and parses the XMLTV guide at url. Guide data is
// optional, so every failure degrades to an empty schedule.
func (c *Client) FetchSchedule(ctx context.Context, url string) models.Schedule {
	if url == "" {
		return models.Schedule{}
	}
	body, err := c.get(ctx, url)
	if err != nil {
		metrics.PlaylistFetches.WithLabelValues("xmltv", "failed").Inc()
		c.log.WithError(err).WithField("url", url).Warn("guide unavailable")
		return models.Schedule{}
	}
	defer body.Close()

	br := bufio.NewReader(body)
	var r io.Reader = br
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			metrics.PlaylistFetches.WithLabelValues("xmltv", "degraded").Inc()
			c.log.WithError(err).WithField("url", url).Warn("guide is not valid gzip")
			return models.Schedule{}
		}
		defer gz.Close()
		r = gz
	}

	sched, err := ParseXMLTV(r)
	if body.err != nil {
		metrics.PlaylistFetches.WithLabelValues("xmltv", "failed").Inc()
		c.log.WithError(body.err).WithField("url", url).Warn("guide download interrupted")
		return models.Schedule{}
	}
	if err != nil {
		metrics.PlaylistFetches.WithLabelValues("xmltv", "degraded").Inc()
		c.log.WithError(err).WithField("url", url).Warn("guide parse degraded")
		return models.Schedule{}
	}
	metrics.PlaylistFetches.WithLabelValues("xmltv", "ok").Inc()
	c.log.WithFields(logrus.Fields{"url": url, "channels": len(sched)}).Info("guide fetched")
	return sched
}

// body remembers the first transport error seen while reading a response.
type body struct {
	io.ReadCloser
	err error
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && err != io.EOF && b.err == nil {
		b.err = err
	}
	return n, err
}

func (c *Client) get(ctx context.Context, url string) (*body, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: NewRequest: %v", models.ErrFetchFailed, err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrFetchFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s: HTTP %d", models.ErrFetchFailed, url, resp.StatusCode)
	}
	return &body{ReadCloser: resp.Body}, nil
}
