package fetcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/voyagen/goodytv/internal/models"
)

// ErrSuperseded is returned by Loader.Load when a newer load for the same
// target started before this one finished. The stale result is discarded.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Loader runs playlist loads with at most one in flight per target
// (e.g. "active-playlist"). Starting a new load cancels the previous one.
type Loader struct {
	client *Client
	log    *logrus.Entry
	now    func() time.Time

	mu       sync.Mutex
	seq      uint64
	inflight map[string]flight
}

type flight struct {
	id     uint64
	cancel context.CancelFunc
}

// NewLoader creates a Loader that fetches with client.
func NewLoader(client *Client, log *logrus.Entry) *Loader {
	return &Loader{
		client:   client,
		log:      log,
		now:      time.Now,
		inflight: make(map[string]flight),
	}
}

// Load fetches the playlist and, when scheduleURL is set, its guide in
// parallel. A guide failure yields an empty schedule; a playlist failure
// fails the load with models.ErrFetchFailed.
func (l *Loader) Load(ctx context.Context, target, playlistURL, scheduleURL string) (*Result, error) {
	ctx, id := l.begin(ctx, target)
	res, err := l.load(ctx, playlistURL, scheduleURL)
	if !l.finish(target, id) {
		l.log.WithFields(logrus.Fields{"target": target, "url": playlistURL}).Debug("stale load discarded")
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// InFlight reports whether a load for target is currently running.
func (l *Loader) InFlight(target string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.inflight[target]
	return ok
}

func (l *Loader) load(ctx context.Context, playlistURL, scheduleURL string) (*Result, error) {
	res := &Result{Schedule: models.Schedule{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		channels, err := l.client.FetchM3U(gctx, playlistURL)
		if err != nil {
			return err
		}
		res.Channels = channels
		return nil
	})
	if scheduleURL != "" {
		g.Go(func() error {
			res.Schedule = l.client.FetchSchedule(gctx, scheduleURL)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.FetchedAt = l.now()
	return res, nil
}

func (l *Loader) begin(parent context.Context, target string) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.inflight[target]; ok {
		prev.cancel()
	}
	l.seq++
	l.inflight[target] = flight{id: l.seq, cancel: cancel}
	return ctx, l.seq
}

// finish releases the slot for target and reports whether id still owned it.
func (l *Loader) finish(target string, id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.inflight[target]
	if !ok || f.id != id {
		return false
	}
	f.cancel()
	delete(l.inflight, target)
	return true
}
