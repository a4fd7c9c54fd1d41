// Package history keeps a capped, most-recent-first record of watched channels.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voyagen/goodytv/internal/models"
	"github.com/voyagen/goodytv/internal/prefs"
)

// MaxItems caps the stored history.
const MaxItems = 50

const (
	keyItems     = "watch_history_json"
	keyLast      = "last_channel_id"
	keyTotalTime = "total_watch_time"
)

type History struct {
	kv  prefs.KV
	log *logrus.Entry
	now func() time.Time

	mu sync.Mutex
}

func New(kv prefs.KV, log *logrus.Entry) *History {
	return &History{kv: kv, log: log, now: time.Now}
}

// Record moves ch to the front of the history, replacing any earlier entry
// with the same identity, and adds watched to the running total.
func (h *History) Record(ctx context.Context, ch models.Channel, watched time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	items, err := h.items(ctx)
	if err != nil {
		return err
	}
	item := models.WatchHistoryItem{
		ChannelID:     ch.Identity(),
		ChannelName:   ch.Name,
		ChannelURL:    ch.URL,
		ChannelGroup:  ch.GroupName(),
		LastWatched:   h.now().UTC(),
		WatchDuration: watched,
	}
	next := make([]models.WatchHistoryItem, 0, len(items)+1)
	next = append(next, item)
	for _, it := range items {
		if it.ChannelID != item.ChannelID {
			next = append(next, it)
		}
	}
	if len(next) > MaxItems {
		next = next[:MaxItems]
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.kv.Set(ctx, keyItems, raw); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	if err := h.kv.Set(ctx, keyLast, []byte(item.ChannelID)); err != nil {
		return fmt.Errorf("save last channel: %w", err)
	}
	total, err := h.totalTime(ctx)
	if err != nil {
		return err
	}
	total += watched
	if err := h.kv.Set(ctx, keyTotalTime, []byte(strconv.FormatInt(total.Milliseconds(), 10))); err != nil {
		return fmt.Errorf("save watch time: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]models.WatchHistoryItem, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	items, err := h.items(ctx)
	if err != nil {
		return nil, err
	}
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// MostWatched returns up to limit entries ordered by watch duration.
func (h *History) MostWatched(ctx context.Context, limit int) ([]models.WatchHistoryItem, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	items, err := h.items(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].WatchDuration > items[j].WatchDuration })
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// LastChannel returns the identity of the most recently recorded channel.
func (h *History) LastChannel(ctx context.Context) (string, error) {
	raw, _, err := h.kv.Get(ctx, keyLast)
	if err != nil {
		return "", fmt.Errorf("load last channel: %w", err)
	}
	return string(raw), nil
}

// Clear drops the entries and last channel. The running total is kept.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.kv.Delete(ctx, keyItems); err != nil {
		return err
	}
	return h.kv.Delete(ctx, keyLast)
}

func (h *History) Stats(ctx context.Context) (models.WatchStats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	items, err := h.items(ctx)
	if err != nil {
		return models.WatchStats{}, err
	}
	total, err := h.totalTime(ctx)
	if err != nil {
		return models.WatchStats{}, err
	}

	st := models.WatchStats{TotalChannelsWatched: len(items), TotalWatchTime: total}
	byGroup := map[string]time.Duration{}
	var groups []string
	for _, it := range items {
		if _, seen := byGroup[it.ChannelGroup]; !seen {
			groups = append(groups, it.ChannelGroup)
		}
		byGroup[it.ChannelGroup] += it.WatchDuration
	}
	var best time.Duration = -1
	for _, g := range groups {
		if byGroup[g] > best {
			best = byGroup[g]
			st.MostWatchedGroup = g
		}
	}
	if len(items) > 0 {
		st.AverageSession = total / time.Duration(len(items))
	}
	return st, nil
}

// items decodes the stored list; a corrupt blob reads as empty.
func (h *History) items(ctx context.Context) ([]models.WatchHistoryItem, error) {
	raw, ok, err := h.kv.Get(ctx, keyItems)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var items []models.WatchHistoryItem
	if err := json.Unmarshal(raw, &items); err != nil {
		h.log.WithError(err).Warn("watch history unreadable, starting empty")
		return nil, nil
	}
	return items, nil
}

func (h *History) totalTime(ctx context.Context) (time.Duration, error) {
	raw, ok, err := h.kv.Get(ctx, keyTotalTime)
	if err != nil {
		return 0, fmt.Errorf("load watch time: %w", err)
	}
	if !ok {
		return 0, nil
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, nil
	}
	return time.Duration(ms) * time.Millisecond, nil
}
