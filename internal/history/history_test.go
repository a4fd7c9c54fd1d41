package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/voyagen/goodytv/internal/logging"
	"github.com/voyagen/goodytv/internal/models"
	"github.com/voyagen/goodytv/internal/prefs"
)

func newTestHistory() *History {
	h := New(prefs.NewMemory(), logging.Discard())
	clock := time.Date(2025, 7, 1, 20, 0, 0, 0, time.UTC)
	h.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return h
}

func ch(name, group string) models.Channel {
	return models.Channel{Name: name, URL: "http://stream/" + name, Group: &group}
}

func TestRecord_MovesToFront(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory()

	_ = h.Record(ctx, ch("A", "News"), time.Minute)
	_ = h.Record(ctx, ch("B", "Sport"), time.Minute)
	_ = h.Record(ctx, ch("A", "News"), 2*time.Minute)

	items, err := h.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].ChannelID != "A" || items[1].ChannelID != "B" {
		t.Fatalf("Expected [A B], got %+v", items)
	}
	if items[0].WatchDuration != 2*time.Minute {
		t.Errorf("Expected latest duration to replace the old entry, got %v", items[0].WatchDuration)
	}
	if last, _ := h.LastChannel(ctx); last != "A" {
		t.Errorf("Expected last channel A, got %q", last)
	}
}

func TestRecord_Capped(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory()
	for i := 0; i < MaxItems+5; i++ {
		if err := h.Record(ctx, ch(fmt.Sprintf("ch%d", i), ""), 0); err != nil {
			t.Fatal(err)
		}
	}
	items, _ := h.Recent(ctx, -1)
	if len(items) != MaxItems {
		t.Fatalf("Expected %d items, got %d", MaxItems, len(items))
	}
	if items[0].ChannelID != fmt.Sprintf("ch%d", MaxItems+4) {
		t.Errorf("Expected newest first, got %s", items[0].ChannelID)
	}
}

func TestStatsAndMostWatched(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory()
	_ = h.Record(ctx, ch("A", "News"), 10*time.Minute)
	_ = h.Record(ctx, ch("B", "Sport"), 30*time.Minute)
	_ = h.Record(ctx, ch("C", "News"), 5*time.Minute)

	top, _ := h.MostWatched(ctx, 1)
	if len(top) != 1 || top[0].ChannelID != "B" {
		t.Errorf("Expected B most watched, got %+v", top)
	}

	st, err := h.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalChannelsWatched != 3 || st.TotalWatchTime != 45*time.Minute {
		t.Errorf("Unexpected stats %+v", st)
	}
	if st.MostWatchedGroup != "Sport" {
		t.Errorf("Expected Sport, got %q", st.MostWatchedGroup)
	}
	if st.AverageSession != 15*time.Minute {
		t.Errorf("Expected 15m average, got %v", st.AverageSession)
	}

	if err := h.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	st, _ = h.Stats(ctx)
	if st.TotalChannelsWatched != 0 || st.TotalWatchTime != 45*time.Minute {
		t.Errorf("Expected cleared entries but kept total, got %+v", st)
	}
}
