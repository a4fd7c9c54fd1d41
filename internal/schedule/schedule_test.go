package schedule

import (
	"strings"
	"testing"
	"time"

	"github.com/voyagen/goodytv/internal/fetcher"
	"github.com/voyagen/goodytv/internal/models"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return epoch.Add(time.Duration(sec) * time.Second) }

func prog(title string, start, stop int) models.Programme {
	return models.Programme{ChannelID: "ch", Title: title, Start: at(start), Stop: at(stop)}
}

func channel(id string) models.Channel {
	return models.Channel{Name: "Test", URL: "http://x", ScheduleID: &id}
}

func TestNowNext(t *testing.T) {
	// Deliberately out of order: NowNext must sort.
	sched := models.Schedule{"ch": {prog("B", 200, 300), prog("A", 100, 200)}}
	ch := channel("ch")

	tests := []struct {
		instant  int
		wantNow  string
		wantNext string
	}{
		{instant: 150, wantNow: "A", wantNext: "B"},
		{instant: 250, wantNow: "B", wantNext: NextPlaceholder},
		{instant: 50, wantNow: NowPlaceholder, wantNext: "A"},
		{instant: 200, wantNow: "B", wantNext: NextPlaceholder},
		{instant: 300, wantNow: NowPlaceholder, wantNext: NextPlaceholder},
	}
	for _, tt := range tests {
		now, next := NowNext(ch, sched, at(tt.instant))
		if now != tt.wantNow || next != tt.wantNext {
			t.Errorf("at %d: expected (%q, %q), got (%q, %q)", tt.instant, tt.wantNow, tt.wantNext, now, next)
		}
	}
}

func TestNowNext_OverlapLatestStartWins(t *testing.T) {
	sched := models.Schedule{"ch": {prog("Long", 0, 1000), prog("Short", 100, 200), prog("Later", 500, 600)}}
	now, next := NowNext(channel("ch"), sched, at(150))
	if now != "Short" || next != "Later" {
		t.Errorf("Expected (Short, Later), got (%q, %q)", now, next)
	}
}

func TestNowNext_Placeholders(t *testing.T) {
	sched := models.Schedule{"ch": {prog("A", 100, 200)}}

	noID := models.Channel{Name: "No guide", URL: "http://x"}
	if now, next := NowNext(noID, sched, at(150)); now != "Now" || next != "Next" {
		t.Errorf("channel without schedule id: got (%q, %q)", now, next)
	}
	if now, next := NowNext(channel("other"), sched, at(150)); now != "Now" || next != "Next" {
		t.Errorf("unknown schedule id: got (%q, %q)", now, next)
	}
}

func TestNowNext_DegradedGuide(t *testing.T) {
	sched, err := fetcher.ParseXMLTV(strings.NewReader("<tv><programme channel=\"ch\" start=\"2025"))
	if err == nil {
		t.Fatal("Expected truncated guide to report degradation")
	}
	if len(sched) != 0 {
		t.Fatalf("Expected empty schedule, got %d", len(sched))
	}
	for _, id := range []string{"ch", "anything"} {
		if now, next := NowNext(channel(id), sched, at(0)); now != "Now" || next != "Next" {
			t.Errorf("%s: expected placeholders, got (%q, %q)", id, now, next)
		}
	}
}

func TestNowNext_DoesNotMutateInput(t *testing.T) {
	list := []models.Programme{prog("B", 200, 300), prog("A", 100, 200)}
	sched := models.Schedule{"ch": list}
	NowNext(channel("ch"), sched, at(150))
	if sched["ch"][0].Title != "B" {
		t.Error("Expected caller's programme slice to keep its order")
	}
}

func TestUpcoming(t *testing.T) {
	sched := models.Schedule{"ch": {prog("C", 300, 400), prog("A", 100, 200), prog("B", 200, 300)}}
	got := Upcoming(channel("ch"), sched, at(150), 2)
	if len(got) != 2 || got[0].Title != "A" || got[1].Title != "B" {
		t.Errorf("Expected [A B], got %+v", got)
	}
	if got := Upcoming(models.Channel{Name: "x"}, sched, at(0), 5); got != nil {
		t.Errorf("Expected nil for channel without guide, got %+v", got)
	}
}
