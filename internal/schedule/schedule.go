// Package schedule answers "what is on now, and next" for a channel.
// Every query is pure and re-evaluated by the caller on each tick.
package schedule

import (
	"sort"
	"time"

	"github.com/voyagen/goodytv/internal/models"
)

// Placeholders shown when the guide has nothing to say.
const (
	NowPlaceholder  = "Now"
	NextPlaceholder = "Next"
)

// NowNext returns the titles airing at instant at and starting after it.
// When programmes overlap, the one with the latest start is "now".
func NowNext(ch models.Channel, sched models.Schedule, at time.Time) (current, next string) {
	current, next = NowPlaceholder, NextPlaceholder
	list := sorted(ch, sched)
	for _, p := range list {
		if p.Airing(at) {
			current = p.Title
		}
	}
	for _, p := range list {
		if p.Start.After(at) {
			next = p.Title
			break
		}
	}
	return current, next
}

// Upcoming returns up to n programmes that have not finished by at,
// ordered by start. Used for guide rows.
func Upcoming(ch models.Channel, sched models.Schedule, at time.Time, n int) []models.Programme {
	var out []models.Programme
	for _, p := range sorted(ch, sched) {
		if len(out) == n {
			break
		}
		if p.Stop.After(at) {
			out = append(out, p)
		}
	}
	return out
}

// sorted returns a start-ordered copy of the channel's programmes, or nil
// when the channel has no schedule id or no guide entries.
func sorted(ch models.Channel, sched models.Schedule) []models.Programme {
	if ch.ScheduleID == nil {
		return nil
	}
	src := sched[*ch.ScheduleID]
	if len(src) == 0 {
		return nil
	}
	list := make([]models.Programme, len(src))
	copy(list, src)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Start.Before(list[j].Start) })
	return list
}
