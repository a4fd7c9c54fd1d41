package models

import "time"

// Programme is a single XMLTV guide entry. Start and Stop are UTC.
type Programme struct {
	ChannelID string    `json:"channel_id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	Stop      time.Time `json:"stop"`
}

// Airing reports whether at falls within [Start, Stop).
func (p Programme) Airing(at time.Time) bool {
	return !p.Start.After(at) && at.Before(p.Stop)
}

// Schedule maps a schedule id (tvg-id) to its programmes, in document order.
type Schedule map[string][]Programme
