package models

// Channel represents a single stream entry from an M3U (name, url, logo, group, tvg-id).
type Channel struct {
	Name       string  `json:"name"`
	URL        string  `json:"url"`
	Logo       *string `json:"logo,omitempty"`
	Group      *string `json:"group,omitempty"`
	ScheduleID *string `json:"schedule_id,omitempty"` // tvg-id; links the channel to its XMLTV programmes
}

// Identity returns the key used for favorites and watch history:
// the schedule id when present, otherwise the display name.
func (c Channel) Identity() string {
	if c.ScheduleID != nil && *c.ScheduleID != "" {
		return *c.ScheduleID
	}
	return c.Name
}

// GroupName returns the group title or "" when the channel has none.
func (c Channel) GroupName() string {
	if c.Group == nil {
		return ""
	}
	return *c.Group
}
