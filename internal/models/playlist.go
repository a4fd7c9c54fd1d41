package models

import "time"

// SavedPlaylist is a named M3U source the user can switch between.
type SavedPlaylist struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SourceURL    string    `json:"url"`
	ScheduleURL  string    `json:"xmltv_url,omitempty"`
	ChannelCount int       `json:"channel_count"`
	LastUpdated  time.Time `json:"last_updated"`
	IsActive     bool      `json:"is_active"`
}

// PlaylistStats summarises all known playlists.
type PlaylistStats struct {
	TotalPlaylists    int       `json:"total_playlists"`
	TotalChannels     int       `json:"total_channels"`
	UserPlaylistCount int       `json:"user_playlists"`
	MostRecentUpdate  time.Time `json:"last_updated"`
}
