package models

import "time"

// WatchHistoryItem records the last time a channel was played.
type WatchHistoryItem struct {
	ChannelID     string        `json:"channel_id"`
	ChannelName   string        `json:"channel_name"`
	ChannelURL    string        `json:"channel_url"`
	ChannelGroup  string        `json:"channel_group,omitempty"`
	LastWatched   time.Time     `json:"last_watched"`
	WatchDuration time.Duration `json:"watch_duration"`
}

// WatchStats aggregates the watch history.
type WatchStats struct {
	TotalChannelsWatched int           `json:"total_channels_watched"`
	TotalWatchTime       time.Duration `json:"total_watch_time"`
	MostWatchedGroup     string        `json:"most_watched_group"`
	AverageSession       time.Duration `json:"average_session"`
}
