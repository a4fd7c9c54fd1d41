// Package service ties the playlist catalogue, the fetcher and the user's
// preferences together into the operations the player front-end calls.
package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/voyagen/goodytv/internal/fetcher"
	"github.com/voyagen/goodytv/internal/models"
	"github.com/voyagen/goodytv/internal/playlist"
	"github.com/voyagen/goodytv/internal/prefs"
)

// TargetActive is the loader slot for the playlist shown in the player.
const TargetActive = "active-playlist"

// Refresher loads playlists and keeps the catalogue and preferences in
// step with what was loaded.
type Refresher struct {
	loader    *fetcher.Loader
	playlists *playlist.Store
	prefs     *prefs.Preferences
	log       *logrus.Entry
}

func NewRefresher(loader *fetcher.Loader, playlists *playlist.Store, p *prefs.Preferences, log *logrus.Entry) *Refresher {
	return &Refresher{loader: loader, playlists: playlists, prefs: p, log: log}
}

// Switch loads the playlist with id and, once it loaded, makes it the
// active one: its channel count is refreshed and its URLs become the
// preferred playlist and guide. A failed or superseded load changes nothing.
func (r *Refresher) Switch(ctx context.Context, id string) (*fetcher.Result, error) {
	p, err := r.playlists.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("switch %s: %w", id, err)
	}
	res, err := r.loader.Load(ctx, TargetActive, p.SourceURL, p.ScheduleURL)
	if err != nil {
		return nil, err
	}

	if err := r.playlists.UpdateChannelCount(ctx, p.ID, len(res.Channels)); err != nil {
		return nil, fmt.Errorf("UpdateChannelCount: %w", err)
	}
	if err := r.playlists.SetActive(ctx, p.ID); err != nil {
		return nil, fmt.Errorf("SetActive: %w", err)
	}
	if err := r.prefs.SetPlaylistURL(ctx, p.SourceURL); err != nil {
		return nil, fmt.Errorf("SetPlaylistURL: %w", err)
	}
	if err := r.prefs.SetScheduleURL(ctx, p.ScheduleURL); err != nil {
		return nil, fmt.Errorf("SetScheduleURL: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"playlist": p.ID,
		"channels": len(res.Channels),
		"guide":    len(res.Schedule),
	}).Info("playlist switched")
	return res, nil
}

// Current loads whatever the player should show: the active playlist when
// one is selected, otherwise the stored playlist and guide URLs.
func (r *Refresher) Current(ctx context.Context) (*fetcher.Result, error) {
	active, err := r.playlists.Active(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return r.Switch(ctx, active.ID)
	}

	playlistURL, err := r.prefs.PlaylistURL(ctx)
	if err != nil {
		return nil, err
	}
	scheduleURL, err := r.prefs.ScheduleURL(ctx)
	if err != nil {
		return nil, err
	}
	return r.loader.Load(ctx, TargetActive, playlistURL, scheduleURL)
}

// Favorites filters channels down to the user's favorites, keeping order.
func (r *Refresher) Favorites(ctx context.Context, channels []models.Channel) ([]models.Channel, error) {
	var out []models.Channel
	for _, ch := range channels {
		ok, err := r.prefs.IsFavorite(ctx, ch)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, ch)
		}
	}
	return out, nil
}
