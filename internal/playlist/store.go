// Package playlist manages the set of playlists a user can switch between:
// a fixed table of built-ins plus user-added entries persisted in a
// prefs namespace.
package playlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/voyagen/goodytv/internal/models"
	"github.com/voyagen/goodytv/internal/prefs"
)

// ErrNotFound is returned when an id matches no playlist.
var ErrNotFound = errors.New("playlist not found")

const (
	keySaved  = "saved_playlists"
	keyActive = "active_playlist_id"
)

var builtIns = []models.SavedPlaylist{
	{ID: "ireland", Name: "Ireland TV", SourceURL: "https://iptv-org.github.io/iptv/countries/ie.m3u", ChannelCount: 30},
	{ID: "uk", Name: "UK TV", SourceURL: "https://iptv-org.github.io/iptv/countries/uk.m3u", ChannelCount: 50},
	{ID: "us", Name: "US TV", SourceURL: "https://iptv-org.github.io/iptv/countries/us.m3u", ChannelCount: 100},
	{ID: "sports", Name: "Sports Channels", SourceURL: "https://iptv-org.github.io/iptv/categories/sports.m3u", ChannelCount: 200},
	{ID: "news", Name: "News Channels", SourceURL: "https://iptv-org.github.io/iptv/categories/news.m3u", ChannelCount: 150},
}

// IsBuiltIn reports whether id is reserved for a built-in playlist.
func IsBuiltIn(id string) bool {
	for _, b := range builtIns {
		if b.ID == id {
			return true
		}
	}
	return false
}

// Store is safe for concurrent use.
type Store struct {
	kv  prefs.KV
	log *logrus.Entry
	now func() time.Time

	mu sync.Mutex
}

// NewStore returns a Store persisting user playlists in kv.
func NewStore(kv prefs.KV, log *logrus.Entry) *Store {
	return &Store{kv: kv, log: log, now: time.Now}
}

// List returns the built-ins in their fixed order followed by user playlists.
func (s *Store) List(ctx context.Context) ([]models.SavedPlaylist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx)
}

// Add creates a user playlist with a fresh id and persists it.
func (s *Store) Add(ctx context.Context, name, sourceURL, scheduleURL string) (models.SavedPlaylist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.loadUser(ctx)
	if err != nil {
		return models.SavedPlaylist{}, err
	}
	p := models.SavedPlaylist{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		SourceURL:   strings.TrimSpace(sourceURL),
		ScheduleURL: strings.TrimSpace(scheduleURL),
		LastUpdated: s.now().UTC(),
	}
	if err := s.saveUser(ctx, append(user, p)); err != nil {
		return models.SavedPlaylist{}, err
	}
	s.log.WithFields(logrus.Fields{"playlist_id": p.ID, "name": p.Name}).Info("playlist added")
	return p, nil
}

// Remove deletes a user playlist. Built-in and unknown ids are a no-op.
// Removing the active playlist clears the active selection.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if IsBuiltIn(id) {
		return nil
	}
	user, err := s.loadUser(ctx)
	if err != nil {
		return err
	}
	kept := user[:0]
	for _, p := range user {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(user) {
		return nil
	}
	if err := s.saveUser(ctx, kept); err != nil {
		return err
	}
	active, err := s.activeID(ctx)
	if err != nil {
		return err
	}
	if active == id {
		if err := s.kv.Delete(ctx, keyActive); err != nil {
			return err
		}
	}
	return nil
}

// Update replaces the user playlist with the same id. Unknown and built-in
// ids are a no-op.
func (s *Store) Update(ctx context.Context, p models.SavedPlaylist) error {
	return s.modify(ctx, p.ID, func(cur *models.SavedPlaylist) {
		p.IsActive = false
		*cur = p
	})
}

// UpdateChannelCount records a fresh channel count and stamps LastUpdated.
func (s *Store) UpdateChannelCount(ctx context.Context, id string, count int) error {
	now := s.now().UTC()
	return s.modify(ctx, id, func(cur *models.SavedPlaylist) {
		cur.ChannelCount = count
		cur.LastUpdated = now
	})
}

// SetActive selects a playlist. The id must name a known playlist.
func (s *Store) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.list(ctx)
	if err != nil {
		return err
	}
	if find(all, id) == nil {
		return fmt.Errorf("set active %s: %w", id, ErrNotFound)
	}
	return s.kv.Set(ctx, keyActive, []byte(id))
}

// Active returns the selected playlist, or nil when nothing is selected.
func (s *Store) Active(ctx context.Context) (*models.SavedPlaylist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].IsActive {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Get returns the playlist with id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*models.SavedPlaylist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	if p := find(all, id); p != nil {
		return p, nil
	}
	return nil, ErrNotFound
}

// Search matches query case-insensitively against name and source URL.
func (s *Store) Search(ctx context.Context, query string) ([]models.SavedPlaylist, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []models.SavedPlaylist
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.SourceURL), q) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Stats summarises every playlist, built-ins included.
func (s *Store) Stats(ctx context.Context) (models.PlaylistStats, error) {
	all, err := s.List(ctx)
	if err != nil {
		return models.PlaylistStats{}, err
	}
	st := models.PlaylistStats{TotalPlaylists: len(all)}
	for _, p := range all {
		st.TotalChannels += p.ChannelCount
		if !IsBuiltIn(p.ID) {
			st.UserPlaylistCount++
		}
		if p.LastUpdated.After(st.MostRecentUpdate) {
			st.MostRecentUpdate = p.LastUpdated
		}
	}
	return st, nil
}

func (s *Store) modify(ctx context.Context, id string, fn func(*models.SavedPlaylist)) error {
	if IsBuiltIn(id) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.loadUser(ctx)
	if err != nil {
		return err
	}
	for i := range user {
		if user[i].ID == id {
			fn(&user[i])
			user[i].ID = id
			return s.saveUser(ctx, user)
		}
	}
	return nil
}

func (s *Store) list(ctx context.Context) ([]models.SavedPlaylist, error) {
	user, err := s.loadUser(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.activeID(ctx)
	if err != nil {
		return nil, err
	}
	all := make([]models.SavedPlaylist, 0, len(builtIns)+len(user))
	all = append(all, builtIns...)
	all = append(all, user...)
	for i := range all {
		all[i].IsActive = active != "" && all[i].ID == active
	}
	return all, nil
}

// loadUser decodes the persisted user list. An undecodable blob is treated
// as an empty list.
func (s *Store) loadUser(ctx context.Context) ([]models.SavedPlaylist, error) {
	raw, ok, err := s.kv.Get(ctx, keySaved)
	if err != nil {
		return nil, fmt.Errorf("load playlists: %w", err)
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	var user []models.SavedPlaylist
	if err := json.Unmarshal(raw, &user); err != nil {
		s.log.WithError(err).Warn("saved playlists unreadable, starting empty")
		return nil, nil
	}
	return user, nil
}

func (s *Store) saveUser(ctx context.Context, user []models.SavedPlaylist) error {
	for i := range user {
		user[i].IsActive = false
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode playlists: %w", err)
	}
	if err := s.kv.Set(ctx, keySaved, raw); err != nil {
		return fmt.Errorf("save playlists: %w", err)
	}
	return nil
}

func (s *Store) activeID(ctx context.Context) (string, error) {
	raw, _, err := s.kv.Get(ctx, keyActive)
	if err != nil {
		return "", fmt.Errorf("load active playlist: %w", err)
	}
	return string(raw), nil
}

func find(all []models.SavedPlaylist, id string) *models.SavedPlaylist {
	for i := range all {
		if all[i].ID == id {
			return &all[i]
		}
	}
	return nil
}
