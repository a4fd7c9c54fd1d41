package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/voyagen/goodytv/internal/models"
)

// Namespace names shared by the client-side packages.
const (
	NamespacePreferences = "goody_prefs"
	NamespacePaywall     = "paywall_prefs"
	NamespacePlaylists   = "playlist_manager"
	NamespaceHistory     = "watch_history"
)

// DefaultPlaylistURL is used until the user picks something else.
const DefaultPlaylistURL = "https://iptv-org.github.io/iptv/countries/ie.m3u"

const (
	keyPlaylistURL = "playlist_url"
	keyScheduleURL = "xmltv_url"
	keyFavorites   = "favorites"
	keyLastURL     = "last_url"
)

// Change describes a single preference write.
type Change struct {
	Key   string
	Value string
}

// Preferences is the typed view over the goody_prefs namespace. Writers
// notify subscribers after the value is stored.
type Preferences struct {
	kv KV

	// favMu serialises read-modify-write of the favorite set.
	favMu sync.Mutex

	mu     sync.Mutex
	nextID int
	subs   map[int]func(Change)
}

// NewPreferences wraps kv.
func NewPreferences(kv KV) *Preferences {
	return &Preferences{kv: kv, subs: make(map[int]func(Change))}
}

// Subscribe registers fn to be called after every successful write. The
// returned function removes the subscription.
func (p *Preferences) Subscribe(fn func(Change)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

func (p *Preferences) notify(c Change) {
	p.mu.Lock()
	fns := make([]func(Change), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// PlaylistURL returns the selected playlist URL or DefaultPlaylistURL.
func (p *Preferences) PlaylistURL(ctx context.Context) (string, error) {
	v, ok, err := p.getString(ctx, keyPlaylistURL)
	if err != nil || !ok {
		return DefaultPlaylistURL, err
	}
	return v, nil
}

func (p *Preferences) SetPlaylistURL(ctx context.Context, url string) error {
	return p.setString(ctx, keyPlaylistURL, url)
}

// ScheduleURL returns the XMLTV URL, or "" when none is configured.
func (p *Preferences) ScheduleURL(ctx context.Context) (string, error) {
	v, _, err := p.getString(ctx, keyScheduleURL)
	return v, err
}

// SetScheduleURL stores the XMLTV URL; an empty url clears it.
func (p *Preferences) SetScheduleURL(ctx context.Context, url string) error {
	if url == "" {
		if err := p.kv.Delete(ctx, keyScheduleURL); err != nil {
			return err
		}
		p.notify(Change{Key: keyScheduleURL})
		return nil
	}
	return p.setString(ctx, keyScheduleURL, url)
}

func (p *Preferences) LastURL(ctx context.Context) (string, error) {
	v, _, err := p.getString(ctx, keyLastURL)
	return v, err
}

func (p *Preferences) SetLastURL(ctx context.Context, url string) error {
	return p.setString(ctx, keyLastURL, url)
}

// Favorites returns the favorited channel identities, sorted.
func (p *Preferences) Favorites(ctx context.Context) ([]string, error) {
	set, err := p.favorites(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// IsFavorite reports whether ch is in the favorite set.
func (p *Preferences) IsFavorite(ctx context.Context, ch models.Channel) (bool, error) {
	set, err := p.favorites(ctx)
	if err != nil {
		return false, err
	}
	_, ok := set[ch.Identity()]
	return ok, nil
}

// ToggleFavorite adds or removes ch and returns whether it is now a favorite.
func (p *Preferences) ToggleFavorite(ctx context.Context, ch models.Channel) (bool, error) {
	p.favMu.Lock()
	defer p.favMu.Unlock()
	set, err := p.favorites(ctx)
	if err != nil {
		return false, err
	}
	id := ch.Identity()
	_, was := set[id]
	if was {
		delete(set, id)
	} else {
		set[id] = struct{}{}
	}
	if err := p.saveFavorites(ctx, set); err != nil {
		return was, err
	}
	return !was, nil
}

// favorites decodes the stored set. A corrupt blob reads as empty.
func (p *Preferences) favorites(ctx context.Context) (map[string]struct{}, error) {
	raw, ok, err := p.kv.Get(ctx, keyFavorites)
	if err != nil {
		return nil, err
	}
	set := map[string]struct{}{}
	if !ok {
		return set, nil
	}
	var ids []string
	if json.Unmarshal(raw, &ids) != nil {
		return set, nil
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (p *Preferences) saveFavorites(ctx context.Context, set map[string]struct{}) error {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	if err := p.kv.Set(ctx, keyFavorites, raw); err != nil {
		return err
	}
	p.notify(Change{Key: keyFavorites, Value: string(raw)})
	return nil
}

func (p *Preferences) getString(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := p.kv.Get(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	return string(raw), true, nil
}

func (p *Preferences) setString(ctx context.Context, key, value string) error {
	if err := p.kv.Set(ctx, key, []byte(value)); err != nil {
		return err
	}
	p.notify(Change{Key: key, Value: value})
	return nil
}
