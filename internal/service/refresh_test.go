package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voyagen/goodytv/internal/fetcher"
	"github.com/voyagen/goodytv/internal/logging"
	"github.com/voyagen/goodytv/internal/models"
	"github.com/voyagen/goodytv/internal/playlist"
	"github.com/voyagen/goodytv/internal/prefs"
)

const twoChannels = "#EXTM3U\n" +
	"#EXTINF:-1 tvg-id=\"one.ie\",One\nhttp://stream/one\n" +
	"#EXTINF:-1 tvg-id=\"two.ie\",Two\nhttp://stream/two\n"

type fixture struct {
	srv       *httptest.Server
	playlists *playlist.Store
	prefs     *prefs.Preferences
	refresher *Refresher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/list.m3u", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, twoChannels)
	})
	mux.HandleFunc("/guide.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<tv><programme start="20250716230000 +0000" stop="20250717003000 +0000" channel="one.ie"><title>News</title></programme></tv>`)
	})
	mux.HandleFunc("/gone.m3u", http.NotFound)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	log := logging.Discard()
	f := &fixture{
		srv:       srv,
		playlists: playlist.NewStore(prefs.NewMemory(), log),
		prefs:     prefs.NewPreferences(prefs.NewMemory()),
	}
	loader := fetcher.NewLoader(fetcher.NewClient("goodytv-test", 5*time.Second, log), log)
	f.refresher = NewRefresher(loader, f.playlists, f.prefs, log)
	return f
}

func TestSwitch_ActivatesLoadedPlaylist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p, err := f.playlists.Add(ctx, "Mine", f.srv.URL+"/list.m3u", f.srv.URL+"/guide.xml")
	if err != nil {
		t.Fatal(err)
	}

	res, err := f.refresher.Switch(ctx, p.ID)
	if err != nil {
		t.Fatalf("Switch failed: %v", err)
	}
	if len(res.Channels) != 2 || len(res.Schedule["one.ie"]) != 1 {
		t.Errorf("Expected 2 channels and a guide entry, got %d / %+v", len(res.Channels), res.Schedule)
	}

	active, err := f.playlists.Active(ctx)
	if err != nil || active == nil || active.ID != p.ID {
		t.Fatalf("Expected %s to be active, got %+v (%v)", p.ID, active, err)
	}
	if active.ChannelCount != 2 || active.LastUpdated.IsZero() {
		t.Errorf("Expected refreshed count and timestamp, got %+v", active)
	}
	if got, _ := f.prefs.PlaylistURL(ctx); got != p.SourceURL {
		t.Errorf("Expected playlist_url %q, got %q", p.SourceURL, got)
	}
	if got, _ := f.prefs.ScheduleURL(ctx); got != p.ScheduleURL {
		t.Errorf("Expected xmltv_url %q, got %q", p.ScheduleURL, got)
	}
}

func TestSwitch_FailedLoadChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p, err := f.playlists.Add(ctx, "Broken", f.srv.URL+"/gone.m3u", "")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.refresher.Switch(ctx, p.ID); !errors.Is(err, models.ErrFetchFailed) {
		t.Fatalf("Expected ErrFetchFailed, got %v", err)
	}
	if active, _ := f.playlists.Active(ctx); active != nil {
		t.Errorf("Expected no active playlist, got %+v", active)
	}
	if got, _ := f.prefs.PlaylistURL(ctx); got != prefs.DefaultPlaylistURL {
		t.Errorf("Expected default playlist_url, got %q", got)
	}
}

func TestSwitch_UnknownID(t *testing.T) {
	f := newFixture(t)
	if _, err := f.refresher.Switch(context.Background(), "nope"); !errors.Is(err, playlist.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCurrent_FallsBackToPreferences(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if err := f.prefs.SetPlaylistURL(ctx, f.srv.URL+"/list.m3u"); err != nil {
		t.Fatal(err)
	}

	res, err := f.refresher.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if len(res.Channels) != 2 {
		t.Errorf("Expected 2 channels, got %d", len(res.Channels))
	}
	if len(res.Schedule) != 0 {
		t.Errorf("Expected no guide without xmltv_url, got %+v", res.Schedule)
	}
}

func TestFavorites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.refresher.loader.Load(ctx, TargetActive, f.srv.URL+"/list.m3u", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.prefs.ToggleFavorite(ctx, res.Channels[1]); err != nil {
		t.Fatal(err)
	}

	favs, err := f.refresher.Favorites(ctx, res.Channels)
	if err != nil {
		t.Fatal(err)
	}
	if len(favs) != 1 || favs[0].Name != "Two" {
		t.Errorf("Expected [Two], got %+v", favs)
	}
}
