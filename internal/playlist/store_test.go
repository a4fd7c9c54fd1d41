package playlist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/voyagen/goodytv/internal/logging"
	"github.com/voyagen/goodytv/internal/prefs"
)

func newTestStore(kv prefs.KV) *Store {
	s := NewStore(kv, logging.Discard())
	clock := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s
}

func TestStore_BuiltInsFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(prefs.NewMemory())

	if _, err := s.Add(ctx, "Mine", "http://mine/list.m3u", ""); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != len(builtIns)+1 {
		t.Fatalf("Expected %d playlists, got %d", len(builtIns)+1, len(all))
	}
	for i, b := range builtIns {
		if all[i].ID != b.ID {
			t.Errorf("position %d: expected built-in %q, got %q", i, b.ID, all[i].ID)
		}
	}
	if all[len(all)-1].Name != "Mine" {
		t.Errorf("Expected user playlist last, got %q", all[len(all)-1].Name)
	}
}

func TestStore_RemoveBuiltInIsNoop(t *testing.T) {
	ctx := context.Background()
	kv := prefs.NewMemory()
	s := newTestStore(kv)

	if err := s.Remove(ctx, "ireland"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := s.Get(ctx, "ireland"); err != nil {
		t.Errorf("Expected built-in to survive remove, got %v", err)
	}
	if err := s.UpdateChannelCount(ctx, "ireland", 999); err != nil {
		t.Fatal(err)
	}
	p, _ := s.Get(ctx, "ireland")
	if p.ChannelCount != 30 {
		t.Errorf("Expected built-in channel count unchanged, got %d", p.ChannelCount)
	}
	if _, ok, _ := kv.Get(ctx, keySaved); ok {
		t.Error("Expected built-ins never to be persisted")
	}
}

func TestStore_AddPersists(t *testing.T) {
	ctx := context.Background()
	kv := prefs.NewMemory()

	p, err := newTestStore(kv).Add(ctx, " Films ", "http://films/list.m3u", "http://films/guide.xml")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if p.ID == "" || IsBuiltIn(p.ID) {
		t.Fatalf("Expected a fresh id, got %q", p.ID)
	}

	reopened := newTestStore(kv)
	got, err := reopened.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Expected playlist after reopen, got %v", err)
	}
	if got.Name != "Films" || got.ScheduleURL != "http://films/guide.xml" {
		t.Errorf("Unexpected persisted playlist %+v", got)
	}
}

func TestStore_ActivePointer(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(prefs.NewMemory())

	if a, err := s.Active(ctx); err != nil || a != nil {
		t.Fatalf("Expected no active playlist, got %+v (%v)", a, err)
	}
	if err := s.SetActive(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	p, _ := s.Add(ctx, "Mine", "http://mine", "")
	if err := s.SetActive(ctx, p.ID); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	a, _ := s.Active(ctx)
	if a == nil || a.ID != p.ID || !a.IsActive {
		t.Fatalf("Expected %s active, got %+v", p.ID, a)
	}

	if err := s.Remove(ctx, p.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if a, _ := s.Active(ctx); a != nil {
		t.Errorf("Expected active pointer cleared, got %+v", a)
	}
}

func TestStore_ActiveBuiltIn(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(prefs.NewMemory())
	if err := s.SetActive(ctx, "news"); err != nil {
		t.Fatal(err)
	}
	all, _ := s.List(ctx)
	active := 0
	for _, p := range all {
		if p.IsActive {
			active++
			if p.ID != "news" {
				t.Errorf("Expected news active, got %s", p.ID)
			}
		}
	}
	if active != 1 {
		t.Errorf("Expected exactly one active playlist, got %d", active)
	}
}

func TestStore_UpdateAndCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(prefs.NewMemory())
	p, _ := s.Add(ctx, "Mine", "http://mine", "")

	p.Name = "Renamed"
	if err := s.Update(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateChannelCount(ctx, p.ID, 42); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, p.ID)
	if got.Name != "Renamed" || got.ChannelCount != 42 {
		t.Errorf("Unexpected playlist %+v", got)
	}
	if !got.LastUpdated.After(p.LastUpdated) {
		t.Error("Expected channel count refresh to advance LastUpdated")
	}

	ghost := p
	ghost.ID = "unknown"
	if err := s.Update(ctx, ghost); err != nil {
		t.Errorf("Expected update of unknown id to be a no-op, got %v", err)
	}
	if err := s.UpdateChannelCount(ctx, "unknown", 1); err != nil {
		t.Errorf("Expected count update of unknown id to be a no-op, got %v", err)
	}
	all, _ := s.List(ctx)
	if len(all) != len(builtIns)+1 {
		t.Errorf("Expected no playlist to be created, got %d", len(all))
	}
}

func TestStore_CorruptBlobDegrades(t *testing.T) {
	ctx := context.Background()
	kv := prefs.NewMemory()
	_ = kv.Set(ctx, keySaved, []byte("[{broken"))
	s := newTestStore(kv)

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("Expected corrupt blob to degrade, got %v", err)
	}
	if len(all) != len(builtIns) {
		t.Errorf("Expected only built-ins, got %d", len(all))
	}
	if _, err := s.Add(ctx, "Fresh", "http://fresh", ""); err != nil {
		t.Fatalf("Expected add to recover the store, got %v", err)
	}
}

func TestStore_SearchAndStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(prefs.NewMemory())
	p, _ := s.Add(ctx, "Cartoons", "http://example.com/kids.m3u", "")
	_ = s.UpdateChannelCount(ctx, p.ID, 12)

	res, _ := s.Search(ctx, "NEWS")
	if len(res) != 1 || res[0].ID != "news" {
		t.Errorf("Expected news built-in, got %+v", res)
	}
	res, _ = s.Search(ctx, "kids")
	if len(res) != 1 || res[0].ID != p.ID {
		t.Errorf("Expected URL match on user playlist, got %+v", res)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalPlaylists != 6 || st.UserPlaylistCount != 1 {
		t.Errorf("Unexpected counts %+v", st)
	}
	if st.TotalChannels != 30+50+100+200+150+12 {
		t.Errorf("Expected total channels 542, got %d", st.TotalChannels)
	}
	got, _ := s.Get(ctx, p.ID)
	if !st.MostRecentUpdate.Equal(got.LastUpdated) {
		t.Errorf("Expected most recent update %v, got %v", got.LastUpdated, st.MostRecentUpdate)
	}
}

func TestStore_CorruptNamespaceFileDegradesToBuiltIns(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, prefs.NamespacePlaylists+".json")
	if err := os.WriteFile(path, []byte(`{"saved_playlists": "[tr`), 0o644); err != nil {
		t.Fatal(err)
	}
	kv, err := prefs.NewFile(dir, prefs.NamespacePlaylists, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	s := newTestStore(kv)

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("Expected List to degrade, got %v", err)
	}
	if len(all) != len(builtIns) {
		t.Fatalf("Expected only the %d built-ins, got %d", len(builtIns), len(all))
	}
	if _, err := s.Add(ctx, "Mine", "http://mine/list.m3u", ""); err != nil {
		t.Fatalf("Expected Add to succeed over a corrupt file, got %v", err)
	}
	all, err = s.List(ctx)
	if err != nil || len(all) != len(builtIns)+1 {
		t.Errorf("Expected the added playlist to persist, got %d err=%v", len(all), err)
	}
}
