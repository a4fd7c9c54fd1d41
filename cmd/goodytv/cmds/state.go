package cmds

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/voyagen/goodytv/internal/cache"
	"github.com/voyagen/goodytv/internal/config"
	"github.com/voyagen/goodytv/internal/entitlement"
	"github.com/voyagen/goodytv/internal/fetcher"
	"github.com/voyagen/goodytv/internal/history"
	"github.com/voyagen/goodytv/internal/models"
	"github.com/voyagen/goodytv/internal/playlist"
	"github.com/voyagen/goodytv/internal/prefs"
	"github.com/voyagen/goodytv/internal/service"
)

const keyDeviceID = "device_id"

// client is the persisted state of one installation: files under DATA_DIR,
// or a Redis hash per namespace when REDIS_URL is set.
type client struct {
	cfg       *config.Config
	rds       *cache.Redis
	log       *logrus.Entry
	paywallKV prefs.KV
	prefs     *prefs.Preferences
	playlists *playlist.Store
	history   *history.History
	paywall   *entitlement.Machine
	refresher *service.Refresher
}

func openClient() (*client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := newLogger(cfg, "goodytv-client")

	var rds *cache.Redis
	open := func(ns string) (prefs.KV, error) {
		return prefs.NewFile(cfg.DataDir, ns, log)
	}
	if cfg.RedisURL != "" {
		if rds, err = cache.New(cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		installation, err := os.Hostname()
		if err != nil {
			installation = "default"
		}
		open = func(ns string) (prefs.KV, error) {
			return prefs.NewRedisKV(rds, installation, ns), nil
		}
	}
	prefKV, err := open(prefs.NamespacePreferences)
	if err != nil {
		return nil, err
	}
	paywallKV, err := open(prefs.NamespacePaywall)
	if err != nil {
		return nil, err
	}
	playlistKV, err := open(prefs.NamespacePlaylists)
	if err != nil {
		return nil, err
	}
	historyKV, err := open(prefs.NamespaceHistory)
	if err != nil {
		return nil, err
	}

	c := &client{
		cfg:       cfg,
		rds:       rds,
		log:       log,
		paywallKV: paywallKV,
		prefs:     prefs.NewPreferences(prefKV),
		playlists: playlist.NewStore(playlistKV, log),
		history:   history.New(historyKV, log),
		paywall:   entitlement.New(paywallKV, log),
	}
	loader := fetcher.NewLoader(fetcher.NewClient(cfg.UserAgent, cfg.Timeout, log), log)
	c.refresher = service.NewRefresher(loader, c.playlists, c.prefs, log)
	return c, nil
}

func (c *client) Close() {
	if c.rds != nil {
		_ = c.rds.Close()
	}
}

// deviceID returns the installation's device id, minting one on first use.
func (c *client) deviceID(ctx context.Context) (string, error) {
	v, ok, err := c.paywallKV.Get(ctx, keyDeviceID)
	if err != nil {
		return "", err
	}
	if ok && len(v) > 0 {
		return string(v), nil
	}
	id := "device_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := c.paywallKV.Set(ctx, keyDeviceID, []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}

// load returns the channels of playlistID, or of the current selection
// when playlistID is empty.
func (c *client) load(ctx context.Context, playlistID string) (*fetcher.Result, error) {
	if playlistID != "" {
		return c.refresher.Switch(ctx, playlistID)
	}
	return c.refresher.Current(ctx)
}

// findChannel matches name against identity first, then display name,
// case-insensitively.
func findChannel(channels []models.Channel, name string) (models.Channel, error) {
	for _, ch := range channels {
		if strings.EqualFold(ch.Identity(), name) {
			return ch, nil
		}
	}
	for _, ch := range channels {
		if strings.EqualFold(ch.Name, name) {
			return ch, nil
		}
	}
	return models.Channel{}, fmt.Errorf("no channel named %q", name)
}
