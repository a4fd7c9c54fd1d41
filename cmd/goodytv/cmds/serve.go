package cmds

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/voyagen/goodytv/internal/cache"
	"github.com/voyagen/goodytv/internal/notify"
	"github.com/voyagen/goodytv/internal/payment"
	"github.com/voyagen/goodytv/internal/server"
	"github.com/voyagen/goodytv/internal/store"
)

const licenseLockTTL = 30 * time.Second

func NewServeCLI() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the payment webhook and license polling API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			log := newLogger(cfg, "goodytv-api")

			var licenses payment.LicenseStore = payment.NewMemoryStore(cfg.LicenseRetention)
			checks := map[string]server.Pinger{}

			var pg *store.Postgres
			if cfg.DatabaseURL != "" {
				if err := store.CheckDatabase(cfg.DatabaseURL); err != nil {
					return fmt.Errorf("database: %w", err)
				}
				if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				pg, err = store.NewPostgres(ctx, cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("db: %w", err)
				}
				defer pg.Close()
				licenses = pg
				checks["postgres"] = pg
				log.Info("postgres connected (licenses persisted)")
			} else {
				log.Warn("DATABASE_URL not set, licenses kept in memory")
			}

			var rds *cache.Redis
			if cfg.RedisURL != "" {
				rds, err = cache.New(cfg.RedisURL)
				if err != nil {
					return fmt.Errorf("redis: %w", err)
				}
				defer rds.Close()
				if err := rds.Ping(ctx); err != nil {
					return fmt.Errorf("redis ping: %w", err)
				}
				checks["redis"] = rds
				if pg != nil {
					licenses = store.NewCachedLicenseStore(pg, rds, log)
				}
				log.Info("redis connected (cache, locks and notification queue enabled)")
			}

			var sink notify.Notifier = notify.LogNotifier{Log: log}
			if cfg.ResendAPIKey != "" {
				sink = notify.NewResend(cfg.ResendAPIKey, cfg.EmailFrom)
			} else {
				log.Warn("RESEND_API_KEY not set, license emails are only logged")
			}
			notifier := sink
			if rds != nil {
				notifier = notify.NewQueued(rds)
				go notify.RunWorker(ctx, rds, sink, log.WithField("component", "notify"))
			}

			payments := payment.NewService(licenses, notifier, log)
			if rds != nil {
				payments.SetDistributedLock(cache.NewLocker(rds, cache.Key("lock", "license", ""), licenseLockTTL))
			}

			return server.New(payments, cfg, log, checks).ListenAndServe(ctx)
		},
	}
}
