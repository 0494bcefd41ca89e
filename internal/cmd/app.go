package cmd

import (
	"context"
	"log/slog"

	"github.com/vacstatus/vacstatus/internal/cache"
	"github.com/vacstatus/vacstatus/internal/config"
	"github.com/vacstatus/vacstatus/internal/database"
	"github.com/vacstatus/vacstatus/internal/profile"
	"github.com/vacstatus/vacstatus/internal/steam"
	"github.com/vacstatus/vacstatus/internal/watch"
	"github.com/vacstatus/vacstatus/pkg/log"
)

// application holds the shared wiring every subcommand needs: config,
// logger, database, cache and the upstream provider.
type application struct {
	conf     config.Config
	db       database.Database
	cache    cache.Cache
	provider steam.Provider
	profiles profile.Repository
	watches  watch.Repository
	closeLog func()
}

func newApplication(ctx context.Context) (*application, error) {
	conf, errConfig := config.Read(cfgFile, cfgFile == "")
	if errConfig != nil {
		return nil, errConfig
	}

	useSentry := false

	if conf.Log.SentryDSN != "" {
		if _, errSentry := log.NewSentryClient(conf.Log.SentryDSN, false, 0.25, BuildVersion, "production"); errSentry != nil {
			slog.Error("Failed to setup sentry client", log.ErrAttr(errSentry))
		} else {
			useSentry = true
		}
	}

	closeLog := log.MustCreateLogger(ctx, conf.Log.File, conf.Log.Level, useSentry, BuildVersion)

	db := database.New(conf.DB.DSN, conf.DB.AutoMigrate, conf.DB.LogQueries)

	slog.Info("Connecting to database")

	if errConnect := db.Connect(ctx); errConnect != nil {
		closeLog()

		return nil, errConnect
	}

	var cacheClient cache.Cache

	if conf.Redis.DSN != "" {
		redisClient, errRedis := cache.NewRedis(ctx, conf.Redis.DSN)
		if errRedis != nil {
			log.Closer(db)
			closeLog()

			return nil, errRedis
		}

		cacheClient = redisClient
	} else {
		slog.Warn("No redis configured, falling back to in-process cache")

		cacheClient = cache.NewMemory()
	}

	provider, errProvider := steam.NewWebProvider(conf.Steam.Key)
	if errProvider != nil {
		log.Closer(db)
		closeLog()

		return nil, errProvider
	}

	return &application{
		conf:     conf,
		db:       db,
		cache:    cacheClient,
		provider: provider,
		profiles: profile.NewRepository(db),
		watches:  watch.NewRepository(db),
		closeLog: closeLog,
	}, nil
}

func (app *application) Close() {
	if errClose := app.db.Close(); errClose != nil {
		slog.Error("Failed to close database cleanly", log.ErrAttr(errClose))
	}

	app.closeLog()
}
