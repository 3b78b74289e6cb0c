package utils

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"attendex/src-server/access"
	"attendex/src-server/apiclient"
	"attendex/src-server/form"
	"attendex/src-server/jwt"
	"attendex/src-server/model"
	"attendex/src-server/querycache"
	"attendex/src-server/resource"

	"github.com/bwmarrin/discordgo"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

type AppState struct {
	Config *Config
	RawDb  *sql.DB
	BunDb  *bun.DB

	API    *apiclient.Client
	Auth   *resource.Auth
	Cache  *querycache.Cache
	Policy *access.Policy
	Dates  *form.DateParser

	// nil unless DISCORD_BOT_TOKEN is set
	DgSession *discordgo.Session

	AppCloseSignalChan chan os.Signal

	ctx      context.Context
	cancel   context.CancelFunc
	closers  []func()
	closerMu sync.Mutex
}

// NewAppState wires everything from the environment and exits on failure.
func NewAppState() *AppState {
	as, err := NewAppStateFrom(NewConfig())
	if err != nil {
		slog.Error("can't initialize app", "error", err)
		os.Exit(1)
	}
	return as
}

func NewAppStateFrom(config *Config) (*AppState, error) {
	as := &AppState{
		Config:             config,
		AppCloseSignalChan: make(chan os.Signal, 1),
		Dates:              form.NewDateParser(config.GetLocation()),
		Cache:              querycache.New(config.GetCacheSize(), config.GetCacheTTL()),
	}
	as.ctx, as.cancel = context.WithCancel(context.Background())

	var err error
	as.Policy, err = access.Load(config.GetAccessPolicyFile())
	if err != nil {
		return nil, fmt.Errorf("NewAppStateFrom: %w", err)
	}

	// database
	dsn := config.GetDatabasePath() + "?mode=rwc"
	if config.GetDatabasePath() == ":memory:" {
		dsn = ":memory:"
	}
	as.RawDb, err = sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("NewAppStateFrom: can't open sqlite database: %w", err)
	}
	if dsn == ":memory:" {
		// every connection would open its own empty database
		as.RawDb.SetMaxOpenConns(1)
	}
	as.RawDb.SetMaxIdleConns(8)

	as.BunDb = bun.NewDB(as.RawDb, sqlitedialect.New())
	as.BunDb.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))
	if err := model.CreateSchema(as.ctx, as.BunDb); err != nil {
		return nil, fmt.Errorf("NewAppStateFrom: %w", err)
	}

	// api client; a rejected token ends every session that carries it
	as.API, err = apiclient.New(config.GetAPIBaseURL(), apiclient.WithUnauthorizedHandler(as.dropToken))
	if err != nil {
		return nil, fmt.Errorf("NewAppStateFrom: %w", err)
	}
	as.Auth = resource.NewAuth(as.API)

	if token := config.GetDiscordBotToken(); token != "" {
		as.DgSession, err = discordgo.New("Bot " + token)
		if err != nil {
			return nil, fmt.Errorf("NewAppStateFrom: can't create discord session: %w", err)
		}
	}

	return as, nil
}

func (as *AppState) dropToken(ctx context.Context, token string) {
	n, err := model.DeleteSessionsByToken(context.WithoutCancel(ctx), as.BunDb, token)
	if err != nil {
		slog.Error("can't drop sessions of rejected token", "error", err)
		return
	}
	if payload, err := jwt.Decode(token); err == nil {
		as.Cache.Invalidate(querycache.Key{payload.Subject})
	}
	slog.Info("api rejected token, sessions dropped", "sessions", n)
}

// Context is cancelled by GracefulShutdown.
func (as *AppState) Context() context.Context {
	return as.ctx
}

// OnShutdown registers fn to run during GracefulShutdown, in reverse order.
func (as *AppState) OnShutdown(fn func()) {
	as.closerMu.Lock()
	defer as.closerMu.Unlock()
	as.closers = append(as.closers, fn)
}

// PurgeSessions deletes expired sessions and stale live watches every
// interval until shutdown.
func (as *AppState) PurgeSessions(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-as.ctx.Done():
				return
			case now := <-ticker.C:
				if n, err := model.PurgeExpiredSessions(as.ctx, as.BunDb, now); err != nil {
					slog.Error("can't purge expired sessions", "error", err)
				} else if n > 0 {
					slog.Debug("expired sessions purged", "count", n)
				}
				if _, err := model.PurgeStaleWatches(as.ctx, as.BunDb, now.Add(-10*as.Config.GetPollInterval())); err != nil {
					slog.Error("can't purge stale live watches", "error", err)
				}
			}
		}
	}()
}

func (as *AppState) GracefulShutdown() {
	as.cancel()

	as.closerMu.Lock()
	closers := as.closers
	as.closers = nil
	as.closerMu.Unlock()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}

	if as.DgSession != nil {
		if err := as.DgSession.Close(); err != nil {
			slog.Warn("can't close discord session", "error", err)
		}
	}
	if err := as.BunDb.Close(); err != nil {
		slog.Warn("can't close database", "error", err)
	}
}
