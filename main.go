package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attendex/src-server/metric"
	"attendex/src-server/route"
	"attendex/src-server/scheduler"
	"attendex/src-server/tracing"
	"attendex/src-server/utils"
	"attendex/src-server/view"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

var logLevel = new(slog.LevelVar)

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Info(err.Error())
	}
	logLevel.Set(slog.LevelDebug)
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.RFC1123Z,
		}),
	))
}

func main() {
	as := utils.NewAppState()
	logLevel.Set(as.Config.GetLogLevel())

	shutdownTracing, err := tracing.Setup(as.Context(), as.Config.GetOtelEndpoint())
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	}
	as.OnShutdown(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Warn("can't flush spans", "error", err)
		}
	})

	metric.WatchSessionStore(as.Context(), as.BunDb, 15*time.Second)
	as.PurgeSessions(time.Minute)

	// arrival announcements are optional
	var announcer scheduler.Announcer
	if as.DgSession != nil {
		if err := as.DgSession.Open(); err != nil {
			slog.Error("can't open discord session, announcements disabled", "error", err)
		} else {
			announcer = scheduler.NewDiscordAnnouncer(as.DgSession, as.Config.GetDiscordChannelID(), as.Config.GetLocation())
		}
	}
	poller := scheduler.NewLivePoller(as.BunDb, as.API, as.Cache, as.Config.GetPollInterval(), announcer)
	go poller.Run(as.Context())

	views, err := view.New()
	if err != nil {
		slog.Error("can't parse templates", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + as.Config.GetPort(),
		Handler:           route.NewServer(as, poller, views).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("cannot start HTTP server", "error", err)
			as.AppCloseSignalChan <- syscall.SIGTERM
		}
	}()
	as.OnShutdown(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("can't shut down HTTP server", "error", err)
		}
	})

	slog.Info("app is now running, press Ctrl+C to exit", "port", as.Config.GetPort())

	signal.Notify(as.AppCloseSignalChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-as.AppCloseSignalChan
	slog.Info("Gracefully shutting down...")
	as.GracefulShutdown()
}
