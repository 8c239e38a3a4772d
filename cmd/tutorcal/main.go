package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"tutorcal/internal/api"
	"tutorcal/internal/calendar"
	"tutorcal/internal/config"
	appLog "tutorcal/internal/log"
	"tutorcal/internal/notify"
	"tutorcal/internal/remind"
	"tutorcal/internal/sched"
	"tutorcal/internal/store"
	"tutorcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	appLog.Info("tutorcal starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("invalid timezone, using local", err, "timezone", conf.Timezone)
		loc = time.Local
	}

	appLog.Info("effective config",
		"base_url", conf.BaseURL,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"preload_days", conf.PreloadDays,
		"db_path", conf.DBPath,
		"telegram", conf.Telegram.Token != "",
		"once", flags.once,
	)

	kv, err := store.Open(conf.DBPath)
	if err != nil {
		appLog.Error("failed to open local store", err, "db_path", conf.DBPath)
		os.Exit(1)
	}
	defer kv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	client := buildClient(ctx, conf, store.NewAuth(kv), store.NewSettings(kv))

	notifier := buildNotifier(conf)
	scheduler := remind.NewScheduler(notifier, loc)
	presenter := remind.NewPresenter(notifier, loc)
	defer scheduler.CancelAll()
	defer presenter.StopAll()

	cache := store.NewScheduleCache(kv)
	logs := store.NewSyncLog(kv)
	coord := sched.New(client, cache, logs, scheduler, presenter, conf.PreloadDays)

	// In-process timers were lost with the previous process; re-arm
	// today and tomorrow from the cache before any network round trip.
	today := time.Now().In(loc)
	scheduler.Rearm(cache,
		today.Format("2006-01-02"),
		today.AddDate(0, 0, 1).Format("2006-01-02"))

	go logNotices(coord)

	if flags.once {
		coord.LoadDate(ctx, today)
		appLog.Info("single-shot load finished", "armed_reminders", scheduler.Armed())
		return
	}

	coord.OnDateChanged(ctx, today)

	cr := cron.New()
	if _, err := cr.AddFunc(conf.RefreshCron, func() {
		appLog.Debug("periodic refresh", "cron", conf.RefreshCron)
		coord.PreloadAround(ctx, time.Now().In(loc))
	}); err != nil {
		appLog.Error("invalid refresh cron expression", err, "cron", conf.RefreshCron)
		os.Exit(1)
	}
	cr.Start()
	defer cr.Stop()

	exporter := calendar.NewExporter(conf.CalendarDir, loc)
	srv := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, coord, exporter).Handler(),
	}
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}
	appLog.Info("tutorcal exiting")
}

// buildClient constructs the API client from config plus the stored
// token, logging in once when credentials are configured and no token
// is stored yet. The client is a value; a config change means building
// a new one, never mutating shared state.
func buildClient(ctx context.Context, conf *config.Config, auth *store.Auth, settings *store.Settings) *api.Client {
	baseURL := settings.BaseURL()
	if baseURL == "" {
		baseURL = conf.BaseURL
	}

	client := api.New(baseURL, auth.Token())
	if auth.Token() != "" || conf.Username == "" {
		return client
	}

	loginCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	result, err := client.Login(loginCtx, conf.Username, conf.Password)
	if err != nil {
		// Fetches will fail with auth errors until the backend is
		// reachable; cached data still serves.
		appLog.Error("login failed", err, "base_url", baseURL)
		return client
	}

	if err := auth.SaveLogin(result.Token, result.CurrentUser.Username,
		strconv.Itoa(result.CurrentUser.ID)); err != nil {
		appLog.Error("failed to persist login", err)
	}
	appLog.Info("logged in", "username", result.CurrentUser.Username)
	return client.WithToken(result.Token)
}

func buildNotifier(conf *config.Config) notify.Notifier {
	if conf.Telegram.Token == "" {
		appLog.Info("no telegram token configured, notifications go to the log")
		return notify.NewLogSink()
	}
	tg, err := notify.NewTelegram(conf.Telegram.Token, conf.Telegram.ChatID)
	if err != nil {
		appLog.Error("telegram init failed, falling back to log sink", err)
		return notify.NewLogSink()
	}
	appLog.Info("telegram notifier ready", "chat_id", conf.Telegram.ChatID)
	return tg
}

func logNotices(coord *sched.Coordinator) {
	for msg := range coord.Notices() {
		appLog.Info("notice", "message", msg)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/tutorcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load today's schedule once and exit")

	flag.Parse()

	return cfg
}
