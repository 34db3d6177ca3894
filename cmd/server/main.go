package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tunnelrun.ai/internal/persistence/archive"
	persistlog "tunnelrun.ai/internal/persistence/log"
	"tunnelrun.ai/internal/persistence/snapshot"
	"tunnelrun.ai/internal/sim/catalogs"
	"tunnelrun.ai/internal/sim/match"
	"tunnelrun.ai/internal/sim/tuning"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Printf("load .env: %v", err)
	}

	var (
		addr       = flag.String("addr", envString("TUNNELRUN_ADDR", ":8080"), "http listen address")
		configDir  = flag.String("configs", envString("TUNNELRUN_CONFIGS", "./configs"), "config directory")
		dataDir    = flag.String("data", envString("TUNNELRUN_DATA", "./data"), "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Int64("seed", 0, "terrain seed override (0 keeps the tuning value)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (ticks, matches, snapshot metadata)")
		logGame    = flag.Bool("log_game", true, "log game lifecycle lines (level changes, deaths, invalid keys)")
	)
	flag.Parse()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if *seed != 0 {
		tune.Seed = *seed
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load catalogs: %v", err)
		}
		logger.Printf("levels.yaml not found in %s; using built-in levels", *configDir)
		cats = catalogs.Defaults()
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	// Optional read-model index (does not affect the simulation).
	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	var gameLogger *log.Logger
	if *logGame {
		gameLogger = log.New(os.Stdout, "[game] ", log.LstdFlags|log.Lmicroseconds)
	}
	m, err := match.New(match.Config{
		Tuning:     tune,
		Catalogs:   cats,
		Logger:     log.New(os.Stdout, "[match] ", log.LstdFlags|log.Lmicroseconds),
		GameLogger: gameLogger,
	})
	if err != nil {
		logger.Fatalf("match: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(*dataDir)
	resultLog := persistlog.NewResultLogger(*dataDir)
	defer tickLog.Close()
	defer resultLog.Close()
	m.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	m.SetResultSink(multiResultSink{a: resultLog, b: idx})

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	m.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := snapshot.Path(*dataDir, snap.Header)
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
				if archivedPath, ok, err := archive.ArchiveMatchSnapshot(*dataDir, path, snap); err != nil {
					logger.Printf("archive match snapshot: %v", err)
				} else if ok {
					logger.Printf("archived match %s to %s", snap.Header.MatchID, archivedPath)
				}
			}
		}
	}()

	go func() {
		if err := m.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("match loop stopped: %v", err)
		}
	}()

	router := newRouter(routerConfig{
		Match:       m,
		Index:       idx,
		Logger:      logger,
		EnableAdmin: envBool("TUNNELRUN_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
	})
	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (tick_rate=%dHz seed=%d levels=%d)", *addr, tune.TickRateHz, tune.Seed, cats.Levels.Last())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

type multiTickLogger struct {
	a match.TickLogger
	b match.TickLogger
}

func (m multiTickLogger) WriteTick(entry match.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiResultSink struct {
	a match.ResultSink
	b match.ResultSink
}

func (m multiResultSink) RecordMatch(rec match.MatchRecord) error {
	if m.a != nil {
		_ = m.a.RecordMatch(rec)
	}
	if m.b != nil {
		_ = m.b.RecordMatch(rec)
	}
	return nil
}
