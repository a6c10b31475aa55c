package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"

	"github.com/cardtable/ohhell/pkg/game"
	"github.com/cardtable/ohhell/pkg/server"
)

// newLogBackend builds the slog backend, writing to stderr and, when logDir
// is set, to a rotated log file as well.
func newLogBackend(logDir string) (*slog.Backend, io.Closer, error) {
	if logDir == "" {
		return slog.NewBackend(os.Stderr), nil, nil
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %v", err)
	}
	r, err := rotator.New(filepath.Join(logDir, "ohhellsrv.log"), 32*1024, false, 5)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log rotator: %v", err)
	}
	return slog.NewBackend(io.MultiWriter(os.Stderr, r)), r, nil
}

func main() {
	var (
		listen        string
		dbPath        string
		logDir        string
		debugLevel    string
		seed          int64
		turnTimeoutMs int
		botDelayMs    int
	)
	flag.StringVar(&listen, "listen", "127.0.0.1:8080", "Address to listen on")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database file (created if missing)")
	flag.StringVar(&logDir, "logdir", "", "Directory for rotated log files (empty = stderr only)")
	flag.StringVar(&debugLevel, "debuglevel", "info", "Logging level: trace, debug, info, warn, error")
	flag.Int64Var(&seed, "seed", 0, "Deterministic RNG seed for decks (0 = random)")
	flag.IntVar(&turnTimeoutMs, "turntimeoutms", 0, "Human turn timeout in milliseconds (0 = default)")
	flag.IntVar(&botDelayMs, "botdelayms", 0, "Computer turn delay in milliseconds (0 = default)")
	flag.Parse()

	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "ohhell.sqlite")
	}

	backend, logCloser, err := newLogBackend(logDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}
	log := backend.Logger("SRVR")
	gameLog := backend.Logger("GAME")
	if level, ok := slog.LevelFromString(debugLevel); ok {
		log.SetLevel(level)
		gameLog.SetLevel(level)
	}

	database, err := server.NewDatabase(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init db: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	timing := game.TableConfig{
		Seed:        seed,
		TurnTimeout: time.Duration(turnTimeoutMs) * time.Millisecond,
	}
	timing.BotTurnDelay = time.Duration(botDelayMs) * time.Millisecond

	srv := server.NewServer(server.Config{
		Log:     log,
		GameLog: gameLog,
		DB:      database,
		Timing:  timing,
	})
	defer srv.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpSrv := &http.Server{
		Addr:         listen,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websockets manage their own write deadlines
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Infof("listening on %s, db at %s", listen, dbPath)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "http serve error: %v\n", err)
		os.Exit(1)
	}
}
