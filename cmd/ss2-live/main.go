package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ss2beacon-go/internal/config"
	"ss2beacon-go/internal/ingest"
	"ss2beacon-go/internal/logging"
	"ss2beacon-go/internal/output"
	"ss2beacon-go/internal/processing"
	"ss2beacon-go/internal/server"
	"ss2beacon-go/internal/simulator"
	"ss2beacon-go/internal/types"
)

const recentLimit = 100

func main() {
	defaults := config.Default()
	var (
		configPath = flag.String("config", "", "Optional TOML config file")
		port       = flag.Int("port", defaults.Port, "HTTP port for the web UI")
		workers    = flag.Int("workers", defaults.Workers, "Number of decode workers")
		delimiter  = flag.String("d", "", "Byte delimiter to strip from incoming lines")
		debug      = flag.Bool("debug", false, "Decode simulated beacons instead of stdin")
		debugRate  = flag.Float64("debug-rate", defaults.DebugRate, "Simulated beacon rate (lines/sec)")
		uiRate     = flag.Duration("ui-rate", defaults.UIRate, "Status update interval for websocket clients")
		rawLog     = flag.Bool("raw-log", false, "Record received lines to a binary capture log")
		rawLogDir  = flag.String("raw-log-dir", defaults.RawLogDir, "Directory for raw capture logs")
		archive    = flag.String("archive", "", "SQLite database to archive decoded beacons in")
	)
	flag.Parse()
	logging.Init("ss2-live")

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("config")
		}
		cfg = loaded
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "workers":
			cfg.Workers = *workers
		case "d":
			cfg.Delimiter = *delimiter
		case "debug-rate":
			cfg.DebugRate = *debugRate
		case "ui-rate":
			cfg.UIRate = *uiRate
		case "raw-log":
			cfg.RawLog = *rawLog
		case "raw-log-dir":
			cfg.RawLogDir = *rawLogDir
		case "archive":
			cfg.ArchivePath = *archive
		}
	})
	cfg.Debug = *debug
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	source := "stdin"
	var lines <-chan string
	if cfg.Debug {
		source = "simulator"
		lines = simulator.Stream(ctx, cfg.DebugRate, time.Now().UnixNano())
	} else {
		lines = ingest.Stream(ctx, os.Stdin, cfg.Delimiter)
	}

	var recorder *output.RawLogWriter
	if cfg.RawLog {
		w, err := output.NewRawLogWriter(cfg.RawLogDir, "ss2_raw")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start raw log")
		}
		recorder = w
		defer func() {
			if err := w.Close(); err != nil {
				log.Error().Err(err).Msg("raw log close failed")
			}
		}()
		lines = tee(ctx, lines, func(line string) {
			if err := recorder.Record(output.NewCapture(runID, line, cfg.Delimiter, false)); err != nil {
				log.Error().Err(err).Msg("raw log write failed")
			}
		})
	}

	feed := newFeed(recentLimit)
	var store *output.Archive
	if cfg.ArchivePath != "" {
		a, err := output.OpenArchive(cfg.ArchivePath, runID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open archive")
		}
		store = a
		defer a.Close()
		n, err := restoreFeed(ctx, store, feed, cfg.Delimiter)
		if err != nil {
			log.Warn().Err(err).Msg("archive history unavailable")
		}
		log.Info().Str("path", cfg.ArchivePath).Str("run_id", store.RunID()).Int("restored", n).Msg("archive open")
	}

	stats := &processing.Stats{}
	results := processing.Stream(ctx, lines, processing.Options{
		Delimiter: cfg.Delimiter,
		Workers:   cfg.Workers,
		Stats:     stats,
	})

	var statusMu sync.Mutex
	status := map[string]any{
		"run_id":      runID,
		"source":      source,
		"stream":      "idle",
		"last_beacon": "",
		"started":     time.Now().Format(time.RFC3339),
	}

	srv := server.New(cfg, server.Hooks{
		Status: func() map[string]any {
			statusMu.Lock()
			defer statusMu.Unlock()
			out := make(map[string]any, len(status)+1)
			for k, v := range status {
				out[k] = v
			}
			out["metrics"] = stats.Snapshot()
			return out
		},
		Config: func() types.UIConfig {
			return types.UIConfig{
				Type:      "config",
				RunID:     runID,
				Delimiter: cfg.Delimiter,
				Source:    source,
				Schemas:   types.Schemas(),
			}
		},
		Recent: feed.recent,
	})
	metrics := srv.Metrics()

	uiMessages := make(chan any, 64)
	go func() {
		var seq uint64
		for res := range results {
			seq++
			now := time.Now()
			rec := types.LiveRecord{
				Type:       "beacon",
				RunID:      runID,
				Seq:        seq,
				ReceivedAt: now,
				Line:       res.Line,
			}
			if res.Err != nil {
				rec.Error = res.Err.Error()
				metrics.ObserveDecode("", res.Err)
				log.Warn().Uint64("seq", seq).Err(res.Err).Msg("undecodable beacon")
			} else {
				rec.Schema = res.Record.Schema.Name
				rec.Document = res.Document(now)
				metrics.ObserveDecode(rec.Schema, nil)
				if store != nil {
					if err := store.Insert(ctx, res.Line, rec.Schema, now, rec.Document); err != nil {
						log.Error().Err(err).Msg("archive insert failed")
					}
				}
			}

			statusMu.Lock()
			status["stream"] = "receiving"
			status["last_beacon"] = now.Format(time.RFC3339)
			statusMu.Unlock()

			feed.add(rec)
			if !server.Publish(uiMessages, rec) {
				log.Debug().Uint64("seq", seq).Msg("ui queue full, dropped live record")
			}
		}
		statusMu.Lock()
		status["stream"] = "closed"
		statusMu.Unlock()
		log.Info().Msg("beacon input closed")
	}()

	go func() {
		ticker := time.NewTicker(cfg.UIRate)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				server.Publish(uiMessages, map[string]any{
					"type":    "stats",
					"metrics": stats.Snapshot(),
				})
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Info().
					Uint64("decoded", stats.Decoded()).
					Uint64("failed", stats.Failed()).
					Msg("decode stats")
			}
		}
	}()

	log.Info().Int("port", cfg.Port).Str("source", source).Str("run_id", runID).Msg("starting live decoder")
	if err := srv.Run(ctx, uiMessages); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}

// tee calls fn for every line before passing it on.
func tee(ctx context.Context, in <-chan string, fn func(string)) <-chan string {
	out := make(chan string, cap(in))
	go func() {
		defer close(out)
		for line := range in {
			fn(line)
			select {
			case <-ctx.Done():
				return
			case out <- line:
			}
		}
	}()
	return out
}

// restoreFeed fills f with the newest archived beacons, oldest first, so a
// restarted server still has history for late clients. Lines are decoded
// again; rows that no longer decode are skipped.
func restoreFeed(ctx context.Context, store *output.Archive, f *feed, delimiter string) (int, error) {
	rows, err := store.Recent(ctx, f.limit)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		res := processing.DecodeLine(row.Line, delimiter)
		if !res.OK() {
			log.Debug().Int64("id", row.ID).Err(res.Err).Msg("skipping archived beacon")
			continue
		}
		f.add(types.LiveRecord{
			Type:       "beacon",
			RunID:      row.RunID,
			ReceivedAt: row.ReceivedAt,
			Schema:     row.Schema,
			Line:       row.Line,
			Document:   res.Document(row.ReceivedAt),
		})
		n++
	}
	return n, nil
}

// feed keeps the most recent live records for clients that connect late.
type feed struct {
	mu    sync.Mutex
	limit int
	buf   []types.LiveRecord
}

func newFeed(limit int) *feed {
	return &feed{limit: limit}
}

func (f *feed) add(rec types.LiveRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf = append(f.buf, rec)
	if len(f.buf) > f.limit {
		f.buf = append(f.buf[:0:0], f.buf[len(f.buf)-f.limit:]...)
	}
}

// recent returns the buffered records oldest first.
func (f *feed) recent() []types.LiveRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.LiveRecord(nil), f.buf...)
}
