package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ss2beacon-go/internal/beacon"
	"ss2beacon-go/internal/config"
	"ss2beacon-go/internal/ingest"
	"ss2beacon-go/internal/logging"
	"ss2beacon-go/internal/output"
	"ss2beacon-go/internal/processing"
)

var version = "dev"

var errLinesFailed = errors.New("some beacon lines could not be decoded")

func main() {
	logging.Init("ss2beacon")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Error().Err(err).Msg("ss2beacon failed")
		os.Exit(1)
	}
}

type options struct {
	file        string
	hex         string
	fileType    string
	image       bool
	cfg         config.AppConfig
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("ss2beacon", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		file        = fs.String("f", "", "Beacon capture log to decode (.kss, .log or .txt)")
		hexLine     = fs.String("s", "", "Single beacon hex string to decode")
		logPath     = fs.String("l", config.DefaultLogPath, "Output log path template ([$HOME] and [$TIMESTAMP] are expanded)")
		fileType    = fs.String("t", "", "Input file type, overrides the extension (.kss, .log, .txt)")
		image       = fs.Bool("i", false, "Treat input as image packets and write the reassembled JPEG")
		delimiter   = fs.String("d", "", "Byte delimiter to strip from the hex input")
		configPath  = fs.String("config", "", "Optional TOML config file")
		workers     = fs.Int("workers", 4, "Number of decode workers")
		format      = fs.String("format", config.FormatJSON, "Output log format (json or cbor)")
		rawLog      = fs.Bool("raw-log", false, "Record raw input lines to a binary capture log")
		archive     = fs.String("archive", "", "SQLite database to archive decoded beacons in")
		stopOnError = fs.Bool("stop-on-error", false, "Abort at the first line that fails to decode")
		showVersion = fs.Bool("version", false, "Print version and exit")
	)
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{
		file:        *file,
		hex:         *hexLine,
		fileType:    *fileType,
		image:       *image,
		showVersion: *showVersion,
	}
	if opts.showVersion {
		return opts, nil
	}
	if (opts.file == "") == (opts.hex == "") {
		return opts, errors.New("exactly one of -f FILE or -s HEX is required")
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath, cfg)
		if err != nil {
			return opts, err
		}
		cfg = loaded
	}

	// Explicit flags win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "l":
			cfg.LogPath = *logPath
		case "d":
			cfg.Delimiter = *delimiter
		case "workers":
			cfg.Workers = *workers
		case "format":
			cfg.OutputFormat = *format
		case "raw-log":
			cfg.RawLog = *rawLog
		case "archive":
			cfg.ArchivePath = *archive
		case "stop-on-error":
			cfg.StopOnError = *stopOnError
		}
	})
	if err := cfg.Validate(); err != nil {
		return opts, err
	}
	opts.cfg = cfg
	return opts, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		_, err := fmt.Fprintf(stdout, "ss2beacon %s\n", version)
		return err
	}
	cfg := opts.cfg

	lines := []string{opts.hex}
	if opts.file != "" {
		lines, err = ingest.ReadFile(opts.file, opts.fileType, cfg.Delimiter)
		if err != nil {
			return err
		}
		log.Info().Str("file", opts.file).Int("lines", len(lines)).Msg("read capture log")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	now := time.Now()
	logPath := config.ResolveLogPath(cfg.LogPath, opts.file, cfg.OutputFormat, opts.image, now, home)
	runID := uuid.NewString()

	if cfg.RawLog {
		if err := recordRaw(cfg.RawLogDir, runID, cfg.Delimiter, lines, opts.image); err != nil {
			return err
		}
	}

	popts := processing.Options{
		Delimiter:   cfg.Delimiter,
		Workers:     cfg.Workers,
		StopOnError: cfg.StopOnError,
		ImageRange:  cfg.ImageRange,
		Stats:       &processing.Stats{},
	}

	if opts.image {
		return writeImage(ctx, lines, popts, logPath)
	}
	return decodeTelemetry(ctx, lines, popts, cfg, runID, logPath, now, stdout)
}

func decodeTelemetry(ctx context.Context, lines []string, popts processing.Options, cfg config.AppConfig, runID, logPath string, now time.Time, stdout io.Writer) error {
	results, batchErr := processing.DecodeBatch(ctx, lines, popts)
	if batchErr != nil && len(results) == 0 {
		return batchErr
	}

	var archive *output.Archive
	if cfg.ArchivePath != "" {
		var err error
		archive, err = output.OpenArchive(cfg.ArchivePath, runID)
		if err != nil {
			return err
		}
		defer archive.Close()
	}

	docs := make([]beacon.Document, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			log.Warn().Int("line", res.Index+1).Err(res.Err).Msg("skipping beacon line")
			continue
		}
		doc := res.Document(now)
		docs = append(docs, doc)
		if err := output.EncodeDocument(stdout, doc, config.FormatJSON); err != nil {
			return err
		}
		if archive != nil {
			if err := archive.Insert(ctx, res.Line, res.Record.Schema.Name, now, doc); err != nil {
				return fmt.Errorf("archive line %d: %w", res.Index+1, err)
			}
		}
	}

	if len(docs) > 0 {
		if err := output.AppendDocuments(logPath, docs, cfg.OutputFormat); err != nil {
			return err
		}
		log.Info().Str("path", logPath).Int("records", len(docs)).Msg("wrote beacon log")
	}
	if batchErr != nil {
		return batchErr
	}
	if failed := popts.Stats.Failed(); failed > 0 {
		return fmt.Errorf("%w: %d of %d", errLinesFailed, failed, len(lines))
	}
	return nil
}

func writeImage(ctx context.Context, lines []string, popts processing.Options, path string) error {
	img, err := processing.AssembleImage(ctx, lines, popts)
	if err != nil {
		return err
	}
	seq := img.Sequence
	event := log.Info()
	if seq.MissingCount > 0 || len(seq.Duplicates) > 0 || seq.Reordered {
		event = log.Warn().
			Int("missing_count", seq.MissingCount).
			Ints("missing", seq.Missing).
			Ints("duplicates", seq.Duplicates).
			Bool("reordered", seq.Reordered)
	}
	event.Int("chunks", img.Chunks).
		Int("skipped", img.Skipped).
		Int("expected", seq.Expected).
		Int("invalid", seq.Invalid).
		Msg("image packets assembled")

	if img.Chunks == 0 {
		return errors.New("no usable image packets")
	}
	if err := output.WriteImage(path, beacon.EmitImage(img.Bytes)); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("bytes", len(img.Bytes)).Msg("wrote image")
	return nil
}

func recordRaw(dir, runID, delimiter string, lines []string, image bool) error {
	w, err := output.NewRawLogWriter(dir, "ss2_raw")
	if err != nil {
		return fmt.Errorf("start raw log: %w", err)
	}
	for _, line := range lines {
		if err := w.Record(output.NewCapture(runID, line, delimiter, image)); err != nil {
			_ = w.Close()
			return fmt.Errorf("raw log: %w", err)
		}
	}
	log.Info().Str("path", w.Path()).Int("records", len(lines)).Msg("wrote raw capture log")
	return w.Close()
}
