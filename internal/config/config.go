package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"ss2beacon-go/internal/beacon"
)

const (
	FormatJSON = "json"
	FormatCBOR = "cbor"

	DefaultLogPath = "[$HOME]/ss2logs/ss2beacon_parsed_[$TIMESTAMP].json"
)

type AppConfig struct {
	Port         int
	Workers      int
	Delimiter    string
	LogPath      string
	OutputFormat string
	ImageRange   beacon.PayloadRange
	StopOnError  bool
	RawLog       bool
	RawLogDir    string
	ArchivePath  string
	UIRate       time.Duration
	Debug        bool
	DebugRate    float64
}

func Default() AppConfig {
	return AppConfig{
		Port:         8888,
		Workers:      4,
		LogPath:      DefaultLogPath,
		OutputFormat: FormatJSON,
		ImageRange:   beacon.DefaultPayloadRange,
		RawLogDir:    "rawlog",
		UIRate:       time.Second,
		DebugRate:    1,
	}
}

// config.toml key mapping to AppConfig.
type fileConfig struct {
	Port               int     `toml:"port"`
	Workers            int     `toml:"workers"`
	Delimiter          string  `toml:"delimiter"`
	LogPath            string  `toml:"log_path"`
	OutputFormat       string  `toml:"output_format"`
	ImagePayloadOffset int     `toml:"image_payload_offset"`
	ImagePayloadLength int     `toml:"image_payload_length"`
	StopOnError        bool    `toml:"stop_on_error"`
	RawLog             bool    `toml:"raw_log"`
	RawLogDir          string  `toml:"raw_log_dir"`
	ArchivePath        string  `toml:"archive_path"`
	UIRate             string  `toml:"ui_rate"`
	DebugRate          float64 `toml:"debug_rate"`
}

// LoadFile overlays the keys present in a TOML file onto cfg.
func LoadFile(path string, cfg AppConfig) (AppConfig, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("load config %s: unknown keys %v", path, undecoded)
	}

	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("workers") {
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("delimiter") {
		cfg.Delimiter = raw.Delimiter
	}
	if meta.IsDefined("log_path") {
		cfg.LogPath = strings.TrimSpace(raw.LogPath)
	}
	if meta.IsDefined("output_format") {
		cfg.OutputFormat = strings.ToLower(strings.TrimSpace(raw.OutputFormat))
	}
	if meta.IsDefined("image_payload_offset") {
		cfg.ImageRange.Offset = raw.ImagePayloadOffset
	}
	if meta.IsDefined("image_payload_length") {
		cfg.ImageRange.Length = raw.ImagePayloadLength
	}
	if meta.IsDefined("stop_on_error") {
		cfg.StopOnError = raw.StopOnError
	}
	if meta.IsDefined("raw_log") {
		cfg.RawLog = raw.RawLog
	}
	if meta.IsDefined("raw_log_dir") {
		cfg.RawLogDir = strings.TrimSpace(raw.RawLogDir)
	}
	if meta.IsDefined("archive_path") {
		cfg.ArchivePath = strings.TrimSpace(raw.ArchivePath)
	}
	if meta.IsDefined("ui_rate") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.UIRate))
		if err != nil {
			return cfg, fmt.Errorf("load config %s: ui_rate: %w", path, err)
		}
		cfg.UIRate = d
	}
	if meta.IsDefined("debug_rate") {
		cfg.DebugRate = raw.DebugRate
	}
	return cfg, cfg.Validate()
}

func (c AppConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1, got %d", c.Workers)
	}
	switch c.OutputFormat {
	case FormatJSON, FormatCBOR:
	default:
		return fmt.Errorf("config: output_format %q (want %s or %s)", c.OutputFormat, FormatJSON, FormatCBOR)
	}
	if c.ImageRange.Offset < 0 || c.ImageRange.Length <= 0 {
		return fmt.Errorf("config: image payload range [%d,%d)", c.ImageRange.Offset, c.ImageRange.End())
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d", c.Port)
	}
	return nil
}
