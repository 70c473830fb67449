package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ss2beacon-go/internal/beacon"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ss2.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, beacon.DefaultPayloadRange, cfg.ImageRange)
	assert.Equal(t, DefaultLogPath, cfg.LogPath)
}

func TestLoadFileOverlaysDefinedKeys(t *testing.T) {
	path := writeConfig(t, `
workers = 8
delimiter = ":"
output_format = "CBOR"
image_payload_length = 200
ui_rate = "250ms"
`)
	cfg, err := LoadFile(path, Default())
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, ":", cfg.Delimiter)
	assert.Equal(t, FormatCBOR, cfg.OutputFormat)
	assert.Equal(t, beacon.PayloadRange{Offset: 8, Length: 200}, cfg.ImageRange)
	assert.Equal(t, 250*time.Millisecond, cfg.UIRate)
	assert.Equal(t, 8888, cfg.Port, "undefined keys keep defaults")
}

func TestLoadFileErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":  `colour = "blue"`,
		"bad format":   `output_format = "xml"`,
		"zero workers": `workers = 0`,
		"bad duration": `ui_rate = "soon"`,
		"bad range":    `image_payload_length = 0`,
		"invalid toml": `workers = `,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, body), Default())
			assert.Error(t, err)
		})
	}

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"), Default())
	assert.Error(t, err)
}

func TestResolveLogPath(t *testing.T) {
	now := time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)
	home := filepath.Join("/home", "ops")
	existing := t.TempDir()

	tests := []struct {
		name     string
		template string
		input    string
		format   string
		image    bool
		want     string
	}{
		{
			name:     "default for string input",
			template: DefaultLogPath,
			want:     filepath.Join(home, "ss2logs", "ss2beacon_parsed_2021-01-02_03-04-05.json"),
		},
		{
			name:     "default for file input",
			template: DefaultLogPath,
			input:    filepath.Join("/data", "pass", "capture.kss"),
			want:     filepath.Join("/data", "pass", "ss2logs", "capture_parsed.json"),
		},
		{
			name:     "empty template behaves as default",
			input:    filepath.Join("/data", "capture.log"),
			want:     filepath.Join("/data", "ss2logs", "capture_parsed.json"),
		},
		{
			name:     "directory without extension",
			template: filepath.Join("/tmp", "out"),
			want:     filepath.Join("/tmp", "out", "ss2beacon_parsed_2021-01-02_03-04-05.json"),
		},
		{
			name:     "existing directory",
			template: existing,
			want:     filepath.Join(existing, "ss2beacon_parsed_2021-01-02_03-04-05.json"),
		},
		{
			name:     "explicit file with placeholders",
			template: "[$HOME]/beacons_[$TIMESTAMP].json",
			want:     home + "/beacons_2021-01-02_03-04-05.json",
		},
		{
			name:     "cbor default for file input",
			template: DefaultLogPath,
			input:    filepath.Join("/data", "pass", "capture.kss"),
			format:   FormatCBOR,
			want:     filepath.Join("/data", "pass", "ss2logs", "capture_parsed.cbor"),
		},
		{
			name:     "cbor in directory",
			template: filepath.Join("/tmp", "out"),
			format:   FormatCBOR,
			want:     filepath.Join("/tmp", "out", "ss2beacon_parsed_2021-01-02_03-04-05.cbor"),
		},
		{
			name:     "cbor keeps explicit file name",
			template: filepath.Join("/tmp", "beacons.json"),
			format:   FormatCBOR,
			want:     filepath.Join("/tmp", "beacons.json"),
		},
		{
			name:     "image swaps extension",
			template: DefaultLogPath,
			input:    filepath.Join("/data", "image.txt"),
			image:    true,
			want:     filepath.Join("/data", "ss2logs", "image_parsed.jpg"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveLogPath(tt.template, tt.input, tt.format, tt.image, now, home)
			assert.Equal(t, tt.want, got)
		})
	}
}
