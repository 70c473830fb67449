package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"ss2beacon-go/internal/beacon"
)

const (
	homePlaceholder      = "[$HOME]"
	timestampPlaceholder = "[$TIMESTAMP]"
	defaultLogName       = "ss2beacon_parsed_" + timestampPlaceholder + ".json"
)

// ResolveLogPath expands a log path template into the file decoded output
// is written to.
//
// With the default template and a file input the log sits next to the input
// as ss2logs/<stem>_parsed.json. A custom template naming a directory gets
// the default file name appended. Generated names end in .cbor for CBOR
// output; an explicit file name is kept as given. Image output always ends
// in .jpg.
func ResolveLogPath(template, inputFile, format string, image bool, now time.Time, home string) string {
	path := template
	generated := true
	switch {
	case template == "" || template == DefaultLogPath:
		path = DefaultLogPath
		if inputFile != "" {
			stem := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
			path = filepath.Join(filepath.Dir(inputFile), "ss2logs", stem+"_parsed.json")
		}
	case filepath.Ext(template) == "" || isDir(template):
		path = filepath.Join(template, defaultLogName)
	default:
		generated = false
	}
	if generated && strings.EqualFold(format, FormatCBOR) {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".cbor"
	}

	path = strings.ReplaceAll(path, homePlaceholder, home)
	path = strings.ReplaceAll(path, timestampPlaceholder, now.Format(beacon.TimestampLayout))

	if image {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".jpg"
	}
	return path
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
