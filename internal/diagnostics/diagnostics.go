// Package diagnostics writes the files an operator needs after a run: the
// id to handle map and the stash items that could not be applied.
package diagnostics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/roach88/graphload/internal/upload"
)

// TimestampLayout prefixes every file name.
const TimestampLayout = "2006-01-02_150405"

var serverRewrites = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`^https?://`), ""},
	{regexp.MustCompile(`^api\.`), ""},
	{regexp.MustCompile(`:\d{2,5}/?$`), ""},
	{regexp.MustCompile(`/$`), ""},
	{regexp.MustCompile(`0\.0\.0\.0`), "localhost"},
	{regexp.MustCompile(`[^A-Za-z0-9._-]`), "_"},
}

// ServerName turns a server URL into a string usable in a file name, e.g.
// "https://api.test.example.org/" becomes "test.example.org" and
// "http://0.0.0.0:3333" becomes "localhost".
func ServerName(server string) string {
	for _, r := range serverRewrites {
		server = r.pattern.ReplaceAllString(server, r.repl)
	}
	return server
}

// Writer implements upload.Reporter on the local file system.
type Writer struct {
	Dir    string
	Server string

	// Now defaults to time.Now.
	Now func() time.Time
}

var _ upload.Reporter = (*Writer)(nil)

// NewWriter creates a writer for files of runs against server.
func NewWriter(dir, server string) *Writer {
	return &Writer{Dir: dir, Server: server}
}

// WriteHandleMap writes <dir>/<timestamp>_id2handle_<server>.json. The file
// is written even when the map is empty.
func (w *Writer) WriteHandleMap(resolved map[string]string) (string, error) {
	if resolved == nil {
		resolved = map[string]string{}
	}
	return w.write("id2handle", resolved)
}

// WritePendingStash writes <dir>/<timestamp>_stash_<server>.json.
func (w *Writer) WritePendingStash(items []upload.StashItem) (string, error) {
	if items == nil {
		items = []upload.StashItem{}
	}
	return w.write("stash", items)
}

func (w *Writer) write(kind string, v any) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", w.Dir, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode %s: %w", kind, err)
	}

	path := filepath.Join(w.Dir, fmt.Sprintf("%s_%s_%s.json", w.now().Format(TimestampLayout), kind, ServerName(w.Server)))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", kind, err)
	}
	return path, nil
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}
