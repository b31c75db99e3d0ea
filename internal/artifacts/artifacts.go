// Package artifacts persists run output as timestamped JSON files for
// offline inspection.
package artifacts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/stocksentry/stocksentry/internal/model"
)

type Writer struct {
	dir    string
	logger *slog.Logger
}

func NewWriter(dir string) *Writer {
	return &Writer{
		dir:    dir,
		logger: slog.Default().With("component", "artifacts"),
	}
}

// WriteAvailable stores the available products of a run as a pretty
// JSON array, keyed by timestamp. Nothing is written for an empty set.
func (w *Writer) WriteAvailable(result *model.RunResult) (string, error) {
	available := result.Available()
	if len(available) == 0 {
		return "", nil
	}

	name := fmt.Sprintf("available_products_%s.json", time.Now().Format("20060102_150405"))
	path, err := w.writeJSON(name, available)
	if err != nil {
		return "", err
	}

	w.logger.Info("run output written", "path", path, "products", len(available))
	return path, nil
}

// WriteRun stores the full run record, including sold-out and errored
// products.
func (w *Writer) WriteRun(result *model.RunResult) (string, error) {
	name := fmt.Sprintf("run_%s.json", time.Now().Format("20060102_150405"))
	return w.writeJSON(name, result)
}

// WriteRawDump stores an unparseable payload or page source for
// debugging a failed discovery.
func (w *Writer) WriteRawDump(label, raw string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("raw_%s_%s.txt", label, time.Now().Format("20060102_150405"))
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		return "", fmt.Errorf("writing raw dump: %w", err)
	}

	w.logger.Warn("raw payload dumped for inspection", "path", path)
	return path, nil
}

func (w *Writer) writeJSON(name string, v any) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", err
	}

	encoded, err := marshalPretty(v)
	if err != nil {
		return "", err
	}

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return path, nil
}

// marshalPretty keeps product names and URLs readable in the output
// files instead of HTML-escaping them.
func marshalPretty(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
