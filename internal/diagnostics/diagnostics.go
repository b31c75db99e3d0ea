// Package diagnostics persists screenshot and page-source pairs for
// failed or suspicious page loads.
package diagnostics

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

type Recorder struct {
	dir     string
	enabled bool
	logger  *slog.Logger
}

func NewRecorder(dir string, enabled bool) *Recorder {
	return &Recorder{
		dir:     dir,
		enabled: enabled,
		logger:  slog.Default().With("component", "diagnostics"),
	}
}

// Capture writes a screenshot and the page HTML for the given page,
// keyed by page type, domain and timestamp. Failures are logged and
// swallowed so a broken capture never fails the run that triggered it.
func (r *Recorder) Capture(page playwright.Page, pageType string) {
	if !r.enabled || page == nil {
		return
	}

	key := r.key(pageType, page.URL())

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		r.logger.Warn("cannot create diagnostics dir", "dir", r.dir, "error", err)
		return
	}

	shotPath := filepath.Join(r.dir, key+".png")
	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(shotPath),
		FullPage: playwright.Bool(true),
	}); err != nil {
		r.logger.Warn("screenshot capture failed", "path", shotPath, "error", err)
	}

	content, err := page.Content()
	if err != nil {
		r.logger.Warn("page source capture failed", "error", err)
		return
	}

	htmlPath := filepath.Join(r.dir, key+".html")
	if err := os.WriteFile(htmlPath, []byte(content), 0o644); err != nil {
		r.logger.Warn("page source write failed", "path", htmlPath, "error", err)
		return
	}

	r.logger.Info("diagnostics captured", "screenshot", shotPath, "html", htmlPath)
}

func (r *Recorder) key(pageType, rawURL string) string {
	domain := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		domain = u.Hostname()
	}
	domain = strings.ReplaceAll(domain, ".", "_")

	return fmt.Sprintf("%s_%s_%s", sanitize(pageType), domain, time.Now().Format("20060102_150405"))
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
