package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// Fetcher downloads id-mapping files into a local cache directory.
type Fetcher struct {
	client  *http.Client
	baseURL string
	status  io.Writer
	logger  *zap.Logger
}

// NewFetcher creates a Fetcher for the UniProt download site.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Minute, // human id mapping is ~150MB
		},
		baseURL: BaseURL,
		status:  io.Discard,
		logger:  zap.NewNop(),
	}
}

// SetBaseURL overrides the directory URL files are fetched from.
func (f *Fetcher) SetBaseURL(u string) {
	f.baseURL = u
}

// SetStatus sets where user-facing progress messages are written.
// Progress bars are only drawn when w is a terminal.
func (f *Fetcher) SetStatus(w io.Writer) {
	f.status = w
}

// SetLogger sets the logger for debug messages.
func (f *Fetcher) SetLogger(l *zap.Logger) {
	f.logger = l
}

// Ensure returns the path of organism's id-mapping file in dir, downloading
// it first if it is not cached yet.
func (f *Fetcher) Ensure(ctx context.Context, organism, dir string) (string, error) {
	if err := Validate(organism); err != nil {
		return "", err
	}

	dest := LocalPath(dir, organism)
	if info, err := os.Stat(dest); err == nil {
		f.logger.Debug("using cached id mapping",
			zap.String("path", dest),
			zap.Int64("size", info.Size()))
		return dest, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	fmt.Fprintf(f.status, "Caching %s\n", dest)
	if err := f.download(ctx, f.baseURL+"/"+FileName(organism), dest); err != nil {
		return "", err
	}
	return dest, nil
}

// download fetches url to destPath via a temporary file.
func (f *Fetcher) download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP error: %s", filepath.Base(destPath), resp.Status)
	}

	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var body io.Reader = resp.Body
	pw := &progressWriter{
		out:       f.status,
		total:     resp.ContentLength,
		lastPrint: time.Now(),
	}
	if isTerminal(f.status) {
		body = io.TeeReader(resp.Body, pw)
	}

	n, err := io.Copy(out, body)
	out.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	if pw.printed {
		fmt.Fprintln(f.status)
	}
	f.logger.Debug("downloaded id mapping",
		zap.String("url", url),
		zap.String("size", formatSize(n)))
	return nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// progressWriter tracks download progress.
type progressWriter struct {
	out        io.Writer
	total      int64
	downloaded int64
	lastPrint  time.Time
	printed    bool
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	// Print progress every second
	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.out, "\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Fprintf(pw.out, "\r    Progress: %s  ", formatSize(pw.downloaded))
		}
		pw.lastPrint = time.Now()
		pw.printed = true
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
