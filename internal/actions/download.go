package actions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"showkeeper/internal/services"
)

const userAgent = "showkeeper/0.1"

// Downloader performs rate-limited HTTP downloads shared by Download and
// Fetch actions.
type Downloader struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewDownloader builds a downloader allowing perSecond requests per second.
func NewDownloader(timeout time.Duration, perSecond float64) *Downloader {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = max(1, int(perSecond))
	}
	return &Downloader{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Get downloads url into dest, writing through a temporary file so a failed
// transfer never leaves a truncated target behind.
func (d *Downloader) Get(ctx context.Context, url, dest string, progress func(written, total int64)) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "download", "build request", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "download", "request", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		marker := services.ErrExternalTool
		switch {
		case resp.StatusCode == http.StatusNotFound:
			marker = services.ErrNotFound
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			marker = services.ErrTransient
		}
		return services.Wrap(marker, "download", "response", fmt.Sprintf("%s returned %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	var w io.Writer = out
	if progress != nil {
		w = &countingWriter{w: out, total: resp.ContentLength, fn: progress}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrTransient, "download", "read body", url, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

type countingWriter struct {
	w       io.Writer
	total   int64
	written int64
	fn      func(written, total int64)
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.written += int64(n)
	c.fn(c.written, c.total)
	return n, err
}

// Download fetches artwork such as a series or season poster.
type Download struct {
	base
	URL  string
	Dest string

	downloader *Downloader
}

func NewDownload(d *Downloader, url, dest string) *Download {
	return &Download{URL: url, Dest: dest, downloader: d}
}

func (a *Download) Kind() Kind        { return KindDownload }
func (a *Download) Name() string      { return "Download " + filepath.Base(a.Dest) }
func (a *Download) Produces() string  { return a.Dest }
func (a *Download) SizeOfWork() int64 { return 1 }
func (a *Download) Key() string       { return KeyOf(KindDownload, a.Dest) }

func (a *Download) Execute(ctx context.Context) error {
	if a.downloader == nil {
		return services.Wrap(services.ErrConfiguration, "actions", "download", "no downloader configured", nil)
	}
	return a.downloader.Get(ctx, a.URL, a.Dest, func(written, total int64) {
		a.status.SetPercent(percentOf(written, total))
	})
}

// Fetch requests a missing episode from a feed endpoint. The response, such
// as a torrent or nzb file, lands in the feed watch folder for another tool
// to pick up.
type Fetch struct {
	base
	URL     string
	Dest    string
	Episode string

	downloader *Downloader
}

func NewFetch(d *Downloader, url, dest, episode string) *Fetch {
	return &Fetch{URL: url, Dest: dest, Episode: episode, downloader: d}
}

func (a *Fetch) Kind() Kind        { return KindFetch }
func (a *Fetch) Name() string      { return "Fetch " + a.Episode }
func (a *Fetch) Produces() string  { return a.URL }
func (a *Fetch) SizeOfWork() int64 { return 1 }
func (a *Fetch) Key() string       { return KeyOf(KindFetch, a.URL) }

func (a *Fetch) Execute(ctx context.Context) error {
	if a.downloader == nil {
		return services.Wrap(services.ErrConfiguration, "actions", "fetch", "no downloader configured", nil)
	}
	return a.downloader.Get(ctx, a.URL, a.Dest, nil)
}
