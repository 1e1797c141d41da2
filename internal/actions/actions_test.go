package actions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"showkeeper/internal/episodes"
	"showkeeper/internal/services"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileOps(t *testing.T) {
	tests := []struct {
		name       string
		op         Op
		keepSource bool
		kind       Kind
	}{
		{"copy", OpCopy, true, KindCopy},
		{"move", OpMove, false, KindMove},
		{"rename", OpRename, false, KindRename},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "incoming", "show.s01e01.mkv")
			dst := filepath.Join(dir, "Show", "Season 01", "Show - S01E01 - Pilot.mkv")
			writeFile(t, src, "video")

			a := NewFileOp(tt.op, src, dst)
			a.Episode = "S01E01"
			if a.Kind() != tt.kind {
				t.Fatalf("unexpected kind %v", a.Kind())
			}
			if a.SizeOfWork() != 5 {
				t.Fatalf("expected work sized from source, got %d", a.SizeOfWork())
			}
			if err := Run(context.Background(), a); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !a.Status().Succeeded() || a.Status().Percent() != 100 {
				t.Fatalf("unexpected status done=%v failed=%v pct=%v", a.Status().Done(), a.Status().Failed(), a.Status().Percent())
			}
			if _, err := os.Stat(dst); err != nil {
				t.Fatalf("expected destination: %v", err)
			}
			_, err := os.Stat(src)
			if exists := err == nil; exists != tt.keepSource {
				t.Fatalf("source exists=%v, want %v", exists, tt.keepSource)
			}
			if !strings.HasPrefix(a.Name(), strings.ToUpper(tt.name[:1])) || !strings.Contains(a.Name(), "S01E01") {
				t.Fatalf("unexpected name %q", a.Name())
			}
		})
	}
}

func TestFileOpRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mkv")
	dst := filepath.Join(dir, "b.mkv")
	writeFile(t, src, "a")
	writeFile(t, dst, "b")

	a := NewFileOp(OpMove, src, dst)
	err := Run(context.Background(), a)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !a.Status().Failed() || !strings.Contains(a.Status().Message(), "already exists") {
		t.Fatalf("expected failure recorded, got %q", a.Status().Message())
	}
	if services.Retryable(err) {
		t.Fatal("overwrite refusal should not be retryable")
	}
}

func TestFileOpHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mkv")
	writeFile(t, src, "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewFileOp(OpCopy, src, filepath.Join(dir, "b.mkv"))
	if err := Run(ctx, a); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestDeletesAndTouch(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "Season 01", "sample.txt")
	writeFile(t, junk, "x")
	empty := filepath.Join(dir, "Season 02")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := Run(context.Background(), NewDeleteFile(junk, "*.txt")); err != nil {
		t.Fatalf("delete file: %v", err)
	}
	if err := Run(context.Background(), NewDeleteFile(junk, "*.txt")); err != nil {
		t.Fatalf("deleting a missing file should succeed: %v", err)
	}
	if err := Run(context.Background(), NewDeleteDirectory(empty)); err != nil {
		t.Fatalf("delete empty directory: %v", err)
	}

	video := filepath.Join(dir, "Season 01", "ep.mkv")
	writeFile(t, video, "v")
	if err := Run(context.Background(), NewDeleteDirectory(filepath.Join(dir, "Season 01"))); err == nil {
		t.Fatal("expected non-empty directory removal to fail")
	}

	aired := time.Date(2008, 1, 20, 0, 0, 0, 0, time.UTC)
	if err := Run(context.Background(), NewTouch(video, aired)); err != nil {
		t.Fatalf("touch: %v", err)
	}
	info, err := os.Stat(video)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(aired) {
		t.Fatalf("expected mod time %v, got %v", aired, info.ModTime())
	}
}

func TestKeysIdentifyOperation(t *testing.T) {
	a := NewDeleteFile("/tv/x.txt", "")
	b := NewDeleteFile("/tv/x.txt", "other reason")
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys, got %q %q", a.Key(), b.Key())
	}
	if a.Key() == NewTouch("/tv/x.txt", time.Time{}).Key() {
		t.Fatal("different kinds must not share keys")
	}
}

func TestRenderNFO(t *testing.T) {
	ep := &episodes.Episode{
		Season:   1,
		Primary:  episodes.Num(3),
		Name:     "Walkabout",
		Overview: "Locke's past is revealed.",
		Raw: episodes.RawEpisode{
			ID:         42,
			FirstAired: "2004-10-13",
			Directors:  []string{"Jack Bender"},
			Writers:    []string{"David Fury"},
			GuestStars: []string{"Lance Reddick"},
		},
	}
	data, err := RenderNFO("Lost", ep)
	if err != nil {
		t.Fatalf("RenderNFO: %v", err)
	}
	doc := string(data)
	for _, want := range []string{
		"<episodedetails>",
		"<title>Walkabout</title>",
		"<showtitle>Lost</showtitle>",
		"<episode>3</episode>",
		"<aired>2004-10-13</aired>",
		`<uniqueid type="catalogue" default="true">42</uniqueid>`,
		"<director>Jack Bender</director>",
		"<name>Lance Reddick</name>",
		"Locke&#39;s past is revealed.",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("expected %q in\n%s", want, doc)
		}
	}

	merged := &episodes.Episode{
		Kind:      episodes.KindMerged,
		Season:    2,
		Primary:   episodes.Num(5),
		Secondary: episodes.Num(6),
		Name:      "Exodus",
		Sources:   []episodes.RawEpisode{{Title: "Exodus (1)"}, {Title: "Exodus (2)"}},
	}
	data, err = RenderNFO("Lost", merged)
	if err != nil {
		t.Fatalf("RenderNFO merged: %v", err)
	}
	if strings.Count(string(data), "<episodedetails>") != 2 || !strings.Contains(string(data), "<episode>6</episode>") {
		t.Fatalf("expected one document per absorbed episode:\n%s", data)
	}
}

func TestWriteNFO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Season 01", "Show - S01E01.nfo")
	ep := &episodes.Episode{Season: 1, Primary: episodes.Num(1), Name: "Pilot"}
	a := NewWriteNFO(path, "Show", ep)
	if err := Run(context.Background(), a); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.Name() != "Write NFO S01E01" {
		t.Fatalf("unexpected name %q", a.Name())
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "<title>Pilot</title>") {
		t.Fatalf("unexpected nfo %q %v", data, err)
	}
}

func TestDownloadAndFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/poster.jpg":
			_, _ = w.Write([]byte("jpegdata"))
		case "/feed/lost/s01e05":
			_, _ = w.Write([]byte("torrent"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(5*time.Second, 100)

	poster := NewDownload(d, srv.URL+"/poster.jpg", filepath.Join(dir, "Show", "poster.jpg"))
	if err := Run(context.Background(), poster); err != nil {
		t.Fatalf("download: %v", err)
	}
	if data, _ := os.ReadFile(poster.Dest); string(data) != "jpegdata" {
		t.Fatalf("unexpected poster %q", data)
	}

	fetch := NewFetch(d, srv.URL+"/feed/lost/s01e05", filepath.Join(dir, "watch", "lost-s01e05.torrent"), "S01E05")
	if err := Run(context.Background(), fetch); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if fetch.Produces() != srv.URL+"/feed/lost/s01e05" || fetch.Kind() != KindFetch {
		t.Fatalf("unexpected fetch identity %q %v", fetch.Produces(), fetch.Kind())
	}

	missing := NewDownload(d, srv.URL+"/absent.jpg", filepath.Join(dir, "absent.jpg"))
	err := Run(context.Background(), missing)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "absent.jpg.part")); !os.IsNotExist(statErr) {
		t.Fatal("expected no partial file left behind")
	}
}

func TestDownloadWithoutDownloader(t *testing.T) {
	a := NewDownload(nil, "http://example.invalid/x.jpg", "/tmp/x.jpg")
	if err := Run(context.Background(), a); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
