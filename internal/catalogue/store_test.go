package catalogue

import (
	"os"
	"path/filepath"
	"testing"

	"showkeeper/internal/episodes"
)

func TestStoreLoadsExport(t *testing.T) {
	dir := t.TempDir()
	export := `{
  "id": "lost",
  "name": "Lost",
  "aired_seasons": {
    "1": [
      {"id": 1, "aired_season": 1, "aired_episode": 1, "title": "Pilot (1)", "first_aired": "2004-09-22"},
      {"id": 2, "aired_season": 1, "aired_episode": 2, "title": "Pilot (2)", "first_aired": "2004-09-29"}
    ]
  }
}`
	if err := os.WriteFile(filepath.Join(dir, "lost.json"), []byte(export), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(dir, nil)
	store.Lock()
	series, ok := store.GetSeries("lost")
	store.Unlock()
	if !ok {
		t.Fatal("expected series to load")
	}
	if len(series.AiredSeasons[1]) != 2 {
		t.Fatalf("expected two episodes, got %d", len(series.AiredSeasons[1]))
	}
	aired, ok := series.AiredSeasons[1][0].AirDate()
	if !ok || aired.Year() != 2004 {
		t.Fatalf("unexpected air date %v %v", aired, ok)
	}
}

func TestStoreMissingAndInvalid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewStore(dir, nil)
	for _, id := range []string{"absent", "broken", "../escape", ""} {
		if _, ok := store.GetSeries(id); ok {
			t.Fatalf("expected %q to be absent", id)
		}
	}
}

func TestStorePutRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "catalogue")
	store := NewStore(dir, nil)
	series := &episodes.RawSeries{
		ID:   "fringe",
		Name: "Fringe",
		AiredSeasons: map[int][]episodes.RawEpisode{
			1: {{ID: 10, AiredSeason: 1, AiredEpisode: 1, Title: "Pilot"}},
		},
	}
	if err := store.Put(series); err != nil {
		t.Fatalf("Put: %v", err)
	}

	fresh := NewStore(dir, nil)
	got, ok := fresh.GetSeries("fringe")
	if !ok || got.Name != "Fringe" || got.AiredSeasons[1][0].Title != "Pilot" {
		t.Fatalf("unexpected series %+v", got)
	}
	if err := store.Put(&episodes.RawSeries{}); err == nil {
		t.Fatal("expected validation error for empty id")
	}
}

func TestPreloadServesFromMemory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "show.json")
	if err := os.WriteFile(path, []byte(`{"id":"show","name":"Show","aired_seasons":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewStore(dir, nil)
	store.Preload("show", "absent")
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.GetSeries("show"); !ok {
		t.Fatal("preloaded series should not need the file")
	}
	if _, ok := store.GetSeries("absent"); ok {
		t.Fatal("absent series should stay absent")
	}
}
