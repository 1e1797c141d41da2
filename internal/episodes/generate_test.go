package episodes

import (
	"errors"
	"fmt"
	"testing"

	"showkeeper/internal/services"
)

func intPtr(v int) *int { return &v }

func seasonOf(showID string, season, count int) []RawEpisode {
	out := make([]RawEpisode, 0, count)
	for n := 1; n <= count; n++ {
		out = append(out, RawEpisode{
			ID:           season*100 + n,
			ShowID:       showID,
			AiredSeason:  season,
			AiredEpisode: n,
			Title:        fmt.Sprintf("Chapter %d", n),
			FirstAired:   fmt.Sprintf("2010-01-%02d", n),
		})
	}
	return out
}

func testSeries(counts map[int]int) *RawSeries {
	series := &RawSeries{ID: "show", Name: "Show", AiredSeasons: map[int][]RawEpisode{}}
	for season, count := range counts {
		series.AiredSeasons[season] = seasonOf("show", season, count)
	}
	return series
}

func primaries(list []*Episode) []int {
	out := make([]int, 0, len(list))
	for _, ep := range list {
		out = append(out, ep.Primary.Or(-1))
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGenerateSortsAndNumbers(t *testing.T) {
	series := testSeries(map[int]int{1: 0})
	series.AiredSeasons[1] = []RawEpisode{
		{ID: 3, AiredSeason: 1, AiredEpisode: 7, Title: "C"},
		{ID: 1, AiredSeason: 1, AiredEpisode: 2, Title: "A"},
		{ID: 2, AiredSeason: 1, AiredEpisode: 4, Title: "B"},
	}
	list, err := Generate(ShowSettings{ID: "show"}, series, 1, true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := primaries(list); !equalInts(got, []int{1, 2, 3}) {
		t.Fatalf("unexpected numbers %v", got)
	}
	if list[0].Name != "A" || list[2].Name != "C" {
		t.Fatalf("unexpected order: %q %q", list[0].Name, list[2].Name)
	}
	if list[0].ShowID != "show" {
		t.Fatalf("expected show id backfilled from series, got %q", list[0].ShowID)
	}
}

func TestGenerateKeepsEpisodeZero(t *testing.T) {
	series := testSeries(map[int]int{1: 3})
	series.AiredSeasons[1] = append([]RawEpisode{{ID: 99, AiredSeason: 1, AiredEpisode: 0, Title: "Unaired Pilot"}}, series.AiredSeasons[1]...)
	list, err := Generate(ShowSettings{ID: "show"}, series, 1, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := primaries(list); !equalInts(got, []int{0, 1, 2, 3}) {
		t.Fatalf("unexpected numbers %v", got)
	}
}

func TestGenerateMissingSeason(t *testing.T) {
	_, err := Generate(ShowSettings{ID: "show"}, testSeries(map[int]int{1: 2}), 4, true)
	if !errors.Is(err, ErrNoSuchSeason) {
		t.Fatalf("expected ErrNoSuchSeason, got %v", err)
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected lookup failure marker, got %v", err)
	}
	if _, err := Generate(ShowSettings{ID: "show"}, nil, 1, true); !errors.Is(err, ErrNoSuchSeason) {
		t.Fatalf("expected ErrNoSuchSeason for nil series, got %v", err)
	}
}

func TestGenerateDVDOrder(t *testing.T) {
	series := testSeries(map[int]int{1: 3})
	series.DVDSeasons = map[int][]RawEpisode{
		1: {
			{ID: 1, AiredEpisode: 1, DVDSeason: intPtr(1), DVDEpisode: intPtr(2), Title: "First aired"},
			{ID: 2, AiredEpisode: 2, DVDSeason: intPtr(1), DVDEpisode: intPtr(1), Title: "Second aired"},
			{ID: 3, AiredEpisode: 3, Title: "Never on disc"},
		},
	}
	list, err := Generate(ShowSettings{ID: "show", Order: OrderDVD}, series, 1, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if list[0].Name != "Second aired" || list[1].Name != "First aired" {
		t.Fatalf("expected DVD ordering, got %q, %q", list[0].Name, list[1].Name)
	}
	if !list[2].Primary.IsUnset() {
		t.Fatalf("expected episode without disc number to stay unset, got %v", list[2].Primary)
	}
	if got := primaries(list[:2]); !equalInts(got, []int{1, 2}) {
		t.Fatalf("unexpected numbers %v", got)
	}
}

func TestGenerateRenameAndIgnoreKeepCountAndContiguity(t *testing.T) {
	series := testSeries(map[int]int{1: 6})
	show := ShowSettings{ID: "show", Rules: []Rule{
		{Season: 1, Action: ActionRename, First: 2, Text: "Renamed"},
		{Season: 1, Action: ActionIgnoreEpisode, First: 4},
		{Season: 1, Action: ActionRename, First: 5, Text: "Also renamed"},
	}}

	list, err := Generate(show, series, 1, true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(list)+1 != 6 {
		t.Fatalf("expected 6 slots counting the ignored one, got %d kept", len(list))
	}
	if got := primaries(list); !equalInts(got, []int{1, 2, 3, 5, 6}) {
		t.Fatalf("expected contiguous numbers with a gap at the ignored slot, got %v", got)
	}
	if list[1].Name != "Renamed" || list[3].Name != "Also renamed" {
		t.Fatalf("renames not applied: %q %q", list[1].Name, list[3].Name)
	}
}

func TestGenerateMergeSpansRange(t *testing.T) {
	series := testSeries(map[int]int{1: 6})
	show := ShowSettings{ID: "show", Rules: []Rule{{Season: 1, Action: ActionMerge, First: 2, Second: 4}}}

	list, err := Generate(show, series, 1, true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 episodes, got %d", len(list))
	}
	merged := list[1]
	p, _ := merged.Primary.Value()
	s, _ := merged.Secondary.Value()
	if p != 2 || s != p+2 {
		t.Fatalf("expected merged span 2-4, got %d-%d", p, s)
	}
	if merged.Kind != KindMerged || len(merged.Sources) != 3 {
		t.Fatalf("expected merged slot with 3 sources, got kind=%v sources=%d", merged.Kind, len(merged.Sources))
	}
	if merged.Name != "Chapter" {
		t.Fatalf("unexpected merged name %q", merged.Name)
	}
	if got := primaries(list); !equalInts(got, []int{1, 2, 5, 6}) {
		t.Fatalf("unexpected numbering after merge %v", got)
	}
	if merged.Label() != "S01E02-E04" {
		t.Fatalf("unexpected label %q", merged.Label())
	}
}

func TestGenerateCollapseDropsSpan(t *testing.T) {
	series := testSeries(map[int]int{1: 6})
	show := ShowSettings{ID: "show", Rules: []Rule{{Season: 1, Action: ActionCollapse, First: 2, Second: 4, Text: "Feature Length"}}}

	list, err := Generate(show, series, 1, true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := primaries(list); !equalInts(got, []int{1, 2, 3, 4}) {
		t.Fatalf("unexpected numbering after collapse %v", got)
	}
	if list[1].Width() != 0 || list[1].Name != "Feature Length" {
		t.Fatalf("expected single-width named slot, got width=%d name=%q", list[1].Width(), list[1].Name)
	}
}

func TestGenerateSplitProducesContiguousParts(t *testing.T) {
	series := testSeries(map[int]int{1: 5})
	show := ShowSettings{ID: "show", Rules: []Rule{{Season: 1, Action: ActionSplit, First: 3, Second: 2}}}

	list, err := Generate(show, series, 1, true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(list) != 6 {
		t.Fatalf("expected 6 episodes, got %d", len(list))
	}
	if got := primaries(list); !equalInts(got, []int{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("unexpected numbering after split %v", got)
	}
	for i, want := range []string{"Chapter 3 (Part 1)", "Chapter 3 (Part 2)"} {
		part := list[2+i]
		if part.Name != want || part.Kind != KindSplitPart || !part.Synthetic {
			t.Fatalf("unexpected part %d: %+v", i+1, part)
		}
	}
}

func TestGenerateRemoveSwapInsert(t *testing.T) {
	series := testSeries(map[int]int{1: 5})
	show := ShowSettings{ID: "show", Rules: []Rule{
		{Season: 1, Action: ActionRemove, First: 2, Second: 3},
		{Season: 1, Action: ActionSwap, First: 1, Second: 2},
		{Season: 1, Action: ActionInsert, First: 2, Text: "Lost Episode"},
		{Season: 1, Action: ActionInsert, First: 9, Text: "Beyond The End"},
		{Season: 1, Action: ActionInsert, First: 5, Text: "Epilogue"},
	}}

	list, err := Generate(show, series, 1, true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var names []string
	for _, ep := range list {
		names = append(names, ep.Name)
	}
	want := []string{"Chapter 4", "Lost Episode", "Chapter 1", "Chapter 5", "Epilogue"}
	if len(names) != len(want) {
		t.Fatalf("unexpected names %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("unexpected names %v, want %v", names, want)
		}
	}
	if got := primaries(list); !equalInts(got, []int{1, 2, 3, 4, 5}) {
		t.Fatalf("unexpected numbering %v", got)
	}
	if !list[1].Synthetic || list[1].Season != 1 {
		t.Fatalf("inserted slot should carry season identity: %+v", list[1])
	}
}

func TestGenerateRulesForOtherSeasonsAndMissingOperands(t *testing.T) {
	series := testSeries(map[int]int{1: 3, 2: 3})
	show := ShowSettings{ID: "show", Rules: []Rule{
		{Season: 2, Action: ActionRemove, First: 1},
		{Season: 1, Action: ActionRename, First: 42, Text: "Nothing"},
		{Season: 1, Action: ActionIgnoreEpisode, First: 2, Second: 42},
	}}
	list, err := Generate(show, series, 1, true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := primaries(list); !equalInts(got, []int{1, 3}) {
		t.Fatalf("unexpected numbering %v", got)
	}
}

func TestGenerateRulesSkippedWhenDisabled(t *testing.T) {
	series := testSeries(map[int]int{1: 3})
	show := ShowSettings{ID: "show", Rules: []Rule{{Season: 1, Action: ActionRemove, First: 1}}}
	list, err := Generate(show, series, 1, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected rules to be skipped, got %d episodes", len(list))
	}
}

func TestGenerateInvalidRules(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"split into one part", Rule{Season: 1, Action: ActionSplit, First: 1, Second: 1}},
		{"reversed range", Rule{Season: 1, Action: ActionMerge, First: 3, Second: 2}},
		{"unknown action", Rule{Season: 1, Action: Action(99), First: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			show := ShowSettings{ID: "show", Rules: []Rule{tt.rule}}
			if _, err := Generate(show, testSeries(map[int]int{1: 3}), 1, true); !errors.Is(err, ErrInvalidRule) {
				t.Fatalf("expected ErrInvalidRule, got %v", err)
			}
		})
	}
}

func TestGenerateMergesSpecials(t *testing.T) {
	series := testSeries(map[int]int{1: 4})
	series.AiredSeasons[0] = []RawEpisode{
		{ID: 1, ShowID: "show", AiredSeason: 0, AiredEpisode: 1, Title: "Prequel", AirsBeforeSeason: intPtr(1), AirsBeforeEpisode: intPtr(3)},
		{ID: 2, ShowID: "show", AiredSeason: 0, AiredEpisode: 2, Title: "Holiday Special", AirsBeforeSeason: intPtr(1), AirsBeforeEpisode: intPtr(42)},
		{ID: 3, ShowID: "show", AiredSeason: 0, AiredEpisode: 3, Title: "Other Season", AirsBeforeSeason: intPtr(2), AirsBeforeEpisode: intPtr(1)},
		{ID: 4, ShowID: "show", AiredSeason: 0, AiredEpisode: 4, Title: "Behind the Scenes"},
	}

	list, err := Generate(ShowSettings{ID: "show", CountSpecials: true}, series, 1, true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var names []string
	for _, ep := range list {
		names = append(names, ep.Name)
	}
	want := []string{"Chapter 1", "Chapter 2", "Prequel", "Chapter 3", "Chapter 4", "Holiday Special"}
	if len(names) != len(want) {
		t.Fatalf("unexpected episodes %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("unexpected episodes %v, want %v", names, want)
		}
	}
	if got := primaries(list); !equalInts(got, []int{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("unexpected numbering %v", got)
	}
	if list[2].Season != 1 {
		t.Fatalf("special should carry the target season, got %d", list[2].Season)
	}

	plain, err := Generate(ShowSettings{ID: "show"}, series, 1, true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(plain) != 4 {
		t.Fatalf("specials should only merge when counted, got %d episodes", len(plain))
	}
}

func TestRenumberIsIdempotent(t *testing.T) {
	list := []*Episode{
		{Primary: Num(5), Secondary: Num(7)},
		{Primary: Unset, Secondary: Unset},
		{Primary: Placeholder, Secondary: Placeholder},
		{Primary: Num(2), Secondary: Num(2)},
	}
	Renumber(list)
	first := primaries(list)
	Renumber(list)
	second := primaries(list)
	if !equalInts(first, second) {
		t.Fatalf("renumbering not idempotent: %v then %v", first, second)
	}
	if !equalInts(first, []int{1, -1, 4, 5}) {
		t.Fatalf("unexpected numbers %v", first)
	}
	if list[0].Secondary.Or(-1) != 3 {
		t.Fatalf("span width not preserved: %v", list[0].Secondary)
	}
}

func TestAssignOverallNumbers(t *testing.T) {
	seasons := map[int][]*Episode{
		0: {{Primary: Num(1), Secondary: Num(1)}},
		1: {{Primary: Num(1), Secondary: Num(1)}, {Primary: Num(2), Secondary: Num(3)}},
		2: {{Primary: Num(1), Secondary: Num(1)}},
	}
	AssignOverallNumbers(seasons)
	if seasons[0][0].Overall.IsSet() {
		t.Fatal("specials should not receive an overall number")
	}
	got := []int{seasons[1][0].Overall.Or(-1), seasons[1][1].Overall.Or(-1), seasons[2][0].Overall.Or(-1)}
	if !equalInts(got, []int{1, 2, 4}) {
		t.Fatalf("unexpected overall numbers %v", got)
	}
}

func TestOverallNumbersWithCountedSpecials(t *testing.T) {
	series := testSeries(map[int]int{1: 2, 2: 1})
	series.AiredSeasons[0] = []RawEpisode{
		{ID: 1, ShowID: "show", AiredSeason: 0, AiredEpisode: 1, Title: "Prequel", AirsBeforeSeason: intPtr(1), AirsBeforeEpisode: intPtr(2)},
	}
	settings := ShowSettings{ID: "show", CountSpecials: true}
	seasons := make(map[int][]*Episode)
	for _, season := range []int{0, 1, 2} {
		list, err := Generate(settings, series, season, true)
		if err != nil {
			t.Fatalf("Generate season %d: %v", season, err)
		}
		seasons[season] = list
	}
	AssignOverallNumbers(seasons)

	for _, ep := range seasons[0] {
		if ep.Overall.IsSet() {
			t.Fatalf("season 0 entry %q got overall %v", ep.Name, ep.Overall)
		}
	}
	var names []string
	var overall []int
	for _, season := range []int{1, 2} {
		for _, ep := range seasons[season] {
			names = append(names, ep.Name)
			overall = append(overall, ep.Overall.Or(-1))
		}
	}
	if len(names) != 4 || names[1] != "Prequel" {
		t.Fatalf("unexpected episodes %v", names)
	}
	if !equalInts(overall, []int{1, 2, 3, 4}) {
		t.Fatalf("overall numbers = %v, want [1 2 3 4]", overall)
	}
}
