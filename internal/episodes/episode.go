package episodes

import (
	"fmt"
	"time"
)

// Kind distinguishes plain catalogue episodes from rule-produced ones.
type Kind int

const (
	KindNormal Kind = iota
	KindSplitPart
	KindMerged
)

func (k Kind) String() string {
	switch k {
	case KindSplitPart:
		return "split-part"
	case KindMerged:
		return "merged"
	default:
		return "normal"
	}
}

// Episode is one slot in a show's final numbering.
type Episode struct {
	Kind Kind
	// Raw is the catalogue record this slot derives its identity from. Merged
	// episodes use the first absorbed record.
	Raw RawEpisode
	// Sources lists every raw episode a merged slot absorbed, in order.
	Sources []RawEpisode

	ShowID    string
	Season    int
	Primary   Number
	Secondary Number
	Overall   Number

	Ignore    bool
	Synthetic bool

	AirDate  time.Time
	Name     string
	Overview string
}

func newEpisode(raw RawEpisode, season int, number Number) *Episode {
	ep := &Episode{
		Kind:      KindNormal,
		Raw:       raw,
		ShowID:    raw.ShowID,
		Season:    season,
		Primary:   number,
		Secondary: number,
		Name:      raw.Title,
		Overview:  raw.Overview,
	}
	if t, ok := raw.AirDate(); ok {
		ep.AirDate = t
	}
	return ep
}

// Width is the number of additional episodes the slot spans.
func (e *Episode) Width() int {
	p, okP := e.Primary.Value()
	s, okS := e.Secondary.Value()
	if !okP || !okS || s < p {
		return 0
	}
	return s - p
}

// HasAirDate reports whether the catalogue supplied a first-aired date.
func (e *Episode) HasAirDate() bool {
	return !e.AirDate.IsZero()
}

// Covers reports whether the slot's span includes episode n.
func (e *Episode) Covers(n int) bool {
	p, ok := e.Primary.Value()
	if !ok {
		return false
	}
	return n >= p && n <= p+e.Width()
}

// Label renders the slot as S01E02, or S01E02-E04 for spans.
func (e *Episode) Label() string {
	p := e.Primary.Or(-1)
	if w := e.Width(); w > 0 {
		return fmt.Sprintf("S%02dE%02d-E%02d", e.Season, p, p+w)
	}
	return fmt.Sprintf("S%02dE%02d", e.Season, p)
}

func (e *Episode) clone() *Episode {
	c := *e
	c.Sources = append([]RawEpisode(nil), e.Sources...)
	return &c
}
