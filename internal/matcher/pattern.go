package matcher

import (
	"fmt"
	"regexp"
	"strconv"
)

// Pattern is one entry in the ordered filename cascade. Expressions use the
// named groups s (season), e (episode) and optionally f (last episode of a
// multi-episode file) and are matched against lower-cased text.
type Pattern struct {
	Expression  string
	Description string
	FullPath    bool
	Enabled     bool

	re *regexp.Regexp
}

// NewPattern compiles an expression into an enabled pattern.
func NewPattern(expression, description string, fullPath bool) (Pattern, error) {
	re, err := regexp.Compile(expression)
	if err != nil {
		return Pattern{}, fmt.Errorf("compile pattern %q: %w", expression, err)
	}
	if re.SubexpIndex("s") < 0 && re.SubexpIndex("e") < 0 {
		return Pattern{}, fmt.Errorf("pattern %q has neither an s nor an e group", expression)
	}
	return Pattern{
		Expression:  expression,
		Description: description,
		FullPath:    fullPath,
		Enabled:     true,
		re:          re,
	}, nil
}

func mustPattern(expression, description string, fullPath bool) Pattern {
	p, err := NewPattern(expression, description, fullPath)
	if err != nil {
		panic(err)
	}
	return p
}

var defaultPatterns = []Pattern{
	mustPattern(`s(?P<s>[0-9]+)[ ._-]*e(?P<e>[0-9]+)(?:[ ._-]*-?[ ._-]*e(?P<f>[0-9]+))?`, "S01E02, S01E02E03, s01.e02-e03", false),
	mustPattern(`\b(?P<s>[0-9]{1,2})x(?P<e>[0-9]{1,3})(?:-(?:[0-9]{1,2}x)?(?P<f>[0-9]{1,3}))?\b`, "1x02, 1x02-1x03", false),
	mustPattern(`season[ ._-]*(?P<s>[0-9]+)[ ._-]*episode[ ._-]*(?P<e>[0-9]+)`, "Season 1 Episode 2", false),
	mustPattern(`season[ ._-]*(?P<s>[0-9]+)[/\\](?:[^/\\]*?[ ._-])?(?:e|ep|episode)[ ._-]*(?P<e>[0-9]+)[^/\\]*$`, "Season 1/Episode 2", true),
	mustPattern(`\b(?P<s>[0-9])(?P<e>[0-9]{2})\b`, "102", false),
	mustPattern(`(?:^|[ ._-])(?:e|ep|episode)[ ._-]*(?P<e>[0-9]+)`, "Episode 2", false),
}

// DefaultPatterns returns the built-in cascade used when configuration lists
// no patterns.
func DefaultPatterns() []Pattern {
	return append([]Pattern(nil), defaultPatterns...)
}

// match evaluates the pattern against text. ok is false when the expression
// does not match or captures neither season nor episode.
func (p Pattern) match(text string) (season, episode, final int, ok bool) {
	if p.re == nil {
		return -1, -1, -1, false
	}
	m := p.re.FindStringSubmatch(text)
	if m == nil {
		return -1, -1, -1, false
	}
	season = group(p.re, m, "s")
	episode = group(p.re, m, "e")
	final = group(p.re, m, "f")
	if season < 0 && episode < 0 {
		return -1, -1, -1, false
	}
	return season, episode, final, true
}

func group(re *regexp.Regexp, m []string, name string) int {
	idx := re.SubexpIndex(name)
	if idx < 0 || idx >= len(m) || m[idx] == "" {
		return -1
	}
	v, err := strconv.Atoi(m[idx])
	if err != nil {
		return -1
	}
	return v
}
