package episodes

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRule marks a rule whose operands cannot be applied.
var ErrInvalidRule = errors.New("invalid numbering rule")

// Action is the operation a Rule performs.
type Action int

const (
	ActionRename Action = iota
	ActionRemove
	ActionIgnoreEpisode
	ActionSplit
	ActionMerge
	ActionCollapse
	ActionSwap
	ActionInsert
)

var actionNames = map[Action]string{
	ActionRename:        "rename",
	ActionRemove:        "remove",
	ActionIgnoreEpisode: "ignore_episode",
	ActionSplit:         "split",
	ActionMerge:         "merge",
	ActionCollapse:      "collapse",
	ActionSwap:          "swap",
	ActionInsert:        "insert",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction maps a configuration action name onto an Action.
func ParseAction(value string) (Action, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for action, name := range actionNames {
		if name == value {
			return action, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown action %q", ErrInvalidRule, value)
}

// Rule adjusts one season's numbering. First and Second are episode numbers
// as they stand when the rule runs; Second is zero when unset. For Split,
// Second is the number of parts.
type Rule struct {
	Season int
	Action Action
	First  int
	Second int
	Text   string
}

func (r Rule) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "season %d %s %d", r.Season, r.Action, r.First)
	if r.Second != 0 {
		fmt.Fprintf(&b, " %d", r.Second)
	}
	if r.Text != "" {
		fmt.Fprintf(&b, " %q", r.Text)
	}
	return b.String()
}

func indexOf(list []*Episode, number int) int {
	for i, ep := range list {
		if v, ok := ep.Primary.Value(); ok && v == number {
			return i
		}
	}
	return -1
}

// span resolves the inclusive index range a rule addresses. ok is false when
// the first operand matches nothing.
func span(list []*Episode, r Rule) (int, int, bool, error) {
	i1 := indexOf(list, r.First)
	if i1 < 0 {
		return 0, 0, false, nil
	}
	i2 := i1
	if r.Second != 0 {
		if r.Second < r.First {
			return 0, 0, false, fmt.Errorf("%w: %s: range ends before it starts", ErrInvalidRule, r)
		}
		if found := indexOf(list, r.Second); found >= 0 {
			i2 = found
		}
	}
	if i2 < i1 {
		return 0, 0, false, fmt.Errorf("%w: %s: range is out of order", ErrInvalidRule, r)
	}
	return i1, i2, true, nil
}

func applyRule(list []*Episode, r Rule) ([]*Episode, error) {
	switch r.Action {
	case ActionRename:
		if i := indexOf(list, r.First); i >= 0 {
			list[i].Name = r.Text
		}
		return list, nil

	case ActionRemove:
		i1, i2, ok, err := span(list, r)
		if err != nil || !ok {
			return list, err
		}
		return append(list[:i1], list[i2+1:]...), nil

	case ActionIgnoreEpisode:
		i1, i2, ok, err := span(list, r)
		if err != nil || !ok {
			return list, err
		}
		for i := i1; i <= i2; i++ {
			list[i].Ignore = true
		}
		return list, nil

	case ActionSplit:
		return split(list, r)

	case ActionMerge, ActionCollapse:
		return merge(list, r)

	case ActionSwap:
		i1 := indexOf(list, r.First)
		i2 := indexOf(list, r.Second)
		if i1 >= 0 && i2 >= 0 {
			list[i1], list[i2] = list[i2], list[i1]
		}
		return list, nil

	case ActionInsert:
		return insert(list, r), nil
	}
	return list, fmt.Errorf("%w: %s", ErrInvalidRule, r)
}

func split(list []*Episode, r Rule) ([]*Episode, error) {
	if r.Second < 2 {
		return list, fmt.Errorf("%w: %s: split needs at least two parts", ErrInvalidRule, r)
	}
	i := indexOf(list, r.First)
	if i < 0 {
		return list, nil
	}
	original := list[i]
	parts := make([]*Episode, 0, r.Second)
	for n := 1; n <= r.Second; n++ {
		part := original.clone()
		part.Kind = KindSplitPart
		part.Synthetic = true
		part.Primary = Placeholder
		part.Secondary = Placeholder
		part.Name = fmt.Sprintf("%s (Part %d)", original.Name, n)
		parts = append(parts, part)
	}
	out := make([]*Episode, 0, len(list)+r.Second-1)
	out = append(out, list[:i]...)
	out = append(out, parts...)
	return append(out, list[i+1:]...), nil
}

func merge(list []*Episode, r Rule) ([]*Episode, error) {
	i1, i2, ok, err := span(list, r)
	if err != nil || !ok {
		return list, err
	}
	absorbed := list[i1 : i2+1]
	first, last := absorbed[0], absorbed[len(absorbed)-1]

	merged := &Episode{
		Kind:      KindMerged,
		Raw:       first.Raw,
		ShowID:    first.ShowID,
		Season:    first.Season,
		Primary:   first.Primary,
		Secondary: first.Primary,
		Synthetic: true,
		AirDate:   first.AirDate,
	}
	if r.Action == ActionMerge {
		merged.Secondary = last.Secondary
		if !last.Secondary.IsSet() {
			merged.Secondary = last.Primary
		}
	}

	names := make([]string, 0, len(absorbed))
	overviews := make([]string, 0, len(absorbed))
	for _, ep := range absorbed {
		names = append(names, ep.Name)
		if ep.Overview != "" {
			overviews = append(overviews, ep.Overview)
		}
		if ep.Kind == KindMerged {
			merged.Sources = append(merged.Sources, ep.Sources...)
		} else {
			merged.Sources = append(merged.Sources, ep.Raw)
		}
	}
	merged.Overview = strings.Join(overviews, "\n\n")
	merged.Name = r.Text
	if merged.Name == "" {
		merged.Name = BestCommonName(names)
	}

	out := make([]*Episode, 0, len(list)-len(absorbed)+1)
	out = append(out, list[:i1]...)
	out = append(out, merged)
	return append(out, list[i2+1:]...), nil
}

// insert adds a synthetic slot before the entry numbered r.First, or after the
// last entry when r.First is the number right after it. Any other number is a
// no-op.
func insert(list []*Episode, r Rule) []*Episode {
	if len(list) == 0 {
		return list
	}
	at := indexOf(list, r.First)
	template := list[len(list)-1]
	if at >= 0 {
		template = list[at]
	} else {
		last := 0
		for _, ep := range list {
			if v, ok := ep.Primary.Value(); ok && v+ep.Width() > last {
				last = v + ep.Width()
			}
		}
		if r.First != last+1 {
			return list
		}
		at = len(list)
	}

	ep := &Episode{
		Kind: KindNormal,
		Raw: RawEpisode{
			ShowID:      template.Raw.ShowID,
			AiredSeason: template.Raw.AiredSeason,
			DVDSeason:   template.Raw.DVDSeason,
			Title:       r.Text,
		},
		ShowID:    template.ShowID,
		Season:    template.Season,
		Primary:   Placeholder,
		Secondary: Placeholder,
		Synthetic: true,
		Name:      r.Text,
	}
	out := make([]*Episode, 0, len(list)+1)
	out = append(out, list[:at]...)
	out = append(out, ep)
	return append(out, list[at:]...)
}
