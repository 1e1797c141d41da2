package episodes

import "sort"

// AssignOverallNumbers numbers every slot across the whole series in season
// order. Season 0 never takes part: counted specials already sit inside their
// airs-before season. Spans advance the counter by their width, the same way
// Renumber does within a season.
func AssignOverallNumbers(seasons map[int][]*Episode) {
	keys := make([]int, 0, len(seasons))
	for k := range seasons {
		if k != 0 {
			keys = append(keys, k)
		}
	}
	sort.Ints(keys)

	n := 1
	for _, season := range keys {
		for _, ep := range seasons[season] {
			if ep.Primary.IsUnset() {
				continue
			}
			ep.Overall = Num(n)
			n += ep.Width() + 1
		}
	}
}
