package library

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"showkeeper/internal/episodes"
	"showkeeper/internal/textutil"
)

var templateToken = regexp.MustCompile(`\{(\w+)(?::(\d+))?\}`)

// RenderEpisodeName fills a filename template such as
// "{show} - S{season:02}E{episode:02} - {title}". A ":NN" suffix zero-pads
// numeric tokens. Spans render as "02-E04" when the template puts an E right
// before the episode token, and "02-04" otherwise. The result carries no
// extension.
func RenderEpisodeName(template, showName string, ep *episodes.Episode) string {
	var b strings.Builder
	last := 0
	for _, loc := range templateToken.FindAllStringSubmatchIndex(template, -1) {
		b.WriteString(template[last:loc[0]])
		last = loc[1]

		token := strings.ToLower(template[loc[2]:loc[3]])
		width := 0
		if loc[4] >= 0 {
			width, _ = strconv.Atoi(template[loc[4]:loc[5]])
		}
		switch token {
		case "show":
			b.WriteString(showName)
		case "season":
			b.WriteString(pad(ep.Season, width))
		case "episode":
			primary := ep.Primary.Or(0)
			b.WriteString(pad(primary, width))
			if w := ep.Width(); w > 0 {
				b.WriteString("-")
				if loc[0] > 0 && (template[loc[0]-1] == 'E' || template[loc[0]-1] == 'e') {
					b.WriteByte(template[loc[0]-1])
				}
				b.WriteString(pad(primary+w, width))
			}
		case "overall":
			b.WriteString(pad(ep.Overall.Or(0), width))
		case "title":
			b.WriteString(ep.Name)
		case "year":
			if ep.HasAirDate() {
				b.WriteString(strconv.Itoa(ep.AirDate.Year()))
			}
		case "airdate":
			if ep.HasAirDate() {
				b.WriteString(ep.AirDate.Format(episodes.AirDateLayout))
			}
		default:
			b.WriteString(template[loc[0]:loc[1]])
		}
	}
	b.WriteString(template[last:])
	return cleanName(b.String())
}

// RenderSeasonFolder fills a season folder format such as "Season {season:02}".
// Season 0 always renders as "Specials".
func RenderSeasonFolder(format string, season int) string {
	if season == 0 {
		return "Specials"
	}
	out := templateToken.ReplaceAllStringFunc(format, func(tok string) string {
		m := templateToken.FindStringSubmatch(tok)
		if !strings.EqualFold(m[1], "season") {
			return tok
		}
		width, _ := strconv.Atoi(m[2])
		return pad(season, width)
	})
	return cleanName(out)
}

func pad(n, width int) string {
	if width <= 0 {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%0*d", width, n)
}

// cleanName drops separators left dangling by empty tokens, as in
// "Show - S01E02 - " when the title is unknown.
func cleanName(name string) string {
	name = textutil.SanitizeFileName(name)
	for {
		trimmed := strings.TrimRight(strings.TrimSuffix(strings.TrimRight(name, " "), " -"), " .")
		if trimmed == name {
			return name
		}
		name = trimmed
	}
}
