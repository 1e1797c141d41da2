package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"showkeeper/internal/actions"
	"showkeeper/internal/episodes"
	"showkeeper/internal/scan"
)

type missingView struct {
	Episode string `json:"episode"`
	Title   string `json:"title"`
	AirDate string `json:"air_date,omitempty"`
}

type duplicateView struct {
	First         string  `json:"first"`
	Second        string  `json:"second"`
	AirDate       string  `json:"air_date,omitempty"`
	NamesSimilar  bool    `json:"names_similar"`
	OneFound      bool    `json:"one_found"`
	LargeFileSize bool    `json:"large_file_size"`
	Likely        bool    `json:"likely"`
	Similarity    float64 `json:"similarity"`
}

type unmatchedView struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

type showView struct {
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	Error      string          `json:"error,omitempty"`
	Videos     int             `json:"videos"`
	Missing    []missingView   `json:"missing"`
	Duplicates []duplicateView `json:"duplicates"`
	Unmatched  []unmatchedView `json:"unmatched"`
}

type actionView struct {
	Key      string `json:"key"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Produces string `json:"produces"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

type reportView struct {
	ScanID    string       `json:"scan_id"`
	StartedAt time.Time    `json:"started_at"`
	Shows     []showView   `json:"shows"`
	Actions   []actionView `json:"actions"`
	Ignored   int          `json:"ignored"`
	Residual  []actionView `json:"residual,omitempty"`
}

func airDate(ep *episodes.Episode) string {
	if !ep.HasAirDate() {
		return ""
	}
	return ep.AirDate.Format("2006-01-02")
}

func buildReportView(report *scan.Report) reportView {
	view := reportView{
		ScanID:    report.ScanID,
		StartedAt: report.StartedAt,
		Ignored:   report.Ignored,
		Shows:     make([]showView, 0, len(report.Shows)),
		Actions:   make([]actionView, 0, len(report.Actions)),
	}
	for _, sr := range report.Shows {
		sv := showView{ID: sr.ShowID, Missing: []missingView{}, Duplicates: []duplicateView{}, Unmatched: []unmatchedView{}}
		if sr.Err != nil {
			sv.Error = sr.Err.Error()
		}
		if res := sr.Result; res != nil {
			sv.Name = res.Show.Name
			if res.Index != nil {
				sv.Videos = len(res.Index.Videos)
				for _, f := range res.Index.Unmatched {
					sv.Unmatched = append(sv.Unmatched, unmatchedView{Path: f.Path, Size: f.Size})
				}
			}
			for _, ep := range res.Missing {
				sv.Missing = append(sv.Missing, missingView{Episode: ep.Label(), Title: ep.Name, AirDate: airDate(ep)})
			}
			for _, d := range res.Duplicates {
				sv.Duplicates = append(sv.Duplicates, duplicateView{
					First:         d.A.Label() + " " + d.A.Name,
					Second:        d.B.Label() + " " + d.B.Name,
					AirDate:       airDate(d.A),
					NamesSimilar:  d.NamesSimilar,
					OneFound:      d.OneFound,
					LargeFileSize: d.LargeFileSize,
					Likely:        d.Likely(),
					Similarity:    d.Similarity,
				})
			}
		}
		view.Shows = append(view.Shows, sv)
	}
	for _, a := range report.Actions {
		view.Actions = append(view.Actions, newActionView(a, false))
	}
	return view
}

func newActionView(a actions.Action, withStatus bool) actionView {
	v := actionView{Key: a.Key(), Kind: a.Kind().String(), Name: a.Name(), Produces: a.Produces()}
	if withStatus {
		st := a.Status()
		switch {
		case st.Succeeded():
			v.Status = "done"
		case st.Failed():
			v.Status = "failed"
			v.Error = st.Message()
		default:
			v.Status = "not run"
		}
	}
	return v
}

func printReport(out io.Writer, view reportView, showKeys, colorize bool) {
	for _, sv := range view.Shows {
		title := sv.ID
		if sv.Name != "" && !strings.EqualFold(sv.Name, sv.ID) {
			title = fmt.Sprintf("%s (%s)", sv.Name, sv.ID)
		}
		writeSection(out, title, colorize)
		if sv.Error != "" {
			fmt.Fprintln(out, paint("Skipped: "+sv.Error, statusError, colorize))
			fmt.Fprintln(out)
			continue
		}
		fmt.Fprintf(out, "%d video file(s), %d missing, %d possible duplicate(s)\n", sv.Videos, len(sv.Missing), len(sv.Duplicates))

		if len(sv.Missing) > 0 {
			rows := make([][]string, 0, len(sv.Missing))
			for _, m := range sv.Missing {
				rows = append(rows, []string{m.Episode, m.Title, m.AirDate})
			}
			fmt.Fprintln(out, renderTable(colorize, []string{"Missing", "Title", "Aired"}, rows))
		}
		if len(sv.Duplicates) > 0 {
			rows := make([][]string, 0, len(sv.Duplicates))
			for _, d := range sv.Duplicates {
				rows = append(rows, []string{
					d.First, d.Second, d.AirDate,
					yesNo(d.NamesSimilar), yesNo(d.OneFound), yesNo(d.LargeFileSize),
					fmt.Sprintf("%.2f", d.Similarity),
				})
			}
			fmt.Fprintln(out, renderTable(colorize,
				[]string{"Episode", "Same date as", "Aired", "Similar names", "One found", "Long file", "Score"},
				rows, 6,
			))
		}
		if len(sv.Unmatched) > 0 {
			rows := make([][]string, 0, len(sv.Unmatched))
			for _, u := range sv.Unmatched {
				rows = append(rows, []string{u.Path, humanize.IBytes(uint64(max(u.Size, 0)))})
			}
			fmt.Fprintln(out, renderTable(colorize, []string{"Unmatched file", "Size"}, rows, 1))
		}
		fmt.Fprintln(out)
	}

	if len(view.Actions) > 0 {
		writeSection(out, "Proposed actions", colorize)
		fmt.Fprintln(out, renderActions(view.Actions, showKeys, false, colorize))
	}
	summary := fmt.Sprintf("%d action(s) proposed", len(view.Actions))
	if view.Ignored > 0 {
		summary += fmt.Sprintf(", %d ignored", view.Ignored)
	}
	fmt.Fprintln(out, summary)
}

func renderActions(list []actionView, showKeys, withStatus, colorize bool) string {
	headers := []string{"#", "Kind", "Action"}
	if withStatus {
		headers = append(headers, "Status")
	}
	if showKeys {
		headers = append(headers, "Key")
	}
	rows := make([][]string, 0, len(list))
	for i, a := range list {
		row := []string{fmt.Sprintf("%d", i+1), a.Kind, a.Name}
		if withStatus {
			status := a.Status
			if a.Error != "" {
				status += ": " + a.Error
			}
			kind := statusWarn
			switch a.Status {
			case "done":
				kind = statusOK
			case "failed":
				kind = statusError
			}
			row = append(row, paint(status, kind, colorize))
		}
		if showKeys {
			row = append(row, a.Key)
		}
		rows = append(rows, row)
	}
	return renderTable(colorize, headers, rows, 0)
}
