package actions

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"showkeeper/internal/episodes"
	"showkeeper/internal/services"
)

type nfoUniqueID struct {
	Type    string `xml:"type,attr"`
	Default bool   `xml:"default,attr,omitempty"`
	Value   string `xml:",chardata"`
}

type nfoEpisode struct {
	XMLName   xml.Name      `xml:"episodedetails"`
	Title     string        `xml:"title"`
	ShowTitle string        `xml:"showtitle"`
	Season    int           `xml:"season"`
	Episode   int           `xml:"episode"`
	Aired     string        `xml:"aired,omitempty"`
	Plot      string        `xml:"plot,omitempty"`
	UniqueID  []nfoUniqueID `xml:"uniqueid,omitempty"`
	Directors []string      `xml:"director,omitempty"`
	Credits   []string      `xml:"credits,omitempty"`
	Actors    []nfoActor    `xml:"actor,omitempty"`
}

type nfoActor struct {
	Name string `xml:"name"`
}

// WriteNFO writes an episode metadata sidecar next to the video file.
type WriteNFO struct {
	base
	Path     string
	ShowName string
	Episode  *episodes.Episode
}

func NewWriteNFO(path, showName string, ep *episodes.Episode) *WriteNFO {
	return &WriteNFO{Path: path, ShowName: showName, Episode: ep}
}

func (a *WriteNFO) Kind() Kind        { return KindWriteMetadata }
func (a *WriteNFO) Name() string      { return "Write NFO " + a.Episode.Label() }
func (a *WriteNFO) Produces() string  { return a.Path }
func (a *WriteNFO) SizeOfWork() int64 { return 1 }
func (a *WriteNFO) Key() string       { return KeyOf(KindWriteMetadata, a.Path) }

func (a *WriteNFO) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := RenderNFO(a.ShowName, a.Episode)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "actions", "write_metadata", "create folder", err)
	}
	tmp := a.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "actions", "write_metadata", a.Path, err)
	}
	if err := os.Rename(tmp, a.Path); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrTransient, "actions", "write_metadata", a.Path, err)
	}
	return nil
}

// RenderNFO renders the episodedetails document for ep. Merged slots emit one
// document per absorbed episode so media centers list each of them.
func RenderNFO(showName string, ep *episodes.Episode) ([]byte, error) {
	if ep == nil {
		return nil, services.Wrap(services.ErrValidation, "actions", "render_nfo", "episode is required", nil)
	}
	docs := []nfoEpisode{nfoFor(showName, ep, ep.Raw, ep.Primary.Or(0), ep.Name)}
	if ep.Kind == episodes.KindMerged && len(ep.Sources) > 1 {
		docs = docs[:0]
		first := ep.Primary.Or(0)
		for i, src := range ep.Sources {
			docs = append(docs, nfoFor(showName, ep, src, first+i, src.Title))
		}
	}

	out := []byte(xml.Header)
	for _, doc := range docs {
		data, err := xml.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode nfo: %w", err)
		}
		out = append(out, data...)
		out = append(out, '\n')
	}
	return out, nil
}

func nfoFor(showName string, ep *episodes.Episode, raw episodes.RawEpisode, number int, title string) nfoEpisode {
	doc := nfoEpisode{
		Title:     title,
		ShowTitle: showName,
		Season:    ep.Season,
		Episode:   number,
		Plot:      raw.Overview,
		Directors: raw.Directors,
		Credits:   raw.Writers,
	}
	if doc.Plot == "" {
		doc.Plot = ep.Overview
	}
	if t, ok := raw.AirDate(); ok {
		doc.Aired = t.Format(episodes.AirDateLayout)
	}
	if raw.ID != 0 {
		doc.UniqueID = []nfoUniqueID{{Type: "catalogue", Default: true, Value: strconv.Itoa(raw.ID)}}
	}
	for _, guest := range raw.GuestStars {
		doc.Actors = append(doc.Actors, nfoActor{Name: guest})
	}
	return doc
}
