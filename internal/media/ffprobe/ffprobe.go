package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"showkeeper/internal/services"
)

// Result holds the duration fields of an ffprobe report. Only durations
// are requested; everything else ffprobe can say about a file is ignored.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one entry of the report's streams array.
type Stream struct {
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
}

// Format is the container section of the report.
type Format struct {
	Duration string `json:"duration"`
}

// showEntries limits the report to what PlayLength reads.
const showEntries = "format=duration:stream=codec_type,duration"

// Inspect runs binary (ffprobe when empty) against path and decodes its
// report. Failures carry ffprobe's stderr.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-show_entries", showEntries, "-of", "json", "--", path)
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "inspect "+path, strings.TrimSpace(stderr.String()), err)
	}
	return Parse(output)
}

// Parse decodes ffprobe JSON output.
func Parse(output []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// PlayLength is the container duration, or the longest video stream when
// the container reports none. Unparseable values count as zero.
func (r Result) PlayLength() time.Duration {
	seconds := secondsOf(r.Format.Duration)
	if seconds == 0 {
		for _, stream := range r.Streams {
			if strings.EqualFold(stream.CodecType, "video") {
				seconds = max(seconds, secondsOf(stream.Duration))
			}
		}
	}
	return time.Duration(seconds * float64(time.Second))
}

func secondsOf(value string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
