package ffprobe

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

type cacheKey struct {
	path    string
	size    int64
	modTime int64
}

// InspectFunc runs ffprobe. Tests substitute a fake.
type InspectFunc func(ctx context.Context, binary, path string) (Result, error)

// Prober returns cached play lengths.
type Prober struct {
	binary  string
	inspect InspectFunc

	mu    sync.Mutex
	cache map[cacheKey]time.Duration
}

// NewProber returns a prober using the given ffprobe binary.
func NewProber(binary string) *Prober {
	return NewProberWith(binary, Inspect)
}

// NewProberWith returns a prober that calls inspect instead of ffprobe.
func NewProberWith(binary string, inspect InspectFunc) *Prober {
	return &Prober{
		binary:  binary,
		inspect: inspect,
		cache:   make(map[cacheKey]time.Duration),
	}
}

// PlayLength returns the play length of the file at path.
func (p *Prober) PlayLength(ctx context.Context, path string) (time.Duration, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	key := cacheKey{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()}

	p.mu.Lock()
	length, ok := p.cache[key]
	p.mu.Unlock()
	if ok {
		return length, nil
	}

	result, err := p.inspect(ctx, p.binary, path)
	if err != nil {
		return 0, err
	}
	length = result.PlayLength()

	p.mu.Lock()
	p.cache[key] = length
	p.mu.Unlock()
	return length, nil
}
