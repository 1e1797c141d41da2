package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
)

// Progress receives the number of bytes copied so far and the source size.
type Progress func(written, total int64)

// CopyFile streams src to dst, creating dst's directory and carrying over the
// source permissions and modification time.
func CopyFile(src, dst string, progress Progress) error {
	_, err := copyFile(src, dst, progress, nil)
	return err
}

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// Removes dst on mismatch.
func CopyFileVerified(src, dst string, progress Progress) error {
	srcHasher := sha256.New()
	dstHasher := sha256.New()
	hashes := &copyHashes{src: srcHasher, dst: dstHasher}
	written, err := copyFile(src, dst, progress, hashes)
	if err != nil {
		return err
	}
	if written != hashes.size {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", hashes.size, written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

type copyHashes struct {
	src  hash.Hash
	dst  hash.Hash
	size int64
}

func copyFile(src, dst string, progress Progress, hashes *copyHashes) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create destination directory: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = out.Close()
	}()

	var reader io.Reader = in
	var writer io.Writer = out
	if hashes != nil {
		hashes.size = info.Size()
		reader = io.TeeReader(in, hashes.src)
		writer = io.MultiWriter(out, hashes.dst)
	}
	if progress != nil {
		writer = &progressWriter{w: writer, total: info.Size(), fn: progress}
	}

	written, err := io.Copy(writer, reader)
	if err != nil {
		return written, err
	}
	if err := out.Close(); err != nil {
		return written, err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return written, fmt.Errorf("preserve modification time: %w", err)
	}
	return written, nil
}

type progressWriter struct {
	w       io.Writer
	total   int64
	written int64
	fn      Progress
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.fn(p.written, p.total)
	return n, err
}
