package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineBytes = 1024 * 1024

// DefaultPoll is the Follow polling interval.
const DefaultPoll = 250 * time.Millisecond

// Last returns up to n trailing lines of path and the end offset. A missing
// file yields no lines and offset 0.
func Last(path string, n int) ([]string, int64, error) {
	file, size, err := open(path)
	if file == nil || err != nil {
		return nil, 0, err
	}
	defer file.Close()
	if n <= 0 {
		return nil, size, nil
	}

	ring := make([]string, n)
	count := 0
	next := 0
	offset, err := scan(file, func(line string) {
		ring[next] = line
		next = (next + 1) % n
		count++
	})
	if err != nil {
		return nil, 0, err
	}
	if count < n {
		return ring[:count], offset, nil
	}
	lines := make([]string, 0, n)
	lines = append(lines, ring[next:]...)
	lines = append(lines, ring[:next]...)
	return lines, offset, nil
}

// ReadFrom returns the complete lines written after offset and the new offset.
// When the file is now shorter than offset it is read from the beginning.
func ReadFrom(path string, offset int64) ([]string, int64, error) {
	file, size, err := open(path)
	if file == nil || err != nil {
		return nil, 0, err
	}
	defer file.Close()
	if offset < 0 || offset > size {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	read, err := scan(file, func(line string) { lines = append(lines, line) })
	if err != nil {
		return nil, offset, err
	}
	return lines, offset + read, nil
}

// Follow emits the last n lines of path, then every appended line, until ctx
// is cancelled. A cancelled context is not an error.
func Follow(ctx context.Context, path string, n int, poll time.Duration, emit func(string)) error {
	if poll <= 0 {
		poll = DefaultPoll
	}
	lines, offset, err := Last(path, n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		emit(line)
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		lines, offset, err = ReadFrom(path, offset)
		if err != nil {
			return err
		}
		for _, line := range lines {
			emit(line)
		}
	}
}

func open(path string) (*os.File, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	return file, info.Size(), nil
}

// scan reports complete lines only and returns the bytes they span, so a
// line still being written is picked up whole on the next read.
func scan(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			consumed += int64(len(line))
			if len(line) > maxLineBytes {
				line = line[:maxLineBytes]
			}
			fn(trimEOL(line))
			continue
		}
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		return consumed, fmt.Errorf("read log file: %w", err)
	}
}

func trimEOL(line string) string {
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
