package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	pollInterval  = 250 * time.Millisecond
	maxLineLength = 1024 * 1024
)

// TailOptions selects which lines Tail returns.
//
// A negative Offset means "the last Limit lines"; any other offset resumes
// from that byte position. Match, when set, keeps only lines containing it.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
	Match  string
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from the log at path. A missing file is not an error; it
// yields no lines and offset zero.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}
	opts.Wait = max(opts.Wait, 0)

	if opts.Offset < 0 {
		lines, offset, err := lastLines(path, opts.Limit, opts.Match)
		if err != nil {
			return result, err
		}
		result = TailResult{Lines: lines, Offset: offset}
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// Truncated or rotated underneath us; start over from the end.
			offset = info.Size()
		}
		lines, next, err := linesFrom(path, offset, opts.Match)
		if err != nil {
			return result, err
		}
		result = TailResult{Lines: lines, Offset: next}
	}

	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return waitForLines(ctx, path, result.Offset, opts.Wait, opts.Match)
	}
	return result, nil
}

func matches(line, match string) bool {
	return match == "" || strings.Contains(line, match)
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	return scanner
}

// lastLines keeps a ring of the newest limit matching lines.
func lastLines(path string, limit int, match string) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, 0, limit)
	next := 0
	scanner := newScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !matches(line, match) {
			continue
		}
		if len(ring) < limit {
			ring = append(ring, line)
			continue
		}
		ring[next] = line
		next = (next + 1) % limit
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, 0, len(ring))
	lines = append(lines, ring[next:]...)
	lines = append(lines, ring[:next]...)
	return lines, end, nil
}

// linesFrom reads every complete line after offset. A trailing partial line
// is left for the next call.
func linesFrom(path string, offset int64, match string) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	pos := offset
	for {
		raw, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		pos += int64(len(raw))
		line := strings.TrimRight(raw, "\r\n")
		if matches(line, match) {
			lines = append(lines, line)
		}
	}
	return lines, pos, nil
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration, match string) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		lines, next, err := linesFrom(path, result.Offset, match)
		if err != nil {
			return result, err
		}
		result.Offset = next
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}
		if time.Now().After(deadline) {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
