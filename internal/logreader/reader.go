package logreader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrLogTruncated reports that the saved cursor points past the end of the
// log file, which happens when the log was rotated or truncated. The caller
// decides whether to reset the cursor or halt and alert an operator.
var ErrLogTruncated = errors.New("log file shorter than saved offset")

// Line is one raw log line together with the byte offset it started at.
// The text excludes the trailing newline; the offset of the byte after the
// newline is Offset + len(Text) + 1.
type Line struct {
	Offset int64
	Text   string
}

// End returns the offset of the first byte after this line's newline.
func (l Line) End() int64 {
	return l.Offset + int64(len(l.Text)) + 1
}

// Reader performs bounded one-shot reads of complete lines from a growing
// log file. It never blocks waiting for new data.
type Reader struct {
	path string
}

// New creates a Reader for the log file at path.
func New(path string) *Reader {
	return &Reader{path: path}
}

// ReadFrom returns every complete line beginning at offset, and the offset
// of the first unconsumed byte. A trailing line without a newline is left
// for a later run, so the returned offset always sits on a line boundary.
//
// The caller guarantees offset was previously returned by ReadFrom (or is
// 0), so it is line-aligned. If the file is now shorter than offset,
// ReadFrom returns ErrLogTruncated wrapped with both sizes.
func (r *Reader) ReadFrom(offset int64) ([]Line, int64, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			if offset == 0 {
				// A log that does not exist yet simply has no data.
				return nil, 0, nil
			}
			// The file was consumed past offset 0 and is now gone:
			// rotation removed it.
			return nil, offset, fmt.Errorf("%w: offset=%d, file missing", ErrLogTruncated, offset)
		}
		return nil, offset, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log: %w", err)
	}
	if info.Size() < offset {
		return nil, offset, fmt.Errorf("%w: offset=%d size=%d", ErrLogTruncated, offset, info.Size())
	}
	if info.Size() == offset {
		return nil, offset, nil
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log to %d: %w", offset, err)
	}

	var (
		lines []Line
		pos   = offset
		br    = bufio.NewReader(f)
	)
	for {
		text, err := br.ReadString('\n')
		if err == nil {
			lines = append(lines, Line{Offset: pos, Text: strings.TrimSuffix(text, "\n")})
			pos += int64(len(text))
			continue
		}
		if errors.Is(err, io.EOF) {
			// Unterminated tail: the producer may still be writing it.
			return lines, pos, nil
		}
		return nil, offset, fmt.Errorf("read log: %w", err)
	}
}
