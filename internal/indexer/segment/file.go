// Package segment stores the flat index files: newline-delimited records where
// line N holds the record for ID N. Files are always replaced atomically, so a
// concurrent reader sees either the old or the new file, never a torn one.
package segment

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/dchest/safefile"
)

const filePerm = 0o644

// Stamp identifies one version of a file on disk.
type Stamp struct {
	Size    int64
	ModTime time.Time
	Exists  bool
}

// Same reports whether both stamps describe the same file version.
func (s Stamp) Same(o Stamp) bool {
	return s.Exists == o.Exists && s.Size == o.Size && s.ModTime.Equal(o.ModTime)
}

// StatStamp returns the current Stamp of path. A missing file yields a zero
// Stamp and no error.
func StatStamp(path string) (Stamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Stamp{}, nil
		}
		return Stamp{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return Stamp{Size: info.Size(), ModTime: info.ModTime(), Exists: true}, nil
}

// LineFile is an index file held in memory.
type LineFile struct {
	path  string
	lines []string
	stamp Stamp
}

// Load reads path into memory. A missing file loads as empty.
func Load(path string) (*LineFile, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LineFile{path: path}, nil
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index file: %w", err)
	}
	data := make([]byte, 0, info.Size())
	buf := bytes.NewBuffer(data)
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("reading index file %s: %w", path, err)
	}
	return &LineFile{
		path:  path,
		lines: splitLines(buf.Bytes()),
		stamp: Stamp{Size: info.Size(), ModTime: info.ModTime(), Exists: true},
	}, nil
}

func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	data = bytes.TrimSuffix(data, []byte{'\n'})
	parts := bytes.Split(data, []byte{'\n'})
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = string(p)
	}
	return lines
}

// Path returns the file location.
func (f *LineFile) Path() string {
	return f.path
}

// Stamp returns the on-disk version this file was loaded from or last saved as.
func (f *LineFile) Stamp() Stamp {
	return f.stamp
}

// Len returns the number of records.
func (f *LineFile) Len() int {
	return len(f.lines)
}

// Line returns record n, or "" when n is out of range.
func (f *LineFile) Line(n int) string {
	if n < 0 || n >= len(f.lines) {
		return ""
	}
	return f.lines[n]
}

// Lines returns a copy of all records.
func (f *LineFile) Lines() []string {
	out := make([]string, len(f.lines))
	copy(out, f.lines)
	return out
}

// Set replaces record n, padding with empty records when n is past the end.
func (f *LineFile) Set(n int, line string) {
	for len(f.lines) <= n {
		f.lines = append(f.lines, "")
	}
	f.lines[n] = line
}

// Append adds a record and returns its ID.
func (f *LineFile) Append(line string) int {
	f.lines = append(f.lines, line)
	return len(f.lines) - 1
}

// Save atomically replaces the file on disk with the in-memory records.
func (f *LineFile) Save() error {
	out, err := safefile.Create(f.path, filePerm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", f.path, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	for _, line := range f.lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	if err := out.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", f.path, err)
	}
	stamp, err := StatStamp(f.path)
	if err != nil {
		return err
	}
	f.stamp = stamp
	return nil
}

// Remove deletes path, treating a missing file as success.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}
