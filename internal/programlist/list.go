// Package programlist loads the text file that maps MIDI program numbers to
// media files.
//
//	# comment
//	base: 1
//	default: black.png
//	1: intro.mp4
//	2.5: verse.mp4     (bank 2, program 5)
package programlist

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const defaultKey = -1

// List is an immutable program number → media file mapping. Reloading
// produces a new List.
type List struct {
	path    string
	base    int
	entries map[int]string
}

// Load reads and parses a program list file.
func Load(path string) (*List, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l.path = path
	return l, nil
}

// Parse parses program list text.
func Parse(data []byte) (*List, error) {
	l := &List{
		base:    1,
		entries: make(map[int]string),
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if line == "" || line[0] == '#' {
			continue
		}
		if err := l.parseLine(line); err != nil {
			return nil, fmt.Errorf("%v at line %d", err, lineNo)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *List) parseLine(line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return errors.New("syntax error (missing colon)")
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch key {
	case "default":
		l.entries[defaultKey] = value
	case "base":
		n, err := strconv.Atoi(value)
		if err != nil || (n != 0 && n != 1) {
			return errors.New("base program number should be 0 or 1")
		}
		l.base = n
	default:
		n, err := ParseProgramNumber(key)
		if err != nil {
			return err
		}
		l.entries[n-l.base] = value
	}
	return nil
}

// ParseProgramNumber parses "5" or dotted "bank.program" forms; each part
// is a 7-bit digit of the result.
func ParseProgramNumber(s string) (int, error) {
	n := 0
	for _, part := range strings.Split(s, ".") {
		p, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, fmt.Errorf("invalid program number %q", s)
		}
		n = n*128 + p
	}
	return n, nil
}

// MediaFile returns the entry for a zero-based program number, falling back
// to the default entry.
func (l *List) MediaFile(program int) (string, bool) {
	if l == nil {
		return "", false
	}
	if f, ok := l.entries[program]; ok {
		return f, true
	}
	f, ok := l.entries[defaultKey]
	return f, ok
}

// Base returns the numbering origin used in the file (0 or 1).
func (l *List) Base() int { return l.base }

// Path returns the file the list was loaded from ("" when parsed from memory).
func (l *List) Path() string { return l.path }

// Len returns the number of explicit entries, including the default.
func (l *List) Len() int { return len(l.entries) }
