// Package loader splits a SQL migration file into statements.
//
// Splitting is line based: a statement ends on the line whose trimmed text
// ends with ';'. Blank lines and lines starting with "--" are dropped
// wherever they appear. A ';' at the end of a line inside a string literal
// therefore splits the statement, and several statements on one line stay
// together.
package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const commentPrefix = "--"

// ErrInvalidEncoding is returned when the file is not valid UTF-8.
var ErrInvalidEncoding = errors.New("migration file is not valid UTF-8")

// Parse returns the statements of text in file order.
//
// A terminated statement loses its final character, which is the ';' unless
// the terminating line has trailing whitespace after it. A trailing statement
// without terminator is returned unchanged.
func Parse(text string) []string {
	var (
		statements []string
		current    []string
	)
	for _, line := range splitLines(text) {
		stripped := strings.TrimSpace(line)
		if stripped == "" || strings.HasPrefix(stripped, commentPrefix) {
			continue
		}
		current = append(current, line)
		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, dropLastRune(strings.Join(current, "\n")))
			current = current[:0]
		}
	}
	if len(current) > 0 {
		statements = append(statements, strings.Join(current, "\n"))
	}
	return statements
}

// splitLines splits on every line boundary: \n, \r\n, lone \r, \v, \f,
// the file/group/record separators \x1c-\x1e, NEL (U+0085) and the Unicode
// line and paragraph separators. Terminators are not kept and a final
// terminator does not produce an empty line.
func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isLineBreak(r) {
			i += size
			continue
		}
		lines = append(lines, text[start:i])
		i += size
		if r == '\r' && i < len(text) && text[i] == '\n' {
			i++
		}
		start = i
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

func dropLastRune(s string) string {
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

// Read parses everything readable from r.
func Read(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read migration: %w", err)
	}
	return decode(data)
}

// Load reads and parses the migration file at path.
func Load(path string) ([]string, error) {
	clean := filepath.Clean(path)
	info, err := os.Stat(clean)
	if err != nil {
		return nil, fmt.Errorf("read migration file %s: %w", clean, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("read migration file %s: not a regular file", clean)
	}
	// #nosec G304 -- the migration path is chosen by the operator
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("read migration file %s: %w", clean, err)
	}
	stmts, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("read migration file %s: %w", clean, err)
	}
	return stmts, nil
}

// LoadFS is Load against fsys, for migrations embedded in a binary.
func LoadFS(fsys fs.FS, name string) ([]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read migration file %s: %w", name, err)
	}
	stmts, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("read migration file %s: %w", name, err)
	}
	return stmts, nil
}

func decode(data []byte) ([]string, error) {
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}
	return Parse(string(data)), nil
}
