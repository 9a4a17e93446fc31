// Package source owns raw translation-unit bytes and hands out immutable
// location records for every byte consumed, the way the teacher's lexer
// hands out a Line for every token but generalized to (file, line, column,
// length) as the data model requires.
package source

import (
	"os"

	"mcc/internal/arena"
)

// Location is a record of where a span of source text came from. Every token
// and every diagnostic carries one. Locations are allocated from a per-File
// arena; each NewLocation call allocates a fresh record, even for a span
// that an earlier record already covers.
type Location struct {
	File   string
	Line   int
	Column int
	Length int
}

// File owns one translation unit's raw bytes plus the arena its locations
// are carried in.
type File struct {
	Name string
	Text []byte

	locs *arena.Arena[Location]
}

// Read loads path into a new File.
func Read(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(path, b), nil
}

// New wraps already-available bytes (used for in-memory translation units,
// e.g. the expansion of a built-in header) as a File.
func New(name string, text []byte) *File {
	return &File{
		Name: name,
		Text: text,
		locs: arena.New[Location]("source-locations:" + name),
	}
}

// NewLocation allocates a Location in this file's arena and returns a
// pointer to it. Holding the pointer directly (rather than re-resolving a
// Ref each time) is safe even though the arena's backing slice may later
// grow and move: every later read or update of the record (such as the
// scanner filling in Length) goes through this pointer, never back through
// the arena.
func (f *File) NewLocation(line, column, length int) *Location {
	ref := f.locs.Alloc(Location{File: f.Name, Line: line, Column: column, Length: length})
	return f.locs.Get(ref)
}

// LocationArenaBytes reports how many bytes of this file's location arena
// have been committed, for diagnostic reporting (--print-ir prints this
// alongside the IR dump as a humanized byte count).
func (f *File) LocationArenaBytes() int { return f.locs.CommittedBytes() }

// Reader is a pull-driven byte cursor over a File, tracking (line, column)
// as phase 1 consumes bytes. It never interprets trigraphs or line-splicing
// itself — that's phases 1 and 2 layered on top — it only tracks position.
type Reader struct {
	file   *File
	offset int
	line   int
	column int
}

// NewReader creates a Reader positioned at the start of f.
func NewReader(f *File) *Reader {
	return &Reader{file: f, line: 1, column: 1}
}

// File returns the underlying File.
func (r *Reader) File() *File { return r.file }

// AtEnd reports whether every byte has been consumed.
func (r *Reader) AtEnd() bool { return r.offset >= len(r.file.Text) }

// Peek returns the next unconsumed byte without advancing, or 0 at end.
func (r *Reader) Peek() byte {
	if r.AtEnd() {
		return 0
	}
	return r.file.Text[r.offset]
}

// PeekAt returns the byte n positions ahead of the cursor, or 0 past the end.
func (r *Reader) PeekAt(n int) byte {
	idx := r.offset + n
	if idx >= len(r.file.Text) || idx < 0 {
		return 0
	}
	return r.file.Text[idx]
}

// Advance consumes and returns the next byte, updating line/column. Callers
// (phase 1) are responsible for treating \n, \r, \r\n, \n\r as one line
// advance each; Advance itself only tracks raw byte position, which phase 1
// folds into normalized line counting.
func (r *Reader) Advance() byte {
	c := r.file.Text[r.offset]
	r.offset++
	if c == '\n' {
		r.line++
		r.column = 1
	} else {
		r.column++
	}
	return c
}

// Mark returns the current (line, column) for use as the start of a new
// Location once its length is known.
func (r *Reader) Mark() (line, column int) { return r.line, r.column }

// Here allocates a zero-length Location at the current position; callers
// widen it once they know how many bytes the token spans.
func (r *Reader) Here() *Location {
	return r.file.NewLocation(r.line, r.column, 0)
}
