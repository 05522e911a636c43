package parser

import (
	"encoding/xml"
	"fmt"
	"io"
)

// SharedStrings is the workbook-wide string pool referenced by integer index
// from cells. It is built eagerly before any row stream exists and never
// mutated afterward, so row streams share it by reference.
type SharedStrings struct {
	items []string
}

// ErrStringIndex indicates a cell referenced a shared-string index beyond
// the table. Callers treat it as recoverable: the cell is downgraded, the
// stream continues.
type ErrStringIndex struct {
	Index int
	Len   int
}

func (e *ErrStringIndex) Error() string {
	return fmt.Sprintf("shared string index %d out of range (table has %d)", e.Index, e.Len)
}

// NewSharedStrings drains a sharedStrings entry into an ordered table. Each
// <si> item may hold a single <t> or multiple rich-text runs (<r><t>); runs
// are concatenated into one string. Phonetic runs (<rPh>) carry furigana,
// not cell content, and are dropped.
func NewSharedStrings(r io.Reader) (*SharedStrings, error) {
	tok := NewTokenizer(r)
	var items []string
	for {
		t, err := tok.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := t.(xml.StartElement)
		if !ok || se.Name.Local != "si" {
			continue
		}
		text, err := tok.CollectText("rPh")
		if err != nil {
			return nil, err
		}
		items = append(items, text)
	}
	return &SharedStrings{items: items}, nil
}

// EmptySharedStrings returns the table used when the container has no
// sharedStrings entry. Absence is normal, not an error.
func EmptySharedStrings() *SharedStrings {
	return &SharedStrings{}
}

// Get returns the string at index i or *ErrStringIndex when i is out of
// range.
func (s *SharedStrings) Get(i int) (string, error) {
	if i < 0 || i >= len(s.items) {
		return "", &ErrStringIndex{Index: i, Len: len(s.items)}
	}
	return s.items[i], nil
}

// Len returns the number of distinct strings in the table.
func (s *SharedStrings) Len() int {
	return len(s.items)
}
