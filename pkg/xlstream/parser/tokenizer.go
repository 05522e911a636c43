// Package parser implements the streaming decode pipeline for SpreadsheetML
// parts: the pull tokenizer, the shared string and number format tables, and
// the worksheet row stream.
package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ParseError reports malformed XML in an entry, with the byte offset at
// which decoding failed. Malformed XML is fatal for the remainder of that
// entry; the caller decides whether to abort the open or just the stream.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed xml at byte %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Tokenizer wraps an xml.Decoder into the pull interface the row stream
// drives. It buffers no more than the current token, which is what bounds
// memory independent of entry size.
type Tokenizer struct {
	d *xml.Decoder
}

// NewTokenizer returns a tokenizer over one entry stream.
func NewTokenizer(r io.Reader) *Tokenizer {
	return &Tokenizer{d: xml.NewDecoder(r)}
}

// Next returns the next structural token, io.EOF at end of entry, or a
// *ParseError for malformed input.
func (t *Tokenizer) Next() (xml.Token, error) {
	tok, err := t.d.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &ParseError{Offset: t.d.InputOffset(), Err: err}
	}
	return tok, nil
}

// Offset reports the byte position after the most recent token.
func (t *Tokenizer) Offset() int64 {
	return t.d.InputOffset()
}

// Skip consumes tokens until the element that was just started ends.
func (t *Tokenizer) Skip() error {
	if err := t.d.Skip(); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return &ParseError{Offset: t.d.InputOffset(), Err: err}
	}
	return nil
}

// CollectText drains the element that was just started and returns the
// concatenation of all character data beneath it. Elements named in skip
// are dropped along with their subtrees.
func (t *Tokenizer) CollectText(skip ...string) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := t.Next()
		if err != nil {
			return "", err
		}
		switch tk := tok.(type) {
		case xml.StartElement:
			if contains(skip, tk.Name.Local) {
				if err := t.Skip(); err != nil {
					return "", err
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(tk)
		}
	}
	return sb.String(), nil
}

// Attr returns the value of the named attribute on a start element. The
// match is on the local name, which is how the corpus treats the r:id style
// namespaced attributes as well.
func Attr(se xml.StartElement, name string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
