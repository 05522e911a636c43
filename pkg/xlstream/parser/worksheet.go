package parser

import (
	"encoding/xml"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ukaji3/xlstream/pkg/xlstream/models"
)

// RowStream drives the pull tokenizer over one worksheet entry and yields
// typed rows on demand. It advances the decoder only as far as the next
// requested row, so a caller that stops early never pays for the rest of
// the entry.
//
// Usage follows the iterator convention:
//
//	for rows.Next() {
//	    row := rows.Row()
//	    ...
//	}
//	if err := rows.Err(); err != nil { ... }
//
// Rows arrive in document order with cells ascending by column; both orders
// are structural, derived from the source entry, never buffered or sorted.
// A producer that violates the format's ordering guarantees gets undefined
// results.
type RowStream struct {
	tok     *Tokenizer
	entry   io.ReadCloser
	strings *SharedStrings
	formats *NumberFormats
	system  DateSystem

	row     models.Row
	lastRow int
	err     error
	done    bool
}

// NewRowStream wraps a worksheet entry stream. The shared string and number
// format tables are borrowed from the workbook and must be fully built.
func NewRowStream(entry io.ReadCloser, sst *SharedStrings, formats *NumberFormats, system DateSystem) *RowStream {
	return &RowStream{
		tok:     NewTokenizer(entry),
		entry:   entry,
		strings: sst,
		formats: formats,
		system:  system,
	}
}

// Next advances to the next row. It returns false at end of sheet data or
// on a fatal decode error; check Err afterwards.
func (s *RowStream) Next() bool {
	if s.done {
		return false
	}
	for {
		t, err := s.tok.Next()
		if err == io.EOF {
			s.finish()
			return false
		}
		if err != nil {
			s.fail(err)
			return false
		}
		switch tk := t.(type) {
		case xml.StartElement:
			if tk.Name.Local == "row" {
				row, err := s.readRow(tk)
				if err != nil {
					s.fail(err)
					return false
				}
				s.row = row
				return true
			}
		case xml.EndElement:
			if tk.Name.Local == "sheetData" {
				s.finish()
				return false
			}
		}
	}
}

// Row returns the row decoded by the last successful Next.
func (s *RowStream) Row() models.Row {
	return s.row
}

// Err returns the fatal error that stopped the stream, if any. Recoverable
// cell-level problems never appear here; they surface as Error cells.
func (s *RowStream) Err() error {
	return s.err
}

// Close releases the underlying entry stream without draining it. Closing
// mid-stream is the cheap cancellation path for large sheets.
func (s *RowStream) Close() error {
	if s.done {
		return nil
	}
	s.finish()
	return nil
}

// Take collects at most n rows and closes the stream. It never pulls a
// token past the nth row end.
func (s *RowStream) Take(n int) ([]models.Row, error) {
	var rows []models.Row
	for len(rows) < n && s.Next() {
		rows = append(rows, s.Row())
	}
	s.Close()
	return rows, s.Err()
}

func (s *RowStream) finish() {
	s.done = true
	if s.entry != nil {
		s.entry.Close()
		s.entry = nil
	}
}

func (s *RowStream) fail(err error) {
	s.err = err
	s.finish()
}

// readRow consumes one <row> subtree and assembles the gap-filled cell
// slice. The tokenizer is left just past the row end tag, with no
// look-ahead into the next row.
func (s *RowStream) readRow(se xml.StartElement) (models.Row, error) {
	num := s.lastRow + 1
	if r, ok := Attr(se, "r"); ok {
		if n, err := strconv.Atoi(r); err == nil && n > 0 {
			num = n
		}
	}
	s.lastRow = num

	var cells []models.Cell
	nextCol := 1
	for {
		t, err := s.tok.Next()
		if err == io.EOF {
			// Row never closed; surface what we have as a decode error.
			return models.Row{}, &ParseError{Offset: s.tok.Offset(), Err: io.ErrUnexpectedEOF}
		}
		if err != nil {
			return models.Row{}, err
		}
		switch tk := t.(type) {
		case xml.StartElement:
			if tk.Name.Local != "c" {
				slog.Debug("skipping unrecognized row element",
					"element", tk.Name.Local, "row", num, "offset", s.tok.Offset())
				if err := s.tok.Skip(); err != nil {
					return models.Row{}, err
				}
				continue
			}
			col, value, err := s.readCell(tk, nextCol)
			if err != nil {
				return models.Row{}, err
			}
			if col < nextCol {
				// Ordering violation; keep positions monotonic.
				col = nextCol
			}
			for ; nextCol < col; nextCol++ {
				cells = append(cells, models.Cell{Column: nextCol, Value: models.EmptyValue()})
			}
			cells = append(cells, models.Cell{Column: col, Value: value})
			nextCol = col + 1
		case xml.EndElement:
			if tk.Name.Local == "row" {
				return models.Row{Num: num, Cells: cells}, nil
			}
		}
	}
}

// readCell consumes one <c> subtree and resolves its value. Cell-level
// irregularities downgrade the cell; only malformed XML is returned as an
// error.
func (s *RowStream) readCell(se xml.StartElement, fallbackCol int) (int, models.Value, error) {
	col := fallbackCol
	if ref, ok := Attr(se, "r"); ok {
		letters, _ := SplitRef(ref)
		if n, ok := ColumnNumber(letters); ok {
			col = n
		} else {
			slog.Debug("cell with undecodable reference", "ref", ref)
		}
	}
	cellType, _ := Attr(se, "t")
	styleIndex := -1
	if sAttr, ok := Attr(se, "s"); ok {
		if n, err := strconv.Atoi(sAttr); err == nil {
			styleIndex = n
		}
	}

	var valText, inlineText string
	var hasVal, hasInline bool
	for {
		t, err := s.tok.Next()
		if err == io.EOF {
			return 0, models.Value{}, &ParseError{Offset: s.tok.Offset(), Err: io.ErrUnexpectedEOF}
		}
		if err != nil {
			return 0, models.Value{}, err
		}
		switch tk := t.(type) {
		case xml.StartElement:
			switch tk.Name.Local {
			case "v":
				text, err := s.tok.CollectText()
				if err != nil {
					return 0, models.Value{}, err
				}
				valText, hasVal = text, true
			case "is":
				text, err := s.tok.CollectText("rPh")
				if err != nil {
					return 0, models.Value{}, err
				}
				inlineText, hasInline = text, true
			case "f":
				// Formula text; only the cached <v> result is used.
				if err := s.tok.Skip(); err != nil {
					return 0, models.Value{}, err
				}
			default:
				slog.Debug("skipping unrecognized cell element", "element", tk.Name.Local)
				if err := s.tok.Skip(); err != nil {
					return 0, models.Value{}, err
				}
			}
		case xml.EndElement:
			if tk.Name.Local == "c" {
				value := s.resolveValue(cellType, styleIndex, valText, hasVal, inlineText, hasInline)
				return col, value, nil
			}
		}
	}
}

// resolveValue maps the cell's type attribute and payload to a Value: one
// flat switch on kind, resolved once per cell.
func (s *RowStream) resolveValue(cellType string, styleIndex int, valText string, hasVal bool, inlineText string, hasInline bool) models.Value {
	switch cellType {
	case "s": // shared string reference
		if !hasVal {
			slog.Debug("shared string cell without value element")
			return models.ErrorValue(models.ErrCode)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(valText))
		if err != nil {
			slog.Debug("unparsable shared string index", "value", valText)
			return models.ErrorValue(models.ErrCode)
		}
		text, err := s.strings.Get(idx)
		if err != nil {
			slog.Debug("shared string lookup failed", "error", err)
			return models.ErrorValue(models.ErrCode)
		}
		return models.TextValue(text)
	case "inlineStr":
		if !hasInline {
			slog.Debug("inline string cell without is element")
			return models.ErrorValue(models.ErrCode)
		}
		return models.TextValue(inlineText)
	case "str": // formula-cached string
		return models.TextValue(valText)
	case "b":
		if !hasVal {
			return models.ErrorValue(models.ErrCode)
		}
		return models.BoolValue(strings.TrimSpace(valText) == "1")
	case "e":
		if strings.TrimSpace(valText) == "" {
			return models.ErrorValue(models.ErrCode)
		}
		return models.ErrorValue(strings.TrimSpace(valText))
	default: // numeric
		if !hasVal || strings.TrimSpace(valText) == "" {
			return models.EmptyValue()
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(valText), 64)
		if err != nil {
			slog.Debug("unparsable numeric literal", "value", valText)
			return models.ErrorValue(models.ErrCode)
		}
		if s.formats.Classify(styleIndex) == KindDateTime {
			if t, ok := SerialToTime(f, s.system); ok {
				return models.DateTimeValue(t, f)
			}
			// Out-of-range serial: keep the number rather than
			// failing the row.
			return models.NumberValue(f)
		}
		return models.NumberValue(f)
	}
}
