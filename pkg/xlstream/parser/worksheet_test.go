package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/ukaji3/xlstream/pkg/xlstream/models"
)

func testTables(t *testing.T) (*SharedStrings, *NumberFormats) {
	t.Helper()
	sst, err := NewSharedStrings(strings.NewReader(sharedStringsXML))
	if err != nil {
		t.Fatalf("building shared strings: %v", err)
	}
	nf, err := NewNumberFormats(strings.NewReader(stylesXML))
	if err != nil {
		t.Fatalf("building number formats: %v", err)
	}
	return sst, nf
}

func sheetStream(t *testing.T, sheetXML string) *RowStream {
	t.Helper()
	sst, nf := testTables(t)
	return NewRowStream(io.NopCloser(strings.NewReader(sheetXML)), sst, nf, Date1900)
}

func collectRows(t *testing.T, s *RowStream) []models.Row {
	t.Helper()
	var rows []models.Row
	for s.Next() {
		rows = append(rows, s.Row())
	}
	if err := s.Err(); err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	return rows
}

const basicSheetXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <dimension ref="A1:C2"/>
  <sheetData>
    <row r="1"><c r="A1"><v>1</v></c><c r="B1"><v>2</v></c><c r="C1"><v>3</v></c></row>
    <row r="2"><c r="A2"><v>4</v></c><c r="B2" t="s"><v>0</v></c><c r="C2"><v>6</v></c></row>
  </sheetData>
</worksheet>`

func TestRowStreamBasic(t *testing.T) {
	rows := collectRows(t, sheetStream(t, basicSheetXML))
	if len(rows) != 2 {
		t.Fatalf("got %d rows, expected 2", len(rows))
	}
	if rows[0].Num != 1 || rows[1].Num != 2 {
		t.Errorf("row numbers = %d, %d, expected 1, 2", rows[0].Num, rows[1].Num)
	}

	first := rows[0]
	if len(first.Cells) != 3 {
		t.Fatalf("row 1 has %d cells, expected 3", len(first.Cells))
	}
	for i, want := range []float64{1, 2, 3} {
		cell := first.Cells[i]
		if cell.Column != i+1 {
			t.Errorf("cell %d column = %d, expected %d", i, cell.Column, i+1)
		}
		if cell.Value.Kind != models.Number || cell.Value.Number != want {
			t.Errorf("cell %d = %+v, expected Number %v", i, cell.Value, want)
		}
	}

	// Row 2, column 2 resolves through the shared string table.
	second := rows[1].Cells[1]
	if second.Value.Kind != models.Text || second.Value.Text != "plain" {
		t.Errorf("row 2 col 2 = %+v, expected Text %q", second.Value, "plain")
	}
}

func TestRowStreamGapFill(t *testing.T) {
	sheet := `<worksheet><sheetData>
		<row r="1"><c r="A1"><v>1</v></c><c r="C1"><v>3</v></c></row>
		<row r="2"><c r="C2"><v>9</v></c></row>
	</sheetData></worksheet>`

	rows := collectRows(t, sheetStream(t, sheet))
	if len(rows) != 2 {
		t.Fatalf("got %d rows, expected 2", len(rows))
	}

	first := rows[0]
	if len(first.Cells) != 3 {
		t.Fatalf("row 1 has %d cells, expected 3 (gap at B)", len(first.Cells))
	}
	if first.Cells[1].Column != 2 || first.Cells[1].Value.Kind != models.Empty {
		t.Errorf("row 1 col 2 = %+v, expected Empty filler", first.Cells[1])
	}

	// A leading gap fills every skipped column.
	second := rows[1]
	if len(second.Cells) != 3 {
		t.Fatalf("row 2 has %d cells, expected 3", len(second.Cells))
	}
	for i := 0; i < 2; i++ {
		if second.Cells[i].Value.Kind != models.Empty {
			t.Errorf("row 2 col %d = %+v, expected Empty", i+1, second.Cells[i])
		}
	}
	if second.Cells[2].Value.Number != 9 {
		t.Errorf("row 2 col 3 = %+v, expected Number 9", second.Cells[2].Value)
	}
}

func TestRowStreamCellKinds(t *testing.T) {
	sheet := `<worksheet><sheetData><row r="1">
		<c r="A1" t="s"><v>1</v></c>
		<c r="B1" t="inlineStr"><is><t>inline</t></is></c>
		<c r="C1" t="b"><v>1</v></c>
		<c r="D1" t="b"><v>0</v></c>
		<c r="E1" t="e"><v>#DIV/0!</v></c>
		<c r="F1" t="str"><f>CONCAT("a","b")</f><v>ab</v></c>
		<c r="G1"><f>1+1</f><v>2</v></c>
		<c r="H1"/>
	</row></sheetData></worksheet>`

	rows := collectRows(t, sheetStream(t, sheet))
	if len(rows) != 1 {
		t.Fatalf("got %d rows, expected 1", len(rows))
	}
	cells := rows[0].Cells
	if len(cells) != 8 {
		t.Fatalf("got %d cells, expected 8", len(cells))
	}

	tests := []struct {
		col      int
		kind     models.Kind
		rendered string
	}{
		{1, models.Text, "rich text"},
		{2, models.Text, "inline"},
		{3, models.Boolean, "TRUE"},
		{4, models.Boolean, "FALSE"},
		{5, models.Error, "#DIV/0!"},
		{6, models.Text, "ab"}, // formula-cached string, formula ignored
		{7, models.Number, "2"},
		{8, models.Empty, ""},
	}

	for _, tt := range tests {
		cell := cells[tt.col-1]
		if cell.Value.Kind != tt.kind {
			t.Errorf("col %d kind = %v, expected %v", tt.col, cell.Value.Kind, tt.kind)
		}
		if got := cell.Value.String(); got != tt.rendered {
			t.Errorf("col %d renders %q, expected %q", tt.col, got, tt.rendered)
		}
	}
}

func TestRowStreamDateCells(t *testing.T) {
	// Style index 3 of the test styles maps to builtin format 14.
	sheet := `<worksheet><sheetData>
		<row r="1">
			<c r="A1" s="3"><v>43131</v></c>
			<c r="B1" s="3"><v>43131.5</v></c>
			<c r="C1" s="3"><v>0.5</v></c>
			<c r="D1" s="3"><v>60</v></c>
			<c r="E1" s="3"><v>-5</v></c>
			<c r="F1" s="0"><v>43131</v></c>
		</row>
	</sheetData></worksheet>`

	rows := collectRows(t, sheetStream(t, sheet))
	cells := rows[0].Cells

	tests := []struct {
		col      int
		kind     models.Kind
		rendered string
	}{
		{1, models.DateTime, "2018-01-31"},
		{2, models.DateTime, "2018-01-31 12:00:00"},
		{3, models.DateTime, "12:00:00"},
		{4, models.Number, "60"}, // the 1900 leap-bug serial stays numeric
		{5, models.Number, "-5"}, // negative serials stay numeric
		{6, models.Number, "43131"}, // General style: identical value
	}

	for _, tt := range tests {
		cell := cells[tt.col-1]
		if cell.Value.Kind != tt.kind {
			t.Errorf("col %d kind = %v, expected %v", tt.col, cell.Value.Kind, tt.kind)
		}
		if got := cell.Value.String(); got != tt.rendered {
			t.Errorf("col %d renders %q, expected %q", tt.col, got, tt.rendered)
		}
	}
}

func TestRowStreamRecoverableCells(t *testing.T) {
	sheet := `<worksheet><sheetData>
		<row r="1">
			<c r="A1" t="s"><v>99</v></c>
			<c r="B1" t="s"><v>junk</v></c>
			<c r="C1"><v>not-a-number</v></c>
			<c r="D1" t="s"/>
		</row>
		<row r="2"><c r="A2"><v>7</v></c></row>
	</sheetData></worksheet>`

	rows := collectRows(t, sheetStream(t, sheet))
	if len(rows) != 2 {
		t.Fatalf("got %d rows, expected 2: one bad cell must not abort the stream", len(rows))
	}

	for i, cell := range rows[0].Cells {
		if cell.Value.Kind != models.Error {
			t.Errorf("row 1 col %d = %+v, expected Error downgrade", i+1, cell.Value)
		}
		if got := cell.Value.String(); got != models.ErrCode {
			t.Errorf("row 1 col %d renders %q, expected %q", i+1, got, models.ErrCode)
		}
	}

	// The next row still decodes correctly.
	if v := rows[1].Cells[0].Value; v.Kind != models.Number || v.Number != 7 {
		t.Errorf("row 2 col 1 = %+v, expected Number 7", v)
	}
}

func TestRowStreamSequentialNumbering(t *testing.T) {
	sheet := `<worksheet><sheetData>
		<row><c><v>1</v></c><c><v>2</v></c></row>
		<row><c><v>3</v></c></row>
	</sheetData></worksheet>`

	rows := collectRows(t, sheetStream(t, sheet))
	if len(rows) != 2 {
		t.Fatalf("got %d rows, expected 2", len(rows))
	}
	if rows[0].Num != 1 || rows[1].Num != 2 {
		t.Errorf("row numbers = %d, %d, expected sequential 1, 2", rows[0].Num, rows[1].Num)
	}
	// Cells without references take the next column in order.
	if rows[0].Cells[0].Column != 1 || rows[0].Cells[1].Column != 2 {
		t.Errorf("columns = %d, %d, expected 1, 2",
			rows[0].Cells[0].Column, rows[0].Cells[1].Column)
	}
}

func TestRowStreamSkipsUnrecognizedElements(t *testing.T) {
	sheet := `<worksheet><sheetData>
		<row r="1"><extLst><ext>ignored</ext></extLst><c r="A1"><v>5</v></c></row>
	</sheetData></worksheet>`

	rows := collectRows(t, sheetStream(t, sheet))
	if len(rows) != 1 || len(rows[0].Cells) != 1 {
		t.Fatalf("rows = %+v, expected a single one-cell row", rows)
	}
	if rows[0].Cells[0].Value.Number != 5 {
		t.Errorf("cell = %+v, expected Number 5", rows[0].Cells[0].Value)
	}
}

func TestRowStreamMalformed(t *testing.T) {
	s := sheetStream(t, `<worksheet><sheetData><row r="1"><c r="A1"><v>1</v></row>`)
	for s.Next() {
	}
	var parseErr *ParseError
	if !errors.As(s.Err(), &parseErr) {
		t.Fatalf("Err() = %v, expected *ParseError", s.Err())
	}
}

// countingReadCloser counts decompressed bytes handed to the decoder, which
// is how the tests observe that early termination does not drain the entry.
type countingReadCloser struct {
	r io.Reader
	n int64
}

func (c *countingReadCloser) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReadCloser) Close() error { return nil }

func TestRowStreamTakeDoesNotDrain(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<worksheet><sheetData>`)
	for i := 1; i <= 5000; i++ {
		fmt.Fprintf(&sb, `<row r="%d"><c r="A%d"><v>%d</v></c><c r="B%d"><v>%d</v></c></row>`, i, i, i, i, i*2)
	}
	sb.WriteString(`</sheetData></worksheet>`)
	sheet := sb.String()

	sst, nf := testTables(t)
	counter := &countingReadCloser{r: strings.NewReader(sheet)}
	s := NewRowStream(counter, sst, nf, Date1900)

	rows, err := s.Take(3)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Take(3) yielded %d rows", len(rows))
	}
	if rows[2].Cells[1].Value.Number != 6 {
		t.Errorf("row 3 col 2 = %+v, expected Number 6", rows[2].Cells[1].Value)
	}

	total := int64(len(sheet))
	if counter.n >= total/2 {
		t.Errorf("Take(3) consumed %d of %d bytes; early stop must not drain the entry", counter.n, total)
	}
}

func TestRowStreamTakePastEnd(t *testing.T) {
	rows, err := sheetStream(t, basicSheetXML).Take(10)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("Take(10) on a 2-row sheet yielded %d rows, expected 2", len(rows))
	}
}

func TestRowStreamCloseStopsIteration(t *testing.T) {
	s := sheetStream(t, basicSheetXML)
	if !s.Next() {
		t.Fatal("first Next() = false")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if s.Next() {
		t.Error("Next() after Close should return false")
	}
	if s.Err() != nil {
		t.Errorf("Err() after Close = %v, expected nil", s.Err())
	}
}
