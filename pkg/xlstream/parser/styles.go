package parser

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

// NumberKind classifies what a numeric cell's style means for decoding.
type NumberKind int

const (
	// KindGeneral is the default classification: plain number, no
	// special handling.
	KindGeneral NumberKind = iota
	// KindInteger is a whole-number format.
	KindInteger
	// KindDecimal is a format with a decimal component.
	KindDecimal
	// KindDateTime is a date and/or time format; the raw value is a
	// serial number to be converted to a calendar value.
	KindDateTime
)

// builtinFormats is the implied format table of ISO/IEC 29500:2011 Part 1,
// section 18.8.30. Format ids below 164 never appear as <numFmt> records;
// their codes are defined by the standard.
var builtinFormats = map[int]string{
	0:  "General",
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	9:  "0%",
	10: "0.00%",
	11: "0.00E+00",
	12: "# ?/?",
	13: "# ??/??",
	14: "mm-dd-yy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm AM/PM",
	19: "h:mm:ss AM/PM",
	20: "h:mm",
	21: "h:mm:ss",
	22: "m/d/yy h:mm",
	37: "#,##0 ;(#,##0)",
	38: "#,##0 ;[Red](#,##0)",
	39: "#,##0.00;(#,##0.00)",
	40: "#,##0.00;[Red](#,##0.00)",
	45: "mm:ss",
	46: "[h]:mm:ss",
	47: "mmss.0",
	48: "##0.0E+0",
	49: "@",
}

// NumberFormats maps a cell's style index to a NumberKind. Like the shared
// string table it is built eagerly at open time and immutable afterward.
type NumberFormats struct {
	xfs []NumberKind
}

// NewNumberFormats drains a styles entry. Custom <numFmt> records
// (id -> format code) extend the builtin table; <xf> records inside
// <cellXfs> bind style indexes to format ids, in order.
func NewNumberFormats(r io.Reader) (*NumberFormats, error) {
	tok := NewTokenizer(r)
	codes := make(map[int]string, len(builtinFormats))
	for id, code := range builtinFormats {
		codes[id] = code
	}
	var xfs []NumberKind
	inCellXfs := false
	for {
		t, err := tok.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tk := t.(type) {
		case xml.StartElement:
			switch tk.Name.Local {
			case "numFmt":
				id, okID := Attr(tk, "numFmtId")
				code, okCode := Attr(tk, "formatCode")
				if okID && okCode {
					if n, err := strconv.Atoi(id); err == nil {
						codes[n] = code
					}
				}
			case "cellXfs":
				inCellXfs = true
			case "xf":
				if !inCellXfs {
					continue
				}
				kind := KindGeneral
				if id, ok := Attr(tk, "numFmtId"); ok {
					if n, err := strconv.Atoi(id); err == nil {
						kind = classifyFormatID(n, codes)
					}
				}
				xfs = append(xfs, kind)
			}
		case xml.EndElement:
			if tk.Name.Local == "cellXfs" {
				inCellXfs = false
			}
		}
	}
	return &NumberFormats{xfs: xfs}, nil
}

// EmptyNumberFormats returns the table used when the container has no styles
// entry: every style index classifies as General.
func EmptyNumberFormats() *NumberFormats {
	return &NumberFormats{}
}

// Classify returns the kind for a style index. Unknown or missing indexes
// classify as General; Classify never fails.
func (nf *NumberFormats) Classify(styleIndex int) NumberKind {
	if styleIndex < 0 || styleIndex >= len(nf.xfs) {
		return KindGeneral
	}
	return nf.xfs[styleIndex]
}

// classifyFormatID resolves a format id to a kind. The builtin date and
// time id ranges are pre-classified so they do not depend on a code string.
func classifyFormatID(id int, codes map[int]string) NumberKind {
	if isBuiltinDateID(id) {
		return KindDateTime
	}
	code, ok := codes[id]
	if !ok {
		return KindGeneral
	}
	return classifyFormatCode(code)
}

// isBuiltinDateID reports the well-known date/time id ranges of the builtin
// table, including the East Asian locale range.
func isBuiltinDateID(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// classifyFormatCode classifies a number format code. Bracket sections
// (colors, conditions), quoted literals and escaped characters are display
// text, not format codes, and are stripped before inspection.
func classifyFormatCode(code string) NumberKind {
	if code == "General" || code == "@" {
		return KindGeneral
	}
	stripped := stripLiterals(code)
	if strings.ContainsAny(stripped, "ymdhsYMDHS") {
		return KindDateTime
	}
	if strings.ContainsRune(stripped, '.') {
		return KindDecimal
	}
	if strings.ContainsAny(stripped, "0#?") {
		return KindInteger
	}
	return KindGeneral
}

func stripLiterals(code string) string {
	var sb strings.Builder
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '[':
			for i < len(code) && code[i] != ']' {
				i++
			}
		case '"':
			i++
			for i < len(code) && code[i] != '"' {
				i++
			}
		case '\\', '_', '*':
			i++ // the next character is literal filler
		default:
			sb.WriteByte(code[i])
		}
	}
	return sb.String()
}
