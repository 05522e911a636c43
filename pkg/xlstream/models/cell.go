// Package models defines the row and cell values the streaming reader
// yields, together with their display rendering.
package models

import (
	"strconv"
	"strings"
	"time"
)

// Kind tags a cell Value. Cells resolve to exactly one kind; consumers
// switch on it rather than type-asserting.
type Kind int

const (
	// Empty is a blank cell, including gap-filled positions.
	Empty Kind = iota
	// Number is a plain numeric value.
	Number
	// Text is a string value (shared, inline or formula-cached).
	Text
	// Boolean is TRUE/FALSE.
	Boolean
	// DateTime is a serial number resolved to a calendar value.
	DateTime
	// Error is either a literal error cell (#DIV/0! etc.) or a cell
	// downgraded because its payload could not be resolved.
	Error
)

// Value is the tagged variant held by a cell. Only the field matching Kind
// is meaningful.
type Value struct {
	Kind Kind
	// Number holds the numeric payload for Kind Number.
	Number float64
	// Text holds the string payload for Kind Text, or the error code for
	// Kind Error.
	Text string
	// Bool holds the payload for Kind Boolean.
	Bool bool
	// Time holds the payload for Kind DateTime.
	Time time.Time
	// hasDate/hasTime record which calendar components the serial
	// carried, which drives rendering.
	hasDate bool
	hasTime bool
}

// ErrCode is the display token for cells downgraded by a recoverable decode
// problem (bad shared-string index, unparsable literal, missing attribute).
const ErrCode = "#ERR"

// EmptyValue returns the blank value.
func EmptyValue() Value { return Value{Kind: Empty} }

// NumberValue returns a plain numeric value.
func NumberValue(f float64) Value { return Value{Kind: Number, Number: f} }

// TextValue returns a string value.
func TextValue(s string) Value { return Value{Kind: Text, Text: s} }

// BoolValue returns a boolean value.
func BoolValue(b bool) Value { return Value{Kind: Boolean, Bool: b} }

// ErrorValue returns an error value carrying its display code.
func ErrorValue(code string) Value { return Value{Kind: Error, Text: code} }

// DateTimeValue returns a calendar value decoded from serial. Serials below
// 1 carry no date part; integral serials carry no time part.
func DateTimeValue(t time.Time, serial float64) Value {
	return Value{
		Kind:    DateTime,
		Time:    t,
		hasDate: serial >= 1,
		hasTime: serial != float64(int64(serial)),
	}
}

// String renders the value as display text: numbers without a trailing
// decimal point when integral, booleans as TRUE/FALSE, dates in calendar
// form, errors as their code, empty as blank.
func (v Value) String() string {
	switch v.Kind {
	case Number:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case Text:
		return v.Text
	case Boolean:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case DateTime:
		switch {
		case v.hasDate && v.hasTime:
			return v.Time.Format("2006-01-02 15:04:05")
		case v.hasTime:
			return v.Time.Format("15:04:05")
		default:
			return v.Time.Format("2006-01-02")
		}
	case Error:
		return v.Text
	default:
		return ""
	}
}

// IsNumeric reports whether the value renders as a bare number, which is
// what quote-as-needed output formats key off.
func (v Value) IsNumeric() bool {
	return v.Kind == Number
}

// Cell is one decoded cell: its 1-based column position and its value.
// Positions within a row are strictly increasing; skipped source columns
// appear as Empty cells.
type Cell struct {
	Column int
	Value  Value
}

// Row is an ordered slice of cells, aligned to the source column letters.
type Row struct {
	// Num is the 1-based row number from the source entry.
	Num int
	// Cells are in ascending column order, gap-filled.
	Cells []Cell
}

// String renders the row as a bracketed list, mainly for debugging.
func (r Row) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, c := range r.Cells {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Value.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
