// Package xlstream reads zip-packaged spreadsheets with a streaming,
// single-pass decoder. Opening a workbook eagerly builds the shared string
// and number format tables (cost bounded by distinct strings and styles,
// not rows); row data is then pulled lazily one row at a time, which keeps
// memory bounded and first output near-immediate even for multi-gigabyte
// files.
package xlstream

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ukaji3/xlstream/pkg/xlstream/archive"
	"github.com/ukaji3/xlstream/pkg/xlstream/parser"
)

// Well-known part names of the container.
const (
	manifestEntry      = "xl/workbook.xml"
	relationshipsEntry = "xl/_rels/workbook.xml.rels"
	sharedStringsEntry = "xl/sharedStrings.xml"
	stylesEntry        = "xl/styles.xml"
)

// Workbook owns the container, the two eager tables and the sheet
// directory. The tables are immutable after Open and shared by reference
// with every row stream the workbook hands out.
type Workbook struct {
	path    string
	archive *archive.Archive
	strings *parser.SharedStrings
	formats *parser.NumberFormats
	system  parser.DateSystem
	sheets  []Sheet
}

// Open opens the workbook at path and builds everything row streaming
// depends on. It fails with ErrFileNotFound or ErrNotAnArchive for
// container-level problems and ErrInvalidWorkbook when the manifest, the
// relationships entry, or every worksheet is missing.
func Open(path string) (*Workbook, error) {
	arc, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	wb := &Workbook{path: path, archive: arc}

	rels, err := wb.readRelationships()
	if err != nil {
		arc.Close()
		return nil, err
	}
	if err := wb.readManifest(rels); err != nil {
		arc.Close()
		return nil, err
	}
	hasWorksheet := false
	for _, s := range wb.sheets {
		if arc.Has(s.path) {
			hasWorksheet = true
			break
		}
	}
	if !hasWorksheet {
		arc.Close()
		return nil, fmt.Errorf("%w: %s: no worksheet entries", ErrInvalidWorkbook, path)
	}
	if err := wb.buildTables(); err != nil {
		arc.Close()
		return nil, err
	}
	return wb, nil
}

// Sheets returns the sheet handles in manifest declaration order.
func (wb *Workbook) Sheets() []Sheet {
	out := make([]Sheet, len(wb.sheets))
	copy(out, wb.sheets)
	return out
}

// SheetByName returns the handle for a sheet name.
func (wb *Workbook) SheetByName(name string) (Sheet, bool) {
	for _, s := range wb.sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}

// Rows returns a lazy row stream for the sheet. The stream borrows the
// workbook's single archive cursor: starting a new stream invalidates any
// previous one, so at most one stream per workbook is live at a time.
func (wb *Workbook) Rows(sheet Sheet) (*parser.RowStream, error) {
	known := false
	for _, s := range wb.sheets {
		if s.Name == sheet.Name && s.path == sheet.path {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSheet, sheet.Name)
	}
	entry, err := wb.archive.Entry(sheet.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownSheet, sheet.Name, err)
	}
	return parser.NewRowStream(entry, wb.strings, wb.formats, wb.system), nil
}

// DateSystem reports the serial-date epoch the workbook declared.
func (wb *Workbook) DateSystem() parser.DateSystem {
	return wb.system
}

// Entries lists the container directory, for inspection tooling.
func (wb *Workbook) Entries() []archive.EntryInfo {
	return wb.archive.Entries()
}

// Close releases the container and any live row stream's entry cursor.
func (wb *Workbook) Close() error {
	return wb.archive.Close()
}

// readRelationships loads the id -> target mapping that locates sheet
// entries within the container.
func (wb *Workbook) readRelationships() (map[string]string, error) {
	entry, err := wb.archive.Entry(relationshipsEntry)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWorkbook, wb.path, err)
	}
	defer entry.Close()

	rels := make(map[string]string)
	tok := parser.NewTokenizer(entry)
	for {
		t, err := tok.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &WorkbookError{Path: wb.path, Part: "relationships", Err: err}
		}
		se, ok := t.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		id, okID := parser.Attr(se, "Id")
		target, okTarget := parser.Attr(se, "Target")
		if okID && okTarget {
			rels[id] = target
		}
	}
	return rels, nil
}

// readManifest walks the workbook manifest: <sheet> elements in declaration
// order become handles, and the date1904 workbook property selects the
// serial-date epoch.
func (wb *Workbook) readManifest(rels map[string]string) error {
	entry, err := wb.archive.Entry(manifestEntry)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidWorkbook, wb.path, err)
	}
	defer entry.Close()

	tok := parser.NewTokenizer(entry)
	for {
		t, err := tok.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &WorkbookError{Path: wb.path, Part: "manifest", Err: err}
		}
		se, ok := t.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "workbookPr":
			if v, ok := parser.Attr(se, "date1904"); ok && (v == "1" || strings.EqualFold(v, "true")) {
				wb.system = parser.Date1904
			}
		case "sheet":
			name, _ := parser.Attr(se, "name")
			id, _ := parser.Attr(se, "id") // r:id, matched by local name
			target, ok := rels[id]
			if !ok {
				slog.Debug("sheet without relationship target", "sheet", name, "id", id)
				continue
			}
			wb.sheets = append(wb.sheets, Sheet{Name: name, path: resolveTarget(target)})
		}
	}
	return nil
}

// resolveTarget turns a relationship target into a container entry path.
// Absolute targets are rooted at the container; relative ones live under
// xl/.
func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return target[1:]
	}
	return "xl/" + target
}

// buildTables eagerly constructs the shared string and number format
// tables. An absent entry yields an empty table; malformed XML in either is
// fatal-to-open.
func (wb *Workbook) buildTables() error {
	wb.strings = parser.EmptySharedStrings()
	if wb.archive.Has(sharedStringsEntry) {
		entry, err := wb.archive.Entry(sharedStringsEntry)
		if err != nil {
			return &WorkbookError{Path: wb.path, Part: "shared strings", Err: err}
		}
		sst, err := parser.NewSharedStrings(entry)
		entry.Close()
		if err != nil {
			return &WorkbookError{Path: wb.path, Part: "shared strings", Err: err}
		}
		wb.strings = sst
	}

	wb.formats = parser.EmptyNumberFormats()
	if wb.archive.Has(stylesEntry) {
		entry, err := wb.archive.Entry(stylesEntry)
		if err != nil {
			return &WorkbookError{Path: wb.path, Part: "styles", Err: err}
		}
		nf, err := parser.NewNumberFormats(entry)
		entry.Close()
		if err != nil {
			return &WorkbookError{Path: wb.path, Part: "styles", Err: err}
		}
		wb.formats = nf
	}
	return nil
}
