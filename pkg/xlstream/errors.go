package xlstream

import (
	"errors"
	"fmt"

	"github.com/ukaji3/xlstream/pkg/xlstream/archive"
)

// ErrFileNotFound indicates the workbook path does not exist.
var ErrFileNotFound = archive.ErrFileNotFound

// ErrNotAnArchive indicates the file is not a zip container.
var ErrNotAnArchive = archive.ErrNotAnArchive

// ErrInvalidWorkbook indicates the container is a zip but lacks the parts a
// workbook needs: the manifest, the relationships entry, or any worksheet.
var ErrInvalidWorkbook = errors.New("invalid workbook")

// ErrUnknownSheet indicates a sheet handle or name the workbook does not
// recognize.
var ErrUnknownSheet = errors.New("unknown sheet")

// WorkbookError wraps a failure while building a workbook-level part during
// open. Eager table construction treats its own malformed XML as fatal,
// since correct tables are a precondition for all later cell resolution.
type WorkbookError struct {
	Path string
	Part string // "relationships", "manifest", "shared strings", "styles"
	Err  error
}

func (e *WorkbookError) Error() string {
	return fmt.Sprintf("workbook %q: reading %s: %v", e.Path, e.Part, e.Err)
}

func (e *WorkbookError) Unwrap() error {
	return e.Err
}
