package xlstream

// Sheet is a lightweight handle to one worksheet: its display name and the
// container entry that holds it. It carries no I/O resource; streaming
// starts only when the handle is passed to Workbook.Rows.
type Sheet struct {
	// Name is the sheet's display name from the workbook manifest.
	Name string

	// path is the worksheet entry within the container, resolved through
	// the relationships part.
	path string
}
