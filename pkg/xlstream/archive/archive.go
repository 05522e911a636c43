// Package archive provides forward-only access to the entries of a zip
// container. It is the only component that touches the file handle; every
// other part of the reader consumes the entry streams it hands out.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrFileNotFound indicates the container path does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrNotAnArchive indicates the file exists but is not a zip container.
var ErrNotAnArchive = errors.New("not a zip container")

// ErrMissingEntry indicates a named entry is absent from the container.
var ErrMissingEntry = errors.New("missing entry")

// Archive owns a zip container and its entry directory. It exposes at most
// one live entry stream at a time: requesting a new entry invalidates the
// previous stream. This matches the single-pass reading model.
type Archive struct {
	rc      *zip.ReadCloser
	entries map[string]*zip.File
	active  *entryStream
}

// EntryInfo describes one entry in the container directory.
type EntryInfo struct {
	// Name is the entry path within the container.
	Name string
	// Size is the uncompressed size in bytes.
	Size uint64
}

// Open opens the container at path. It returns ErrFileNotFound if the path
// does not exist and ErrNotAnArchive if the file is not a valid zip.
func Open(path string) (*Archive, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAnArchive, path, err)
	}
	entries := make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		entries[f.Name] = f
	}
	return &Archive{rc: rc, entries: entries}, nil
}

// Has reports whether the container holds an entry with the given name.
func (a *Archive) Has(name string) bool {
	_, ok := a.entries[name]
	return ok
}

// Entry returns a forward-only decompressing stream for the named entry.
// Any previously returned stream is closed and invalidated.
func (a *Archive) Entry(name string) (io.ReadCloser, error) {
	f, ok := a.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingEntry, name)
	}
	a.invalidate()
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", name, err)
	}
	a.active = &entryStream{rc: r, owner: a}
	return a.active, nil
}

// Entries returns the container directory in stored order, directories
// excluded.
func (a *Archive) Entries() []EntryInfo {
	infos := make([]EntryInfo, 0, len(a.rc.File))
	for _, f := range a.rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		infos = append(infos, EntryInfo{Name: f.Name, Size: f.UncompressedSize64})
	}
	return infos
}

// Close releases the container and any live entry stream.
func (a *Archive) Close() error {
	a.invalidate()
	return a.rc.Close()
}

func (a *Archive) invalidate() {
	if a.active != nil {
		a.active.close()
		a.active = nil
	}
}

// entryStream is the single live cursor over one entry. Reads after the
// stream has been superseded or closed return an error rather than stale
// bytes.
type entryStream struct {
	rc     io.ReadCloser
	owner  *Archive
	closed bool
}

var errStreamInvalidated = errors.New("entry stream closed or superseded")

func (s *entryStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, errStreamInvalidated
	}
	return s.rc.Read(p)
}

func (s *entryStream) Close() error {
	if s.closed {
		return nil
	}
	s.close()
	if s.owner.active == s {
		s.owner.active = nil
	}
	return nil
}

func (s *entryStream) close() {
	s.closed = true
	s.rc.Close()
}
