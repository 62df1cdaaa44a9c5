package celerograph

import (
	"os"
)

// RecordScanner is a source of Records, such as a Reader or Files.
type RecordScanner interface {
	Scan() bool
	Record() *Record
	Err() error
}

// Files reads records from a sequence of files as one stream.
type Files struct {
	// Paths is the list of file names to read, in order.
	Paths []string

	next   int
	reader *Reader
	file   *os.File
	err    error
}

// Scan advances to the next record across all files.
func (f *Files) Scan() bool {
	if f.err != nil {
		return false
	}
	for {
		if f.file == nil {
			if f.next >= len(f.Paths) {
				return false
			}
			path := f.Paths[f.next]
			f.next++
			file, err := os.Open(path)
			if err != nil {
				f.err = err
				return false
			}
			f.file = file
			f.reader = NewReader(file, path)
		}

		if f.reader.Scan() {
			return true
		}
		f.err = f.reader.Err()
		f.file.Close()
		f.file = nil
		if f.err != nil {
			return false
		}
	}
}

// Record returns the record read by the last successful Scan.
func (f *Files) Record() *Record {
	return f.reader.Record()
}

// Err returns the error that stopped Scan, if any.
func (f *Files) Err() error {
	return f.err
}

// Close closes the file being read, if any. Scan closes each file on its
// own; Close is for callers that stop early.
func (f *Files) Close() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	f.next = len(f.Paths)
	return err
}
