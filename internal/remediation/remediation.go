// Package remediation writes the scan report: a CSV file with one row
// per non-conforming entry or enumeration failure, consumed by
// operators to chase down the names the scanner could not fix.
package remediation

import (
	"encoding/csv"
	"fmt"
	"strings"

	errs "github.com/Flowman/homeport/internal/errors"
	"github.com/Flowman/homeport/internal/fsys"
)

// Header is the fixed first row of every report file.
var Header = []string{"File/Folder Name", "New Name", "Comments"}

// Record is one report row. Comments are joined with "; " in the
// written CSV field.
type Record struct {
	// OriginalPath is the entry's path as found on disk.
	OriginalPath string

	// ProposedPath is the corrected path, or the original path when no
	// correction applies.
	ProposedPath string

	// Comments describe each violation or failure on the entry.
	Comments []string
}

// ErrorRecord builds a row for an enumeration failure: both name
// fields empty, the failure text in the comments column.
func ErrorRecord(comments ...string) Record {
	return Record{Comments: comments}
}

// Writer appends records to a report file. Rows are flushed as they
// are appended so an interrupted run still leaves every row written so
// far on disk.
type Writer struct {
	path string
	file fsys.File
	csv  *csv.Writer
}

// NewWriter truncates path (creating it if absent) and writes the
// header row.
func NewWriter(fs fsys.Filesystem, path string) (*Writer, error) {
	f, err := fs.Create(path)
	if err != nil {
		return nil, errs.NewPathError("report.create", path, wrap(err))
	}

	w := &Writer{path: path, file: f, csv: csv.NewWriter(f)}
	if err := w.append(Header); err != nil {
		_ = f.Close()
		return nil, errs.NewPathError("report.header", path, err)
	}
	return w, nil
}

// Path returns the report file's path.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one record as a CSV row and flushes it.
func (w *Writer) Append(r Record) error {
	row := []string{r.OriginalPath, r.ProposedPath, strings.Join(r.Comments, "; ")}
	if err := w.append(row); err != nil {
		return errs.NewPathError("report.append", w.path, err)
	}
	return nil
}

// Close flushes any buffered rows and closes the report file.
func (w *Writer) Close() error {
	w.csv.Flush()
	flushErr := w.csv.Error()
	closeErr := w.file.Close()

	if flushErr != nil {
		return errs.NewPathError("report.close", w.path, wrap(flushErr))
	}
	if closeErr != nil {
		return errs.NewPathError("report.close", w.path, wrap(closeErr))
	}
	return nil
}

func (w *Writer) append(row []string) error {
	if err := w.csv.Write(row); err != nil {
		return wrap(err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return wrap(err)
	}
	return nil
}

func wrap(err error) error {
	return fmt.Errorf("%w: %v", errs.ErrReportWrite, err)
}
