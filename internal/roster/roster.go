// Package roster loads the migration roster: the CSV mapping of user
// identities to the home directories to migrate.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	errs "github.com/Flowman/homeport/internal/errors"
	"github.com/Flowman/homeport/internal/fsys"
)

// Assignment maps one identity to the source directory to migrate and
// the folder its files land under inside the user's site.
type Assignment struct {
	// Identity is the user's login or principal name.
	Identity string

	// SourceDir is the local directory holding the user's files.
	SourceDir string

	// Folder is the destination folder inside the user's site. Defaults
	// to the source directory's base name when the roster leaves it
	// blank.
	Folder string
}

// Load reads a roster CSV. The expected header is
// `identity,source,folder`; the folder column is optional. Blank lines
// are skipped. A malformed row fails the load, reported with its line
// number, so a typo never silently drops a user from the batch.
func Load(fs fsys.Filesystem, path string) ([]Assignment, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errs.NewPathError("roster.load", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, malformed(path, 1, "roster is empty")
	}
	if err != nil {
		return nil, errs.NewPathError("roster.load", path,
			fmt.Errorf("%w: %v", errs.ErrRosterMalformed, err))
	}
	if !validHeader(header) {
		return nil, malformed(path, 1, "header must be identity,source,folder (got %q)", strings.Join(header, ","))
	}

	var assignments []Assignment
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.NewPathError("roster.load", path,
				fmt.Errorf("%w: %v", errs.ErrRosterMalformed, err))
		}

		line, _ := r.FieldPos(0)

		a, err := parseRow(path, line, record)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, nil
}

func parseRow(path string, line int, record []string) (Assignment, error) {
	if len(record) < 2 || len(record) > 3 {
		return Assignment{}, malformed(path, line, "expected 2 or 3 fields, got %d", len(record))
	}

	identity := strings.TrimSpace(record[0])
	source := strings.TrimSpace(record[1])
	folder := ""
	if len(record) == 3 {
		folder = strings.TrimSpace(record[2])
	}

	if identity == "" {
		return Assignment{}, malformed(path, line, "identity is empty")
	}
	if source == "" {
		return Assignment{}, malformed(path, line, "source is empty")
	}
	if folder == "" {
		folder = filepath.Base(source)
	}

	return Assignment{Identity: identity, SourceDir: source, Folder: folder}, nil
}

func validHeader(header []string) bool {
	if len(header) < 2 || len(header) > 3 {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(header[0]), "identity") {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(header[1]), "source") {
		return false
	}
	if len(header) == 3 && !strings.EqualFold(strings.TrimSpace(header[2]), "folder") {
		return false
	}
	return true
}

func malformed(path string, line int, format string, args ...any) error {
	return errs.NewPathError("roster.load", path, errs.ErrRosterMalformed).
		WithMessage(fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)))
}
