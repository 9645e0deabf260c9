package scan

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/Flowman/homeport/internal/errors"
	"github.com/Flowman/homeport/internal/fsys"
)

const reportPath = "/reports/scan.csv"

func newTestFS(t *testing.T, files []string, dirs ...string) *fsys.FS {
	t.Helper()
	fs := fsys.NewInMemoryFS()
	for _, d := range dirs {
		require.NoError(t, fs.MkdirAll(d, 0o755))
	}
	for _, p := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, fs.WriteFile(p, []byte("data"), 0o644))
	}
	return fs
}

func readReport(t *testing.T, fs fsys.Filesystem) [][]string {
	t.Helper()
	data, err := fs.ReadFile(reportPath)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func exists(t *testing.T, fs fsys.Filesystem, path string) bool {
	t.Helper()
	ok, err := fs.Exists(path)
	require.NoError(t, err)
	return ok
}

func TestScanner_CleanTree(t *testing.T) {
	fs := newTestFS(t, []string{
		"/home/alice/docs/report.pdf",
		"/home/alice/notes.txt",
	})

	res, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/alice",
		ReportPath: reportPath,
		AutoFix:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Scanned) // docs, docs/report.pdf, notes.txt
	assert.Equal(t, 0, res.Flagged)
	assert.Equal(t, 0, res.Renamed)
	assert.Equal(t, 0, res.Records)

	rows := readReport(t, fs)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"File/Folder Name", "New Name", "Comments"}, rows[0])
}

func TestScanner_IllegalCharacters_AutoFix(t *testing.T) {
	fs := newTestFS(t, []string{"/home/alice/report#card%2024.pdf"})

	res, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/alice",
		ReportPath: reportPath,
		AutoFix:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Flagged)
	assert.Equal(t, 1, res.Renamed)
	assert.Equal(t, 0, res.RenameFailures)

	assert.False(t, exists(t, fs, "/home/alice/report#card%2024.pdf"))
	assert.True(t, exists(t, fs, "/home/alice/report-card-2024.pdf"))

	rows := readReport(t, fs)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		"/home/alice/report#card%2024.pdf",
		"/home/alice/report-card-2024.pdf",
		"Illegal string '#' found; Illegal string '%' found",
	}, rows[1])
}

func TestScanner_AutoFixOff_ReportsOnly(t *testing.T) {
	fs := newTestFS(t, []string{"/home/alice/report#card.pdf"})

	res, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/alice",
		ReportPath: reportPath,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Flagged)
	assert.Equal(t, 0, res.Renamed)
	assert.True(t, exists(t, fs, "/home/alice/report#card.pdf"))

	rows := readReport(t, fs)
	require.Len(t, rows, 2)
}

func TestScanner_DryRun_NeverRenames(t *testing.T) {
	fs := newTestFS(t, []string{"/home/alice/report#card.pdf"})

	res, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/alice",
		ReportPath: reportPath,
		AutoFix:    true,
		DryRun:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Flagged)
	assert.Equal(t, 0, res.Renamed)
	assert.True(t, exists(t, fs, "/home/alice/report#card.pdf"))

	// The report is still written in full on a dry run.
	rows := readReport(t, fs)
	require.Len(t, rows, 2)
}

func TestScanner_ReservedName_NeverRenamed(t *testing.T) {
	fs := newTestFS(t, []string{"/home/alice/desktop.ini"})

	res, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/alice",
		ReportPath: reportPath,
		AutoFix:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Flagged)
	assert.Equal(t, 0, res.Renamed)
	assert.True(t, exists(t, fs, "/home/alice/desktop.ini"))

	rows := readReport(t, fs)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		"/home/alice/desktop.ini",
		"/home/alice/desktop.ini",
		"Name 'desktop.ini' is reserved",
	}, rows[1])
}

func TestScanner_NameTooLong_NeverRenamed(t *testing.T) {
	long := strings.Repeat("a", 401)
	fs := newTestFS(t, []string{"/home/alice/" + long})

	res, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/alice",
		ReportPath: reportPath,
		AutoFix:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Flagged)
	assert.Equal(t, 0, res.Renamed)
	assert.True(t, exists(t, fs, "/home/alice/"+long))

	rows := readReport(t, fs)
	require.Len(t, rows, 2)
	assert.Equal(t, "/home/alice/"+long, rows[1][0])
	assert.Equal(t, "/home/alice/"+long, rows[1][1])
	assert.Equal(t, "Name is 401 characters long and exceeds the limit of 400", rows[1][2])
}

func TestScanner_NestedRenames_DeepestFirst(t *testing.T) {
	fs := newTestFS(t, []string{"/home/alice/docs#old/notes%.txt"})

	res, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/alice",
		ReportPath: reportPath,
		AutoFix:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 2, res.Flagged)
	assert.Equal(t, 2, res.Renamed)
	assert.Equal(t, 0, res.RenameFailures)

	assert.True(t, exists(t, fs, "/home/alice/docs-old/notes-.txt"))
	assert.False(t, exists(t, fs, "/home/alice/docs#old"))

	// Report rows carry pre-rename paths, in traversal order.
	rows := readReport(t, fs)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"/home/alice/docs#old",
		"/home/alice/docs-old",
		"Illegal string '#' found",
	}, rows[1])
	assert.Equal(t, []string{
		"/home/alice/docs#old/notes%.txt",
		"/home/alice/docs#old/notes-.txt",
		"Illegal string '%' found",
	}, rows[2])
}

// faultyRenameFS fails renames of one specific path.
type faultyRenameFS struct {
	*fsys.FS
	failPath string
}

func (f *faultyRenameFS) Rename(oldpath, newpath string) error {
	if oldpath == f.failPath {
		return errors.New("device or resource busy")
	}
	return f.FS.Rename(oldpath, newpath)
}

func TestScanner_RenameFailure_NonFatal(t *testing.T) {
	inner := newTestFS(t, []string{
		"/home/bob/a#.txt",
		"/home/bob/b#.txt",
	})
	fs := &faultyRenameFS{FS: inner, failPath: "/home/bob/b#.txt"}

	res, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/bob",
		ReportPath: reportPath,
		AutoFix:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Flagged)
	assert.Equal(t, 1, res.Renamed)
	assert.Equal(t, 1, res.RenameFailures)

	assert.True(t, exists(t, fs, "/home/bob/a-.txt"))
	assert.True(t, exists(t, fs, "/home/bob/b#.txt")) // left unfixed

	rows := readReport(t, inner)
	require.Len(t, rows, 4) // two violation rows, one failure row
	last := rows[3]
	assert.Equal(t, "/home/bob/b#.txt", last[0])
	assert.Equal(t, "/home/bob/b-.txt", last[1])
	assert.True(t, strings.HasPrefix(last[2], "Rename failed: "), "comments = %q", last[2])
}

func TestScanner_Rename_ExistingTargetNotReplaced(t *testing.T) {
	fs := fsys.NewInMemoryFS()
	require.NoError(t, fs.MkdirAll("/home/alice", 0o755))
	require.NoError(t, fs.WriteFile("/home/alice/a#.txt", []byte("flagged"), 0o644))
	require.NoError(t, fs.WriteFile("/home/alice/a-.txt", []byte("clean"), 0o644))

	res, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/alice",
		ReportPath: reportPath,
		AutoFix:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 1, res.Flagged)
	assert.Equal(t, 0, res.Renamed)
	assert.Equal(t, 1, res.RenameFailures)

	// Neither file lost its content.
	clean, err := fs.ReadFile("/home/alice/a-.txt")
	require.NoError(t, err)
	assert.Equal(t, "clean", string(clean))
	flagged, err := fs.ReadFile("/home/alice/a#.txt")
	require.NoError(t, err)
	assert.Equal(t, "flagged", string(flagged))

	rows := readReport(t, fs)
	require.Len(t, rows, 3) // one violation row, one failure row
	last := rows[2]
	assert.Equal(t, "/home/alice/a#.txt", last[0])
	assert.Equal(t, "/home/alice/a-.txt", last[1])
	assert.True(t, strings.HasPrefix(last[2], "Rename failed: "), "comments = %q", last[2])
	assert.Contains(t, last[2], "already exists")
}

func TestScanner_Rename_CollidingProposals(t *testing.T) {
	fs := fsys.NewInMemoryFS()
	require.NoError(t, fs.MkdirAll("/home/bob", 0o755))
	require.NoError(t, fs.WriteFile("/home/bob/a#.txt", []byte("hash"), 0o644))
	require.NoError(t, fs.WriteFile("/home/bob/a%.txt", []byte("percent"), 0o644))

	res, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/bob",
		ReportPath: reportPath,
		AutoFix:    true,
	})
	require.NoError(t, err)

	// Both names propose a-.txt; only the first rename can have it.
	assert.Equal(t, 2, res.Flagged)
	assert.Equal(t, 1, res.Renamed)
	assert.Equal(t, 1, res.RenameFailures)

	// Both contents survive, one of them under the corrected name.
	var contents []string
	for _, p := range []string{"/home/bob/a-.txt", "/home/bob/a#.txt", "/home/bob/a%.txt"} {
		if exists(t, fs, p) {
			data, rerr := fs.ReadFile(p)
			require.NoError(t, rerr)
			contents = append(contents, string(data))
		}
	}
	assert.ElementsMatch(t, []string{"hash", "percent"}, contents)

	rows := readReport(t, fs)
	require.Len(t, rows, 4) // two violation rows, one failure row
	last := rows[3]
	assert.Equal(t, "/home/bob/a-.txt", last[1])
	assert.True(t, strings.HasPrefix(last[2], "Rename failed: "), "comments = %q", last[2])
	assert.Contains(t, last[2], "already exists")
}

// faultyWalkFS reports one directory as unreadable during Walk.
type faultyWalkFS struct {
	*fsys.FS
	failPath string
}

func (f *faultyWalkFS) Walk(root string, walkFn filepath.WalkFunc) error {
	return f.FS.Walk(root, func(path string, info os.FileInfo, err error) error {
		if path == f.failPath {
			if werr := walkFn(path, nil, errors.New("open "+path+": permission denied")); werr != nil {
				return werr
			}
			return filepath.SkipDir
		}
		return walkFn(path, info, err)
	})
}

func TestScanner_EnumerationError_SiblingsStillProcessed(t *testing.T) {
	inner := newTestFS(t, []string{
		"/home/alice/locked/secret.txt",
		"/home/alice/ok#.txt",
	})
	fs := &faultyWalkFS{FS: inner, failPath: "/home/alice/locked"}

	res, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/alice",
		ReportPath: reportPath,
		AutoFix:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.EnumerationErrors)
	assert.Equal(t, 1, res.Scanned) // ok#.txt; the unreadable subtree is skipped
	assert.Equal(t, 1, res.Flagged)
	assert.Equal(t, 1, res.Renamed)

	rows := readReport(t, inner)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"", "", "open /home/alice/locked: permission denied"}, rows[1])
	assert.Equal(t, "/home/alice/ok#.txt", rows[2][0])
}

func TestScanner_RootMissing(t *testing.T) {
	fs := fsys.NewInMemoryFS()

	_, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/ghost",
		ReportPath: reportPath,
	})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))

	// The report must not be created for an unusable root.
	ok, err := fs.Exists(reportPath)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScanner_RootNotDirectory(t *testing.T) {
	fs := newTestFS(t, []string{"/home/alice/file.txt"})

	_, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/alice/file.txt",
		ReportPath: reportPath,
	})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestScanner_ContextCanceled(t *testing.T) {
	fs := newTestFS(t, []string{"/home/alice/notes.txt"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fs, nil).Run(ctx, Config{
		Root:       "/home/alice",
		ReportPath: reportPath,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestScanner_ReportNotWritable(t *testing.T) {
	fs := newTestFS(t, []string{"/reports"}, "/home/alice")

	_, err := New(fs, nil).Run(context.Background(), Config{
		Root:       "/home/alice",
		ReportPath: "/reports/scan.csv", // parent is a file
	})
	require.Error(t, err)
	assert.True(t, errs.IsReportWrite(err))
}
