// Package scan walks a directory tree, flags entry names the
// destination would reject, writes the remediation report and, when
// asked to, renames correctable entries in place.
//
// Renames are deferred until the traversal finishes and applied
// deepest-first, so report rows always carry pre-rename paths and a
// renamed directory never invalidates a pending rename beneath it.
package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	errs "github.com/Flowman/homeport/internal/errors"
	"github.com/Flowman/homeport/internal/fsys"
	"github.com/Flowman/homeport/internal/namecheck"
	"github.com/Flowman/homeport/internal/remediation"
)

// Config controls a single scan run.
type Config struct {
	// Root is the directory to scan. It must already exist.
	Root string

	// ReportPath is where the remediation CSV is written. The file is
	// truncated at the start of the run.
	ReportPath string

	// AutoFix renames entries whose violations are all correctable.
	AutoFix bool

	// DryRun suppresses renames. The report is still written in full.
	DryRun bool
}

// Result summarizes a scan run.
type Result struct {
	// Scanned is the number of entries examined under the root.
	Scanned int

	// Flagged is the number of entries with at least one violation.
	Flagged int

	// Renamed is the number of entries renamed in place.
	Renamed int

	// RenameFailures is the number of renames attempted and failed.
	RenameFailures int

	// EnumerationErrors is the number of entries the walk could not read.
	EnumerationErrors int

	// Records is the number of report rows written.
	Records int
}

// Scanner checks every name under a root against the destination's
// naming rules.
type Scanner struct {
	fs  fsys.Filesystem
	log *zap.Logger
}

// New creates a Scanner on the given filesystem. A nil logger defaults
// to a no-op logger.
func New(fs fsys.Filesystem, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{fs: fs, log: log}
}

// pendingRename is a rename collected during traversal and applied
// after it, ordered deepest-first.
type pendingRename struct {
	oldPath string
	newPath string
	depth   int
}

// Run scans cfg.Root and writes the remediation report. Enumeration
// errors and rename failures are contained per entry; Run fails only
// on an unusable root, a report-write error or context cancellation.
func (s *Scanner) Run(ctx context.Context, cfg Config) (*Result, error) {
	root := filepath.Clean(cfg.Root)

	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, errs.NewPathError("scan", root, errs.ErrInvalidInput).
			WithMessage("root does not exist or is not accessible")
	}
	if !info.IsDir() {
		return nil, errs.NewPathError("scan", root, errs.ErrInvalidInput).
			WithMessage("root is not a directory")
	}

	report, err := remediation.NewWriter(s.fs, cfg.ReportPath)
	if err != nil {
		return nil, err
	}

	s.log.Info("scan started",
		zap.String("root", root),
		zap.String("report", cfg.ReportPath),
		zap.Bool("auto_fix", cfg.AutoFix),
		zap.Bool("dry_run", cfg.DryRun))

	res := &Result{}
	var pending []pendingRename

	err = s.fs.Walk(root, func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			res.EnumerationErrors++
			res.Records++
			s.log.Warn("enumeration error", zap.String("path", path), zap.Error(err))
			return report.Append(remediation.ErrorRecord(err.Error()))
		}

		// The root itself is not an entry under scan.
		if path == root {
			return nil
		}

		res.Scanned++

		name := info.Name()
		violations := namecheck.Evaluate(name)
		if len(violations) == 0 {
			return nil
		}

		res.Flagged++
		proposed := namecheck.Propose(name)
		newPath := filepath.Join(filepath.Dir(path), proposed)

		res.Records++
		if aerr := report.Append(remediation.Record{
			OriginalPath: path,
			ProposedPath: newPath,
			Comments:     namecheck.Details(violations),
		}); aerr != nil {
			return aerr
		}

		s.log.Debug("name violation",
			zap.String("path", path),
			zap.Strings("violations", namecheck.Details(violations)),
			zap.Bool("correctable", namecheck.Correctable(violations)))

		if !cfg.AutoFix || proposed == name || !namecheck.Correctable(violations) {
			return nil
		}
		if cfg.DryRun {
			s.log.Info("dry-run: would rename",
				zap.String("from", path),
				zap.String("to", newPath))
			return nil
		}

		pending = append(pending, pendingRename{
			oldPath: path,
			newPath: newPath,
			depth:   strings.Count(path, string(filepath.Separator)),
		})
		return nil
	})
	if err != nil {
		_ = report.Close()
		return nil, errs.NewPathError("scan.walk", root, err)
	}

	// Second pass: apply renames deepest-first.
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].depth != pending[j].depth {
			return pending[i].depth > pending[j].depth
		}
		return pending[i].oldPath > pending[j].oldPath
	})

	for _, r := range pending {
		select {
		case <-ctx.Done():
			_ = report.Close()
			return nil, errs.NewPathError("scan.rename", root, ctx.Err())
		default:
		}

		if err := s.rename(r.oldPath, r.newPath); err != nil {
			res.RenameFailures++
			res.Records++
			s.log.Warn("rename failed",
				zap.String("from", r.oldPath),
				zap.String("to", r.newPath),
				zap.Error(err))
			if aerr := report.Append(remediation.Record{
				OriginalPath: r.oldPath,
				ProposedPath: r.newPath,
				Comments:     []string{"Rename failed: " + err.Error()},
			}); aerr != nil {
				_ = report.Close()
				return nil, aerr
			}
			continue
		}

		res.Renamed++
		s.log.Info("renamed",
			zap.String("from", r.oldPath),
			zap.String("to", r.newPath))
	}

	if err := report.Close(); err != nil {
		return nil, err
	}

	s.log.Info("scan finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("flagged", res.Flagged),
		zap.Int("renamed", res.Renamed),
		zap.Int("rename_failures", res.RenameFailures),
		zap.Int("enumeration_errors", res.EnumerationErrors))

	return res, nil
}

// rename moves an entry to its corrected name, refusing to replace an
// existing target: the underlying filesystems overwrite the destination
// silently, and two flagged siblings can propose the same name.
func (s *Scanner) rename(oldPath, newPath string) error {
	taken, err := s.fs.Exists(newPath)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("target %q already exists", newPath)
	}
	return s.fs.Rename(oldPath, newPath)
}
