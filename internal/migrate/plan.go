package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	errs "github.com/Flowman/homeport/internal/errors"
	"github.com/Flowman/homeport/internal/namecheck"
)

type planItem struct {
	path string // local path
	rel  string // slash-separated path relative to the source root
	size int64
}

type planSkip struct {
	path   string
	reason string
}

type uploadPlan struct {
	items []planItem
	skips []planSkip
	bytes int64
}

// planUploads walks root and decides, file by file, what gets uploaded.
// Directories are never uploaded. A file is skipped when its name (or
// any ancestor's) still violates destination rules after the sanitize
// pass, when it falls outside the modification window, or when the
// include/exclude patterns say so. Every skip is recorded with its
// reason.
func (m *Migrator) planUploads(ctx context.Context, root, reportPath string, opts Options) (*uploadPlan, error) {
	patterns := make([]string, 0, len(opts.Include)+len(opts.Exclude))
	patterns = append(patterns, opts.Include...)
	patterns = append(patterns, opts.Exclude...)
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errs.NewError("migrate.plan", errs.ErrInvalidInput).
				WithMessage(fmt.Sprintf("bad glob pattern %q", p))
		}
	}

	root = filepath.Clean(root)
	var cutoff time.Time
	if opts.ModifiedDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -opts.ModifiedDays)
	}

	pl := &uploadPlan{}
	skip := func(path, reason string) {
		pl.skips = append(pl.skips, planSkip{path: path, reason: reason})
		m.log.Debug("upload skipped",
			zap.String("path", path),
			zap.String("reason", reason))
	}

	walkErr := m.fs.Walk(root, func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			skip(path, "enumeration error: "+err.Error())
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if path == reportPath {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			skip(path, "path outside root: "+relErr.Error())
			return nil
		}
		rel = filepath.ToSlash(rel)

		if reason, bad := illegalComponent(rel); bad {
			skip(path, reason)
			return nil
		}
		if !cutoff.IsZero() && info.ModTime().Before(cutoff) {
			skip(path, fmt.Sprintf("not modified in the last %d days", opts.ModifiedDays))
			return nil
		}
		if pat, matched := matchesAny(opts.Exclude, rel); matched {
			skip(path, fmt.Sprintf("excluded by pattern %q", pat))
			return nil
		}
		if len(opts.Include) > 0 {
			if _, matched := matchesAny(opts.Include, rel); !matched {
				skip(path, "not matched by any include pattern")
				return nil
			}
		}

		pl.items = append(pl.items, planItem{path: path, rel: rel, size: info.Size()})
		pl.bytes += info.Size()
		return nil
	})
	if walkErr != nil {
		return nil, errs.NewPathError("migrate.plan", root, walkErr)
	}
	return pl, nil
}

// illegalComponent reports whether any component of the relative path
// still violates destination naming rules.
func illegalComponent(rel string) (string, bool) {
	for _, comp := range strings.Split(rel, "/") {
		if vs := namecheck.Evaluate(comp); len(vs) > 0 {
			return fmt.Sprintf("name %q violates destination rules: %s",
				comp, strings.Join(namecheck.Details(vs), "; ")), true
		}
	}
	return "", false
}

func matchesAny(patterns []string, rel string) (string, bool) {
	for _, p := range patterns {
		if matched, _ := doublestar.Match(p, rel); matched {
			return p, true
		}
	}
	return "", false
}
