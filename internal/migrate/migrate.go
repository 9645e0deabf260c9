// Package migrate runs the per-user migration pipeline: resolve the
// destination site, ensure its bucket, grant temporary admin access,
// sanitize the source tree, plan the uploads, and push files one at a
// time. One user's failure never stops the batch.
package migrate

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	errs "github.com/Flowman/homeport/internal/errors"
	"github.com/Flowman/homeport/internal/fsys"
	"github.com/Flowman/homeport/internal/roster"
	"github.com/Flowman/homeport/internal/scan"
	"github.com/Flowman/homeport/internal/site"
	"github.com/Flowman/homeport/internal/storage"
)

// Options controls a migration run.
type Options struct {
	// ReportDir is where per-user remediation reports are written,
	// named <identity-slug>.csv. Empty means the parent directory of
	// each user's source folder.
	ReportDir string

	// AutoFix renames correctable entries during the sanitize pass.
	AutoFix bool

	// DryRun sanitizes (without renaming) and plans, writing reports
	// and logs, but creates no buckets, grants no access, and uploads
	// nothing.
	DryRun bool

	// ModifiedDays, when positive, restricts uploads to files modified
	// within the last N days.
	ModifiedDays int

	// Include lists glob patterns (doublestar syntax, matched against
	// the slash-separated path relative to the source folder); when
	// non-empty, only matching files are uploaded.
	Include []string

	// Exclude lists glob patterns removing files from the upload set.
	// Exclusion wins over inclusion.
	Exclude []string
}

// Failure records one file that could not be uploaded.
type Failure struct {
	Path string
	Key  string
	Err  error
}

// UserResult is the outcome of one user's migration.
type UserResult struct {
	Identity string
	Site     site.Site
	Scan     *scan.Result
	Planned  int
	Uploaded int
	Skipped  int
	Bytes    int64
	Failures []Failure

	// Err is set when the pipeline could not run for this user at all
	// (unresolvable site, bucket or grant failure, unreadable root).
	// Individual upload failures land in Failures instead.
	Err error

	Duration time.Duration
}

// Summary aggregates a whole run.
type Summary struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Results  []UserResult

	Users    int
	Failed   int
	Uploaded int
	Skipped  int
	Failures int
	Bytes    int64
}

// Migrator drives migrations for a batch of roster assignments.
type Migrator struct {
	fs     fsys.Filesystem
	store  *storage.Client
	sites  site.Resolver
	broker *site.Broker
	log    *zap.Logger
}

// New returns a Migrator. A nil logger logs nowhere; a nil broker
// behaves like one with no grantee configured.
func New(fs fsys.Filesystem, store *storage.Client, sites site.Resolver, broker *site.Broker, log *zap.Logger) *Migrator {
	if log == nil {
		log = zap.NewNop()
	}
	if broker == nil {
		broker = site.NewBroker(nil, "", log)
	}
	return &Migrator{fs: fs, store: store, sites: sites, broker: broker, log: log}
}

// Run migrates every assignment in order. Per-user failures are
// recorded on the UserResult and the batch continues; Run itself only
// fails on context cancellation.
func (m *Migrator) Run(ctx context.Context, assignments []roster.Assignment, opts Options) (*Summary, error) {
	summary := &Summary{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
	log := m.log.With(zap.String("run_id", summary.RunID))
	log.Info("migration run started",
		zap.Int("users", len(assignments)),
		zap.Bool("auto_fix", opts.AutoFix),
		zap.Bool("dry_run", opts.DryRun))

	for _, a := range assignments {
		select {
		case <-ctx.Done():
			summary.Duration = time.Since(summary.Started)
			return summary, errs.NewError("migrate", ctx.Err())
		default:
		}

		res := m.migrateUser(ctx, a, opts)
		summary.Results = append(summary.Results, res)
		summary.Users++
		summary.Uploaded += res.Uploaded
		summary.Skipped += res.Skipped
		summary.Failures += len(res.Failures)
		summary.Bytes += res.Bytes
		if res.Err != nil {
			summary.Failed++
			log.Warn("user migration failed",
				zap.String("identity", a.Identity),
				zap.Error(res.Err))
			continue
		}
		log.Info("user migrated",
			zap.String("identity", a.Identity),
			zap.String("bucket", res.Site.Bucket),
			zap.Int("uploaded", res.Uploaded),
			zap.Int("skipped", res.Skipped),
			zap.Int("upload_failures", len(res.Failures)),
			zap.Int64("bytes", res.Bytes))
	}

	summary.Duration = time.Since(summary.Started)
	log.Info("migration run finished",
		zap.Int("users", summary.Users),
		zap.Int("failed_users", summary.Failed),
		zap.Int("uploaded", summary.Uploaded),
		zap.Int("skipped", summary.Skipped),
		zap.Int("upload_failures", summary.Failures),
		zap.Int64("bytes", summary.Bytes),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (m *Migrator) migrateUser(ctx context.Context, a roster.Assignment, opts Options) UserResult {
	start := time.Now()
	res := UserResult{Identity: a.Identity}
	res.Err = m.runUser(ctx, a, opts, &res)
	res.Duration = time.Since(start)
	return res
}

func (m *Migrator) runUser(ctx context.Context, a roster.Assignment, opts Options, res *UserResult) error {
	st, err := m.sites.Resolve(a.Identity)
	if err != nil {
		return err
	}
	st.Prefix = a.Folder
	res.Site = st

	log := m.log.With(
		zap.String("identity", a.Identity),
		zap.String("bucket", st.Bucket))

	if !opts.DryRun {
		if err := m.store.EnsureBucket(ctx, st.Bucket); err != nil {
			return err
		}
		release, err := m.broker.Grant(ctx, st.Bucket)
		if err != nil {
			return err
		}
		// Revoke even when the rest of the pipeline bails out, and even
		// when the run was canceled mid-user.
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("admin access release failed", zap.Error(err))
			}
		}()
	}

	reportDir := opts.ReportDir
	if reportDir == "" {
		reportDir = filepath.Dir(filepath.Clean(a.SourceDir))
	}
	reportPath := filepath.Join(reportDir, site.Slug(a.Identity)+".csv")

	scanRes, err := scan.New(m.fs, m.log).Run(ctx, scan.Config{
		Root:       a.SourceDir,
		ReportPath: reportPath,
		AutoFix:    opts.AutoFix,
		DryRun:     opts.DryRun,
	})
	if err != nil {
		return err
	}
	res.Scan = scanRes

	pl, err := m.planUploads(ctx, a.SourceDir, reportPath, opts)
	if err != nil {
		return err
	}
	res.Planned = len(pl.items)
	res.Skipped = len(pl.skips)

	if opts.DryRun {
		log.Info("dry run: uploads planned only",
			zap.Int("planned", res.Planned),
			zap.Int("skipped", res.Skipped),
			zap.Int64("bytes", pl.bytes))
		return nil
	}

	for _, item := range pl.items {
		select {
		case <-ctx.Done():
			return errs.NewUserError("migrate.upload", a.Identity, ctx.Err())
		default:
		}

		key := st.Key(item.rel)
		out, err := m.store.UploadFile(ctx, st.Bucket, key, item.path)
		if err != nil {
			log.Warn("upload failed",
				zap.String("path", item.path),
				zap.String("key", key),
				zap.Error(err))
			res.Failures = append(res.Failures, Failure{Path: item.path, Key: key, Err: err})
			continue
		}
		res.Uploaded++
		res.Bytes += out.Size
	}
	return nil
}
