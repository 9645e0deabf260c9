// Package cli implements the homeport command line: subcommand
// dispatch, flag parsing, and wiring of the filesystem, storage, and
// migration layers.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Flowman/homeport/internal/fsys"
	"github.com/Flowman/homeport/internal/logging"
	"github.com/Flowman/homeport/internal/migrate"
	"github.com/Flowman/homeport/internal/roster"
	"github.com/Flowman/homeport/internal/scan"
	"github.com/Flowman/homeport/internal/site"
	"github.com/Flowman/homeport/internal/storage"
)

// Version information, baked at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
)

// Run dispatches the subcommand and returns the process exit code.
func Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		printRootUsage(os.Stderr)
		return 2
	}

	cmd := args[0]
	cmdArgs := args[1:]

	var err error
	switch cmd {
	case "scan":
		err = runScan(ctx, cmdArgs)
	case "migrate":
		err = runMigrate(ctx, cmdArgs)
	case "version":
		fmt.Fprintf(os.Stdout, "homeport %s (commit %s)\n", Version, Commit)
		return 0
	case "help", "-h", "--help":
		printRootUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printRootUsage(os.Stderr)
		return 2
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func runScan(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("scan", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	root := flags.String("root", "", "Directory tree to scan")
	reportPath := flags.String("report", "homeport-report.csv", "Remediation report file")
	fix := flags.Bool("fix", false, "Rename correctable entries in place")
	dryRun := flags.Bool("dry-run", false, "Log intended renames without performing them")
	verbose := flags.Bool("verbose", false, "Debug-level logging")
	logFile := flags.String("log-file", "", "Append a copy of the log to this file")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if *root == "" {
		return errors.New("scan: -root is required")
	}

	log, err := logging.New(logging.Options{Verbose: *verbose, Path: *logFile})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		return err
	}
	absReport, err := filepath.Abs(*reportPath)
	if err != nil {
		return err
	}

	res, err := scan.New(fsys.NewOSFS("/"), log).Run(ctx, scan.Config{
		Root:       absRoot,
		ReportPath: absReport,
		AutoFix:    *fix,
		DryRun:     *dryRun,
	})
	if err != nil {
		return err
	}

	printScanSummary(os.Stdout, res, absReport)
	return nil
}

func runMigrate(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("migrate", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)

	rosterPath := flags.String("roster", "", "CSV roster of identity,source[,folder] rows")
	bucketPrefix := flags.String("bucket-prefix", "", "Namespace prefix for derived bucket names")
	region := flags.String("region", "", "AWS region (falls back to HOMEPORT_REGION)")
	endpoint := flags.String("endpoint", "", "Custom S3 endpoint, path-style (falls back to HOMEPORT_ENDPOINT)")
	grantee := flags.String("grantee", "", "Canonical user ID given temporary admin access (falls back to HOMEPORT_GRANTEE)")
	modifiedDays := flags.Int("modified-days", 0, "Only upload files modified in the last N days (0 = all)")
	reportDir := flags.String("report-dir", "", "Directory for per-user remediation reports (default: next to each source folder)")
	fix := flags.Bool("fix", false, "Rename correctable entries before upload")
	dryRun := flags.Bool("dry-run", false, "Report and plan only: no buckets, grants, renames, or uploads")
	verbose := flags.Bool("verbose", false, "Debug-level logging")
	logFile := flags.String("log-file", "", "Append a copy of the log to this file")

	var include, exclude stringsFlag
	flags.Var(&include, "include", "Upload only files matching this glob, repeatable")
	flags.Var(&exclude, "exclude", "Skip files matching this glob, repeatable")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if *rosterPath == "" {
		return errors.New("migrate: -roster is required")
	}
	if *bucketPrefix == "" {
		return errors.New("migrate: -bucket-prefix is required")
	}

	log, err := logging.New(logging.Options{Verbose: *verbose, Path: *logFile})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	osFS := fsys.NewOSFS("/")

	absRoster, err := filepath.Abs(*rosterPath)
	if err != nil {
		return err
	}
	assignments, err := roster.Load(osFS, absRoster)
	if err != nil {
		return err
	}
	for i := range assignments {
		abs, err := filepath.Abs(assignments[i].SourceDir)
		if err != nil {
			return err
		}
		assignments[i].SourceDir = abs
	}

	storeOpts := []storage.Option{
		storage.WithFilesystem(osFS),
		storage.WithLogger(log),
	}
	if r := envOr(*region, "HOMEPORT_REGION"); r != "" {
		storeOpts = append(storeOpts, storage.WithRegion(r))
	}
	if e := envOr(*endpoint, "HOMEPORT_ENDPOINT"); e != "" {
		storeOpts = append(storeOpts, storage.WithEndpoint(e), storage.WithForcePathStyle(true))
	}
	store, err := storage.New(ctx, storeOpts...)
	if err != nil {
		return err
	}

	absReportDir := ""
	if *reportDir != "" {
		absReportDir, err = filepath.Abs(*reportDir)
		if err != nil {
			return err
		}
	}

	broker := site.NewBroker(store.API(), envOr(*grantee, "HOMEPORT_GRANTEE"), log)
	m := migrate.New(osFS, store, site.Resolver{BucketPrefix: *bucketPrefix}, broker, log)

	summary, err := m.Run(ctx, assignments, migrate.Options{
		ReportDir:    absReportDir,
		AutoFix:      *fix,
		DryRun:       *dryRun,
		ModifiedDays: *modifiedDays,
		Include:      include,
		Exclude:      exclude,
	})
	if err != nil {
		return err
	}

	printMigrateSummary(os.Stdout, summary)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d users failed", summary.Failed, summary.Users)
	}
	return nil
}

// stringsFlag collects repeatable flag values.
type stringsFlag []string

func (s *stringsFlag) String() string { return strings.Join(*s, ",") }

func (s *stringsFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// envOr returns the flag value, or the named environment variable when
// the flag was left empty.
func envOr(flagValue, envKey string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envKey)
}

func printRootUsage(w *os.File) {
	fmt.Fprintln(w, "homeport - home folder to S3 migration tool")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  homeport <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  scan     Check a directory tree for illegal names and write a remediation report")
	fmt.Fprintln(w, "  migrate  Migrate home folders to per-user buckets from a CSV roster")
	fmt.Fprintln(w, "  version  Print version information")
}

func printScanSummary(w *os.File, res *scan.Result, reportPath string) {
	fmt.Fprintln(w, "homeport scan summary")
	fmt.Fprintf(w, "- scanned: %d\n", res.Scanned)
	fmt.Fprintf(w, "- flagged: %d\n", res.Flagged)
	fmt.Fprintf(w, "- renamed: %d\n", res.Renamed)
	fmt.Fprintf(w, "- rename failures: %d\n", res.RenameFailures)
	fmt.Fprintf(w, "- enumeration errors: %d\n", res.EnumerationErrors)
	fmt.Fprintf(w, "- report: %s\n", reportPath)
}

func printMigrateSummary(w *os.File, s *migrate.Summary) {
	fmt.Fprintln(w, "homeport migration summary")
	fmt.Fprintf(w, "- run id: %s\n", s.RunID)
	fmt.Fprintf(w, "- users: %d (%d failed)\n", s.Users, s.Failed)
	fmt.Fprintf(w, "- uploaded: %d files, %d bytes\n", s.Uploaded, s.Bytes)
	fmt.Fprintf(w, "- skipped: %d\n", s.Skipped)
	fmt.Fprintf(w, "- upload failures: %d\n", s.Failures)
	fmt.Fprintf(w, "- duration: %s\n", s.Duration.Round(time.Millisecond))
}
