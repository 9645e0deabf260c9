// Command homeport bulk-migrates user home folders to per-user S3
// buckets, sanitizing filenames against destination naming rules along
// the way.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Flowman/homeport/internal/cli"
)

func main() {
	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
