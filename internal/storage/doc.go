// Package storage wraps AWS SDK v2 with the small S3 surface the
// migration needs: ensuring per-user buckets and uploading home-folder
// files one at a time.
//
// Zero configuration works against the default credential chain;
// functional options progressively override region, endpoint,
// addressing style, retries, and timeouts. The filesystem the client
// reads uploads from is injectable so tests run against in-memory
// trees, and the whole S3 API can be swapped for a mock.
//
// Example usage:
//
//	client, err := storage.New(ctx, storage.WithRegion("eu-west-1"))
//	if err != nil {
//	    return err
//	}
//
//	if err := client.EnsureBucket(ctx, "homeport-alice"); err != nil {
//	    return err
//	}
//
//	result, err := client.UploadFile(ctx, "homeport-alice",
//	    "docs/report.pdf", "/home/alice/docs/report.pdf")
//	if err != nil {
//	    return err
//	}
package storage
