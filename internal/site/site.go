// Package site resolves per-user destination sites and brokers temporary
// administrative access to them.
//
// A Site is the destination for one user's migration: a bucket derived
// from the user's identity plus an optional object-key prefix. The
// Broker grants the migration principal FULL_CONTROL on a bucket for
// the duration of a user's migration and restores the previous ACL
// afterwards.
package site

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	errs "github.com/Flowman/homeport/internal/errors"
	"github.com/Flowman/homeport/internal/storage/storageapi"
	"github.com/Flowman/homeport/internal/storage/validation"
)

// Site is one user's migration destination.
type Site struct {
	// Identity is the user the site belongs to, as given in the roster.
	Identity string

	// Bucket is the destination bucket name derived from the identity.
	Bucket string

	// Prefix is the object-key prefix all of the user's files are
	// uploaded under. Empty means the bucket root.
	Prefix string
}

// Key composes the object key for a file at the given path relative to
// the migration source root.
func (s Site) Key(rel string) string {
	rel = filepath.ToSlash(rel)
	prefix := strings.Trim(filepath.ToSlash(s.Prefix), "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

// Resolver derives destination sites from user identities.
type Resolver struct {
	// BucketPrefix is prepended (hyphen-separated) to every derived
	// bucket name, so one deployment's buckets share a recognizable
	// namespace. Empty means the slugged identity alone.
	BucketPrefix string
}

// Resolve derives the destination site for an identity. The identity is
// slugged into a bucket name: lowercased, runs of characters outside
// [a-z0-9] collapsed to a single hyphen, leading and trailing hyphens
// trimmed. The result must satisfy bucket naming rules or Resolve
// returns ErrSiteInvalid.
func (r Resolver) Resolve(identity string) (Site, error) {
	slugged := Slug(identity)
	if slugged == "" {
		return Site{}, errs.NewUserError("site.resolve", identity, errs.ErrSiteInvalid).
			WithMessage("identity yields an empty bucket name")
	}

	bucket := slugged
	if r.BucketPrefix != "" {
		bucket = r.BucketPrefix + "-" + slugged
	}

	if err := validation.ValidateBucketName(bucket); err != nil {
		return Site{}, errs.NewUserError("site.resolve", identity, errs.ErrSiteInvalid).
			WithBucket(bucket).
			WithMessage(err.Error())
	}

	return Site{Identity: identity, Bucket: bucket}, nil
}

// Slug maps an identity to a bucket-name fragment: lowercase, with
// every run of characters outside [a-z0-9] replaced by one hyphen and
// leading/trailing runs dropped. It also names per-user artifacts such
// as remediation reports.
func Slug(identity string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(identity) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	return b.String()
}

// ReleaseFunc restores a bucket's ACL to its pre-grant state.
type ReleaseFunc func(ctx context.Context) error

// Broker grants the migration principal temporary FULL_CONTROL on
// destination buckets.
type Broker struct {
	api     storageapi.S3API
	grantee string
	log     *zap.Logger
}

// NewBroker returns a Broker granting access to the canonical user ID
// grantee. An empty grantee disables granting: Grant becomes a no-op.
func NewBroker(api storageapi.S3API, grantee string, log *zap.Logger) *Broker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broker{api: api, grantee: grantee, log: log}
}

// Grant adds a FULL_CONTROL grant for the broker's grantee to the
// bucket's ACL and returns a ReleaseFunc restoring the ACL that was in
// place before. With no grantee configured, Grant does nothing and the
// returned ReleaseFunc is a no-op.
func (b *Broker) Grant(ctx context.Context, bucket string) (ReleaseFunc, error) {
	if b.grantee == "" {
		b.log.Debug("no grantee configured, skipping admin grant",
			zap.String("bucket", bucket))
		return func(context.Context) error { return nil }, nil
	}

	acl, err := b.api.GetBucketAcl(ctx, &s3.GetBucketAclInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return nil, errs.NewError("site.grant", wrapACLError(err)).
			WithBucket(bucket)
	}

	granted := make([]types.Grant, 0, len(acl.Grants)+1)
	granted = append(granted, acl.Grants...)
	granted = append(granted, types.Grant{
		Grantee: &types.Grantee{
			Type: types.TypeCanonicalUser,
			ID:   aws.String(b.grantee),
		},
		Permission: types.PermissionFullControl,
	})

	_, err = b.api.PutBucketAcl(ctx, &s3.PutBucketAclInput{
		Bucket: aws.String(bucket),
		AccessControlPolicy: &types.AccessControlPolicy{
			Grants: granted,
			Owner:  acl.Owner,
		},
	})
	if err != nil {
		return nil, errs.NewError("site.grant", wrapACLError(err)).
			WithBucket(bucket)
	}

	b.log.Info("admin access granted",
		zap.String("bucket", bucket),
		zap.String("grantee", b.grantee))

	previous := acl
	release := func(ctx context.Context) error {
		_, err := b.api.PutBucketAcl(ctx, &s3.PutBucketAclInput{
			Bucket: aws.String(bucket),
			AccessControlPolicy: &types.AccessControlPolicy{
				Grants: previous.Grants,
				Owner:  previous.Owner,
			},
		})
		if err != nil {
			return errs.NewError("site.release", wrapACLError(err)).
				WithBucket(bucket)
		}
		b.log.Info("admin access released", zap.String("bucket", bucket))
		return nil
	}
	return release, nil
}

// wrapACLError maps permission failures onto ErrAccessDenied so callers
// can classify them with errors.Is.
func wrapACLError(err error) error {
	if strings.Contains(err.Error(), "AccessDenied") {
		return fmt.Errorf("%w: %v", errs.ErrAccessDenied, err)
	}
	return err
}
