// Package s3 implements the s3 driver for S3-compatible object stores
// (AWS S3, MinIO). Flat object namespaces are presented hierarchically via
// delimiter listing; links are presigned GET URLs.
package s3

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/browsekit/browsekit/internal/driver"
	"github.com/browsekit/browsekit/internal/entry"
)

// defaultEndpoint is used when the configuration names no endpoint.
const defaultEndpoint = "s3.amazonaws.com"

// defaultLinkTTL is the presigned URL lifetime when expires_in is unset.
const defaultLinkTTL = 15 * time.Minute

// Driver lists one bucket through delimiter (non-recursive) listing.
type Driver struct {
	driver.Base

	client *miniogo.Client
	bucket string
	ttl    time.Duration
	logger *slog.Logger
}

// New validates options and constructs the driver. bucket is required;
// endpoint, region, access_key_id, secret_access_key, use_ssl, and
// expires_in (seconds) are optional. No network call is made here.
func New(opts driver.Options, deps driver.Deps) (driver.Driver, error) {
	if err := opts.Require(driver.KeyS3, "bucket"); err != nil {
		return nil, err
	}

	endpoint := opts.String("endpoint")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	var creds *credentials.Credentials
	if opts.String("access_key_id") != "" {
		creds = credentials.NewStaticV4(opts.String("access_key_id"), opts.String("secret_access_key"), "")
	} else {
		creds = credentials.NewIAM("")
	}

	useSSL := true
	if _, set := opts["use_ssl"]; set {
		useSSL = opts.Bool("use_ssl")
	}

	client, err := miniogo.New(endpoint, &miniogo.Options{
		Creds:  creds,
		Secure: useSSL,
		Region: opts.String("region"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: s3 client: %v", driver.ErrConfig, err)
	}

	ttl := defaultLinkTTL
	if secs := opts.Int64("expires_in"); secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}

	return &Driver{
		client: client,
		bucket: opts.String("bucket"),
		ttl:    ttl,
		logger: deps.Logger,
	}, nil
}

func (d *Driver) Key() string  { return driver.KeyS3 }
func (d *Driver) Name() string { return "Amazon S3" }
func (d *Driver) Icon() string { return "cloud" }

// Authorized is always true — credentials are static configuration, not an
// end-user OAuth grant.
func (d *Driver) Authorized() bool { return true }

// Contents lists one hierarchy level under path using delimiter listing.
// Common prefixes become Containers; objects become Bytestreams. Any listing
// error aborts the call with no partial results.
func (d *Driver) Contents(ctx context.Context, listPath string) ([]entry.Entry, error) {
	prefix := normalizePrefix(listPath)

	d.logger.Debug("listing bucket prefix",
		slog.String("bucket", d.bucket),
		slog.String("prefix", prefix),
	)

	var entries []entry.Entry

	for obj := range d.client.ListObjects(ctx, d.bucket, miniogo.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: listing s3://%s/%s: %w", driver.ErrTransport, d.bucket, prefix, obj.Err)
		}

		if obj.Key == prefix {
			// The prefix placeholder object for the listed folder itself.
			continue
		}

		entries = append(entries, d.toEntry(obj))
	}

	return entries, nil
}

// toEntry converts one listed object or common prefix into a canonical entry.
func (d *Driver) toEntry(obj miniogo.ObjectInfo) entry.Entry {
	if strings.HasSuffix(obj.Key, "/") {
		id := strings.TrimSuffix(obj.Key, "/")

		return entry.Container{
			ID:       id,
			Location: entry.NewLocation(driver.KeyS3, id),
			Name:     entry.NormalizeName(path.Base(id)),
			MTime:    entry.ValidTime(obj.LastModified.UTC(), "last_modified", id, d.logger),
		}
	}

	mediaType := obj.ContentType
	if mediaType == "" {
		mediaType = mime.TypeByExtension(path.Ext(obj.Key))
	}

	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	return entry.Bytestream{
		ID:        obj.Key,
		Location:  entry.NewLocation(driver.KeyS3, obj.Key),
		Name:      entry.NormalizeName(path.Base(obj.Key)),
		Size:      obj.Size,
		MTime:     entry.ValidTime(obj.LastModified.UTC(), "last_modified", obj.Key, d.logger),
		MediaType: mediaType,
	}
}

// LinkFor presigns a GET for the object. The signature is embedded in the
// URL, so the auth header map stays empty.
func (d *Driver) LinkFor(ctx context.Context, id string) (*entry.DownloadSpec, error) {
	stat, err := d.client.StatObject(ctx, d.bucket, id, miniogo.StatObjectOptions{})
	if err != nil {
		resp := miniogo.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, fmt.Errorf("%w: s3://%s/%s", driver.ErrNotFound, d.bucket, id)
		}

		return nil, fmt.Errorf("%w: stat s3://%s/%s: %w", driver.ErrTransport, d.bucket, id, err)
	}

	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(id)))

	signed, err := d.client.PresignedGetObject(ctx, d.bucket, id, d.ttl, params)
	if err != nil {
		return nil, fmt.Errorf("%w: presigning s3://%s/%s: %w", driver.ErrTransport, d.bucket, id, err)
	}

	return &entry.DownloadSpec{
		URL:        signed.String(),
		AuthHeader: map[string]string{},
		Expires:    time.Now().UTC().Add(d.ttl),
		FileName:   path.Base(id),
		FileSize:   stat.Size,
	}, nil
}

// normalizePrefix converts a listing path into an S3 key prefix: no leading
// slash, exactly one trailing slash when non-empty.
func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}

	return p + "/"
}
