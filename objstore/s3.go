package objstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// s3API is the subset of the S3 client used by Store. It is satisfied by
// *s3.Client and by test fakes.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store wraps an S3 client with the operations the pipeline needs.
// Transfers go through the sdk's transfer manager, which needs the
// concrete client; the fakes used in tests only cover the rest.
type Store struct {
	cl s3API
	up *manager.Uploader
	dl *manager.Downloader
}

func New(cl *s3.Client) *Store {
	return &Store{
		cl: cl,
		up: manager.NewUploader(cl),
		dl: manager.NewDownloader(cl),
	}
}

func newWithAPI(cl s3API) *Store {
	return &Store{cl: cl}
}

// Exists checks whether an object is already present.
func (st *Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := st.cl.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
			return false, nil
		}
		return false, fmt.Errorf("head s3://%s/%s: %w", bucket, key, err)
	}
	return true, nil
}

// Size returns an object's byte size.
func (st *Store) Size(ctx context.Context, bucket, key string) (int64, error) {
	out, err := st.cl.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("head s3://%s/%s: %w", bucket, key, err)
	}
	return out.ContentLength, nil
}

// List walks a bucket prefix and returns the objects whose keys match one
// of the given extensions (all objects when exts is empty).
func (st *Store) List(ctx context.Context, bucket, prefix string, exts ...string) ([]Object, error) {
	var objs []Object
	p := s3.NewListObjectsV2Paginator(st.cl, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, c := range page.Contents {
			key := aws.ToString(c.Key)
			if !matchExt(key, exts) {
				continue
			}
			objs = append(objs, Object{Bucket: bucket, Key: key, Size: c.Size})
		}
	}
	return objs, nil
}

// Download fetches an object to a local path, creating parent directories.
func (st *Store) Download(ctx context.Context, bucket, key, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", localPath, err)
	}
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	defer f.Close()
	if _, err := st.dl.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		os.Remove(localPath)
		return fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// DownloadCached fetches an object to localPath unless a previous run
// already left a copy there. The returned cleanup removes the file only
// when this call downloaded it; pre-existing copies are kept for reuse
// and reported via cached.
func (st *Store) DownloadCached(ctx context.Context, bucket, key, localPath string) (cleanup func(), cached bool, err error) {
	if _, err := os.Stat(localPath); err == nil {
		return func() {}, true, nil
	}
	if err := st.Download(ctx, bucket, key, localPath); err != nil {
		return nil, false, err
	}
	return func() { os.Remove(localPath) }, false, nil
}

// Upload stores a local file under the given bucket/key.
func (st *Store) Upload(ctx context.Context, localPath, bucket, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()
	if _, err := st.up.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
