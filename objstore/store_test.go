package objstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	scheme, bucket, key, err := ParseURL("s3://my-bucket/some/key.tif")
	require.NoError(t, err)
	assert.Equal(t, "s3", scheme)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "some/key.tif", key)

	scheme, bucket, key, err = ParseURL("gs://b/k")
	require.NoError(t, err)
	assert.Equal(t, "gs", scheme)
	assert.Equal(t, "b", bucket)
	assert.Equal(t, "k", key)

	for _, bad := range []string{"", "s3://", "s3://bucketonly", "http://b/k", "/local/file.tif"} {
		_, _, _, err := ParseURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("s3://b/k.tif"))
	assert.True(t, IsRemote("gs://b/k.tif"))
	assert.False(t, IsRemote("/data/k.tif"))
	assert.False(t, IsRemote("k.tif"))
}

func TestMatchExt(t *testing.T) {
	assert.True(t, matchExt("a/b.tif", nil))
	assert.True(t, matchExt("a/b.TIF", []string{".tif"}))
	assert.True(t, matchExt("a/b.tiff", []string{".tif", ".tiff"}))
	assert.False(t, matchExt("a/b.jp2", []string{".tif"}))
}

type fakeS3 struct {
	objects map[string]int64 // key -> size
	pages   int
}

type notFoundErr struct{}

func (notFoundErr) Error() string                 { return "NotFound" }
func (notFoundErr) ErrorCode() string             { return "NotFound" }
func (notFoundErr) ErrorMessage() string          { return "not found" }
func (notFoundErr) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	size, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, notFoundErr{}
	}
	return &s3.HeadObjectOutput{ContentLength: size}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.pages++
	out := &s3.ListObjectsV2Output{}
	for k, size := range f.objects {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: size})
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return nil, notFoundErr{}
}

func (f *fakeS3) PutObject(_ context.Context, _ *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return &s3.PutObjectOutput{}, nil
}

func TestExists(t *testing.T) {
	st := newWithAPI(&fakeS3{objects: map[string]int64{"raw/a.tif": 100}})
	ctx := context.Background()

	ok, err := st.Exists(ctx, "b", "raw/a.tif")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.Exists(ctx, "b", "raw/missing.tif")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSize(t *testing.T) {
	st := newWithAPI(&fakeS3{objects: map[string]int64{"raw/a.tif": 1234}})
	size, err := st.Size(context.Background(), "b", "raw/a.tif")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), size)

	_, err = st.Size(context.Background(), "b", "nope")
	assert.Error(t, err)
}

func TestDownloadCachedKeepsExistingFile(t *testing.T) {
	local := filepath.Join(t.TempDir(), "a.tif")
	require.NoError(t, os.WriteFile(local, []byte("cached"), 0o644))

	// the fake cannot serve downloads, so reaching Download would fail
	st := newWithAPI(&fakeS3{})
	cleanup, cached, err := st.DownloadCached(context.Background(), "b", "raw/a.tif", local)
	require.NoError(t, err)
	assert.True(t, cached)

	// cleanup after a cache hit must not delete the reusable copy
	cleanup()
	_, err = os.Stat(local)
	assert.NoError(t, err)
}

func TestList(t *testing.T) {
	st := newWithAPI(&fakeS3{objects: map[string]int64{
		"raw/a.tif":  100,
		"raw/b.TIFF": 200,
		"raw/c.jp2":  300,
	}})
	objs, err := st.List(context.Background(), "b", "raw/", ".tif", ".tiff")
	require.NoError(t, err)
	assert.Len(t, objs, 2)
	for _, o := range objs {
		assert.Equal(t, "b", o.Bucket)
		assert.NotEqual(t, "raw/c.jp2", o.Key)
	}
}
