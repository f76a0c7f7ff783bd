package objstore

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
)

// GSStore uploads to gs:// destinations. Source discovery runs against
// S3; google storage is only supported as a publication target.
type GSStore struct {
	cl *storage.Client
}

func NewGS(cl *storage.Client) *GSStore {
	return &GSStore{cl: cl}
}

func (st *GSStore) Upload(ctx context.Context, localPath, bucket, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()
	w := st.cl.Bucket(bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("upload gs://%s/%s: %w", bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func (st *GSStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := st.cl.Bucket(bucket).Object(key).Attrs(ctx)
	if err == storage.ErrObjectNotExist {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("attrs gs://%s/%s: %w", bucket, key, err)
	}
	return true, nil
}
