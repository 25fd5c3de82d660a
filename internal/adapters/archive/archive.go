// Package archive uploads capture files to S3-compatible object storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
}

func (c Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// objectStore is the subset of *minio.Client used by MinioArchiver.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Upload describes a stored capture.
type Upload struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

type MinioArchiver struct {
	store  objectStore
	bucket string
	prefix string
	now    func() time.Time
}

func New(cfg Config) (*MinioArchiver, error) {
	if !cfg.Enabled() {
		return nil, errors.New("archive: endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return newMinioArchiver(client, cfg), nil
}

func newMinioArchiver(store objectStore, cfg Config) *MinioArchiver {
	return &MinioArchiver{store: store, bucket: cfg.Bucket, prefix: cfg.Prefix, now: time.Now}
}

// Key is the object name for a capture file: <prefix>/<yyyy>/<mm>/<dd>/<unix>-<base>.
func (a *MinioArchiver) Key(file string) string {
	t := a.now().UTC()
	name := fmt.Sprintf("%d-%s", t.Unix(), filepath.Base(file))
	return path.Join(a.prefix, t.Format("2006/01/02"), name)
}

// Upload stores file in the bucket, creating the bucket on first use.
func (a *MinioArchiver) Upload(ctx context.Context, file string) (Upload, error) {
	ok, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return Upload{}, fmt.Errorf("archive: check bucket %s: %w", a.bucket, err)
	}
	if !ok {
		if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return Upload{}, fmt.Errorf("archive: create bucket %s: %w", a.bucket, err)
		}
	}

	key := a.Key(file)
	info, err := a.store.FPutObject(ctx, a.bucket, key, file, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return Upload{}, fmt.Errorf("archive: upload %s: %w", file, err)
	}
	return Upload{Bucket: a.bucket, Key: key, Size: info.Size, ETag: info.ETag}, nil
}
