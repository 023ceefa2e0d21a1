package objectstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/forPelevin/shortsmith/internal/ports"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

type client interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Adapter publishes finished videos to an S3-compatible bucket. The job title
// and tags travel as object user metadata.
type Adapter struct {
	api    client
	bucket string
	prefix string
	log    logrus.FieldLogger
}

func New(cfg Config, log logrus.FieldLogger) (*Adapter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Adapter{api: c, bucket: cfg.Bucket, prefix: cfg.Prefix, log: log}, nil
}

func (a *Adapter) Upload(ctx context.Context, req ports.UploadRequest) (bool, error) {
	exists, err := a.api.BucketExists(ctx, a.bucket)
	if err != nil {
		return false, fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if !exists {
		if err := a.api.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return false, fmt.Errorf("create bucket %s: %w", a.bucket, err)
		}
	}

	f, err := os.Open(req.Video)
	if err != nil {
		return false, fmt.Errorf("open video: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat video: %w", err)
	}

	key := ObjectKey(a.prefix, req.Video)
	info, err := a.api.PutObject(ctx, a.bucket, key, f, st.Size(), minio.PutObjectOptions{
		ContentType: "video/mp4",
		UserMetadata: map[string]string{
			"title": metaValue(req.Title),
			"tags":  metaValue(strings.Join(req.Tags, ",")),
		},
	})
	if err != nil {
		return false, fmt.Errorf("upload %s to %s/%s: %w", req.Video, a.bucket, key, err)
	}
	if a.log != nil {
		a.log.WithFields(logrus.Fields{"bucket": a.bucket, "key": key, "size": info.Size}).Info("video uploaded")
	}
	return true, nil
}

func ObjectKey(prefix, localPath string) string {
	base := filepath.Base(localPath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

// metaValue makes v safe for S3 user metadata, which must be US-ASCII.
// Plain ASCII passes through unchanged.
func metaValue(v string) string {
	return mime.QEncoding.Encode("utf-8", v)
}
