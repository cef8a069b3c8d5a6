package filestore

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"golang.org/x/net/context"
)

// MinioConfig holds the connection settings of the object storage
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore stores files as objects inside a bucket
type MinioStore struct {
	mc     *minio.Client
	bucket string
}

// NewMinioStore connects to the object storage and creates the bucket if it does not exist, yet
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "NewMinioStore: cannot create client")
	}
	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "NewMinioStore: cannot check bucket %s", cfg.Bucket)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "NewMinioStore: cannot create bucket %s", cfg.Bucket)
		}
	}
	return &MinioStore{mc: mc, bucket: cfg.Bucket}, nil
}

// Save uploads the file as object
func (s *MinioStore) Save(ctx context.Context, name, contentType string, r io.Reader, size int64) error {
	if err := checkName(name); err != nil {
		return err
	}
	_, err := s.mc.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	return errors.Wrapf(err, "Save: cannot upload %s", name)
}

// Handler streams the objects to the client
func (s *MinioStore) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Base(strings.TrimPrefix(r.URL.Path, "/"))
		if checkName(name) != nil {
			http.NotFound(w, r)
			return
		}
		obj, err := s.mc.GetObject(r.Context(), s.bucket, name, minio.GetObjectOptions{})
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer obj.Close()
		info, err := obj.Stat()
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", info.ContentType)
		http.ServeContent(w, r, name, info.LastModified, obj)
	})
}
