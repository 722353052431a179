package stores

import (
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"JevanRaksha/pkg/errors"
)

// MinioStore keeps media in a minio/S3 bucket, for self-hosted deployments.
type MinioStore struct {
	cfg Config
}

func NewMinioStore(cfg Config) *MinioStore {
	return &MinioStore{cfg: cfg}
}

func (m *MinioStore) client() (*minio.Client, error) {
	return minio.New(m.cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(m.cfg.AccessKey, m.cfg.SecretKey, ""),
		Secure: m.cfg.UseSSL,
	})
}

func (m *MinioStore) ensureBucket(ctx context.Context, cli *minio.Client) error {
	exists, err := cli.BucketExists(ctx, m.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return cli.MakeBucket(ctx, m.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *MinioStore) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	cli, err := m.client()
	if err != nil {
		return errors.WrapCode(errors.CodeStorage, err, "minio client")
	}
	if err := m.ensureBucket(ctx, cli); err != nil {
		return errors.WrapCode(errors.CodeStorage, err, "ensure bucket")
	}
	if _, err = cli.PutObject(ctx, m.cfg.Bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return errors.WrapCode(errors.CodeStorage, err, "put object")
	}
	return nil
}

func (m *MinioStore) Read(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	cli, err := m.client()
	if err != nil {
		return nil, 0, errors.WrapCode(errors.CodeStorage, err, "minio client")
	}
	obj, err := cli.GetObject(ctx, m.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, errors.WrapCode(errors.CodeStorage, err, "get object")
	}
	st, err := obj.Stat()
	if err != nil {
		return nil, 0, errors.WrapCode(errors.CodeStorage, err, "stat object")
	}
	return obj, st.Size, nil
}

func (m *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	cli, err := m.client()
	if err != nil {
		return false, errors.WrapCode(errors.CodeStorage, err, "minio client")
	}
	_, err = cli.StatObject(ctx, m.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.WrapCode(errors.CodeStorage, err, "stat object")
	}
	return true, nil
}

func (m *MinioStore) Delete(ctx context.Context, key string) error {
	cli, err := m.client()
	if err != nil {
		return errors.WrapCode(errors.CodeStorage, err, "minio client")
	}
	if err := cli.RemoveObject(ctx, m.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.WrapCode(errors.CodeStorage, err, "remove object")
	}
	return nil
}

func (m *MinioStore) PublicURL(key string) string {
	if m.cfg.PublicURL != "" {
		return strings.TrimRight(m.cfg.PublicURL, "/") + "/" + key
	}
	// fall back to the endpoint; direct access may need a public-read policy
	scheme := "http://"
	if m.cfg.UseSSL {
		scheme = "https://"
	}
	return scheme + m.cfg.Endpoint + "/" + m.cfg.Bucket + "/" + key
}
