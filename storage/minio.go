package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig locates an S3 compatible bucket
type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// Minio stores files in an S3 compatible bucket
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio connects to the object store and makes sure the bucket exists
func NewMinio(ctx context.Context, c MinioConfig) (*Minio, error) {
	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKeyID, c.SecretAccessKey, ""),
		Secure: c.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}

	if !exists {
		err = client.MakeBucket(ctx, c.Bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, err
		}
	}

	return &Minio{client: client, bucket: c.Bucket}, nil
}

func notFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// Put implements Store
func (m *Minio) Put(
	ctx context.Context,
	key string,
	data []byte,
	contentType string,
) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}

	_, err = m.client.PutObject(
		ctx,
		m.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)

	return err
}

// Get implements Store
func (m *Minio) Get(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	obj, err := m.Stat(ctx, key)
	if err != nil {
		return nil, Object{}, err
	}

	r, err := m.client.GetObject(ctx, m.bucket, obj.Key, minio.GetObjectOptions{})
	if err != nil {
		if notFound(err) {
			return nil, Object{}, ErrNotFound
		}
		return nil, Object{}, err
	}

	return r, obj, nil
}

// Stat implements Store
func (m *Minio) Stat(ctx context.Context, key string) (Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Object{}, err
	}

	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if notFound(err) {
			return Object{}, ErrNotFound
		}
		return Object{}, err
	}

	return objectFromInfo(info), nil
}

// Delete implements Store
func (m *Minio) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}

	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

// List implements Store
func (m *Minio) List(ctx context.Context) ([]Object, error) {
	var objects []Object

	for info := range m.client.ListObjects(
		ctx,
		m.bucket,
		minio.ListObjectsOptions{Recursive: true},
	) {
		if info.Err != nil {
			return nil, info.Err
		}
		objects = append(objects, objectFromInfo(info))
	}

	return objects, nil
}

func objectFromInfo(info minio.ObjectInfo) Object {
	return Object{
		Key:         info.Key,
		Size:        info.Size,
		ContentType: info.ContentType,
		ModTime:     info.LastModified,
	}
}
