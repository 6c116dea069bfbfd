package filestorage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/placeshare/placeshare/internal/usecase"
)

func NewMinIOStorage(bucket, endpoint, accessKeyID, secretAccessKey string, useSSL bool) (*MinIOStorage, error) {
	m, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinIOStorage{
		client: m,
		bucket: bucket,
	}, nil
}

type MinIOStorage struct {
	client *minio.Client
	bucket string
}

func (f *MinIOStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := f.client.PutObject(ctx, f.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// Delete succeeds for keys that are already gone.
func (f *MinIOStorage) Delete(ctx context.Context, key string) error {
	err := f.client.RemoveObject(ctx, f.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil
	}
	return err
}

func (f *MinIOStorage) List(ctx context.Context, prefix string) ([]usecase.StoredObject, error) {
	var objects []usecase.StoredObject
	for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		objects = append(objects, usecase.StoredObject{
			Path:    obj.Key,
			ModTime: obj.LastModified,
		})
	}
	return objects, nil
}

func (f *MinIOStorage) URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(f.client.EndpointURL().String(), "/"), f.bucket, key)
}
