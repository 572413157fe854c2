package s3

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/marketworks/listing-service/internal/listing/domain"
	"github.com/marketworks/listing-service/internal/platform/logger"
)

// Storage keeps media files in a MinIO bucket. Stored asset paths are full
// object URLs, so they are served as-is without the "/" prefix convention.
type Storage struct {
	client  *minio.Client
	bucket  string
	baseURL string
	log     logger.Logger
}

func NewStorage(endpoint, accessKey, secretKey, bucket string, useSSL bool, log logger.Logger) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", endpoint, err)
	}

	err = client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{})
	if err != nil {
		exists, errExists := client.BucketExists(context.Background(), bucket)
		if errExists != nil || !exists {
			return nil, fmt.Errorf("failed to make/verify bucket %s: (make: %v / exists_check: %v)", bucket, err, errExists)
		}
		log.Infof("s3.Storage: bucket %s already exists", bucket)
	}

	return &Storage{
		client:  client,
		bucket:  bucket,
		baseURL: fmt.Sprintf("%s/%s", client.EndpointURL().String(), bucket),
		log:     log,
	}, nil
}

func (s *Storage) Store(ctx context.Context, directory string, upload *domain.Upload) (*domain.MediaAsset, error) {
	objectKey := fmt.Sprintf("%s/%s_%s", directory, uuid.NewString(), filepath.Base(upload.Filename))

	_, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(upload.Data), int64(len(upload.Data)), minio.PutObjectOptions{
		ContentType: upload.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object %s to bucket %s: %w", objectKey, s.bucket, err)
	}

	s.log.Debugf("s3.Storage.Store: uploaded %s (%d bytes)", objectKey, len(upload.Data))
	return &domain.MediaAsset{
		ID:   uuid.NewString(),
		Path: s.baseURL + "/" + objectKey,
	}, nil
}

// Delete is best-effort; a missing object and any transport error are logged
// and swallowed.
func (s *Storage) Delete(ctx context.Context, asset domain.MediaAsset) {
	if !strings.HasPrefix(asset.Path, s.baseURL+"/") {
		s.log.Warnf("s3.Storage.Delete: path %s does not belong to bucket %s", asset.Path, s.bucket)
		return
	}
	objectKey := strings.TrimPrefix(asset.Path, s.baseURL+"/")

	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		s.log.Errorf("s3.Storage.Delete: object %s could not be deleted: %v", objectKey, err)
	}
}
