package storage

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	maxPollImageSize = 5 << 20 // 5MB
	maxAvatarSize    = 2 << 20 // 2MB
)

var (
	ErrNotImage     = errors.New("only image files are allowed")
	ErrFileTooLarge = errors.New("file exceeds the size limit")
)

// MinIOClient represents a MinIO client
type MinIOClient struct {
	client *minio.Client
	bucket string
}

// NewMinIOClient creates a new MinIO client
func NewMinIOClient(endpoint, accessKey, secretKey, bucket string) (*MinIOClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false, // Set to true if using HTTPS
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	// Check if bucket exists, create if not
	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOClient{
		client: client,
		bucket: bucket,
	}, nil
}

// UploadPollImage uploads a poll image and returns its URL.
func (m *MinIOClient) UploadPollImage(ctx context.Context, file *multipart.FileHeader) (string, error) {
	objectName := fmt.Sprintf("polls/poll-%s%s", uuid.NewString(), filepath.Ext(file.Filename))
	return m.upload(ctx, file, objectName, maxPollImageSize)
}

// UploadAvatar uploads a user avatar and returns its URL.
func (m *MinIOClient) UploadAvatar(ctx context.Context, userID string, file *multipart.FileHeader) (string, error) {
	objectName := fmt.Sprintf("avatars/avatar-%s-%s%s", userID, uuid.NewString(), filepath.Ext(file.Filename))
	return m.upload(ctx, file, objectName, maxAvatarSize)
}

func (m *MinIOClient) upload(ctx context.Context, file *multipart.FileHeader, objectName string, maxSize int64) (string, error) {
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotImage
	}
	if file.Size > maxSize {
		return "", ErrFileTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	_, err = m.client.PutObject(ctx, m.bucket, objectName, src, file.Size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return fmt.Sprintf("http://%s/%s/%s", m.client.EndpointURL().Host, m.bucket, objectName), nil
}
