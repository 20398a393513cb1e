package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	apperrors "github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/errors"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

// ObjectStore holds generated lesson documents. Keys are
// "{courseID}-{chapterID}-{lessonID}.md".
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

type bucketService struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

func NewBucketService(log *logger.Logger) (ObjectStore, error) {
	serviceLog := log.With("service", "BucketService")

	bucketName := strings.TrimSpace(os.Getenv("LESSON_GCS_BUCKET_NAME"))
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var LESSON_GCS_BUCKET_NAME")
	}

	ctx := context.Background()
	var opts []option.ClientOption
	if credsPath := strings.TrimSpace(os.Getenv("GCS_CREDENTIALS_FILE")); credsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credsPath))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info("Object storage initialized", "bucket", bucketName)
	return &bucketService{log: serviceLog, client: client, bucket: bucketName}, nil
}

func (s *bucketService) Put(ctx context.Context, key string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "text/markdown"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", key, err)
	}
	return nil
}

func (s *bucketService) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("object %s: %w", key, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// LessonObjectKey builds the canonical object key for one lesson document.
func LessonObjectKey(courseID, chapterID, lessonID string) string {
	return fmt.Sprintf("%s-%s-%s.md", courseID, chapterID, lessonID)
}
