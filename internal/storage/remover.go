package storage

import (
	"context"
	"errors"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// Remover deletes the object behind a media url.
type Remover interface {
	Remove(ctx context.Context, mediaURL string) error
}

// GCSRemover deletes objects from Google Cloud Storage.
type GCSRemover struct {
	client *gcs.Client
	bucket string
}

// NewGCSRemover opens a client with the given service account key file, or
// application default credentials when credentialsFile is empty.
func NewGCSRemover(ctx context.Context, bucket, credentialsFile string) (*GCSRemover, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	return &GCSRemover{client: client, bucket: bucket}, nil
}

func (r *GCSRemover) Remove(ctx context.Context, mediaURL string) error {
	obj := ObjectFromURL(mediaURL)
	bucket := obj.Bucket
	if bucket == "" {
		bucket = r.bucket
	}

	err := r.client.Bucket(bucket).Object(obj.Path).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", bucket, obj.Path, err)
	}
	return nil
}

func (r *GCSRemover) Close() error {
	return r.client.Close()
}

// S3API is the part of the s3 client the remover needs.
type S3API interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Remover struct {
	client S3API
	bucket string
}

func NewS3Remover(client S3API, bucket string) *S3Remover {
	return &S3Remover{client: client, bucket: bucket}
}

func (r *S3Remover) Remove(ctx context.Context, mediaURL string) error {
	obj := ObjectFromURL(mediaURL)

	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(obj.Path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3 object %s: %w", obj.Path, err)
	}
	return nil
}

// NopRemover leaves stored media alone.
type NopRemover struct{}

func (NopRemover) Remove(context.Context, string) error { return nil }

// RemoveAll deletes each url and logs failures. Media cleanup never fails
// the caller.
func RemoveAll(ctx context.Context, r Remover, logger logrus.FieldLogger, urls []string) int {
	removed := 0
	for _, u := range urls {
		if u == "" {
			continue
		}
		if err := r.Remove(ctx, u); err != nil {
			logger.WithError(err).WithField("url", u).Warn("failed to remove media object")
			continue
		}
		removed++
	}
	return removed
}
