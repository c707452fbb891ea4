// Package storage wraps the S3-compatible object store that holds generated
// visuals. Supabase Storage speaks the S3 API, so an aws-sdk-go-v2 client
// pointed at the project endpoint is the whole integration.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

const (
	thumbnailWidth  = 400
	thumbnailJPEGQ  = 82
	presignValidity = 15 * time.Minute
)

type Store struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	logger        zerolog.Logger
}

func NewStore(client *s3.Client, bucket string, logger zerolog.Logger) *Store {
	return &Store{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        bucket,
		logger:        logger.With().Str("component", "storage").Logger(),
	}
}

// VisualPrefix is the folder that holds everything belonging to one visual.
// Visuals created outside a project land under "dashboard".
func VisualPrefix(userID, projectID, visualID string) string {
	if projectID == "" {
		projectID = "dashboard"
	}
	return fmt.Sprintf("users/%s/visuals/%s/%s", userID, projectID, visualID)
}

type StoredImage struct {
	Key          string
	ThumbnailKey string
	Width        int
	Height       int
	SizeBytes    int
}

// PutImage stores the full-resolution image and a derived thumbnail under the
// visual's folder. filename should be unique within the visual, for example
// "variation_1.jpg".
func (s *Store) PutImage(ctx context.Context, prefix, filename string, data []byte) (StoredImage, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return StoredImage{}, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()

	key := prefix + "/" + filename
	if err := s.put(ctx, key, data, "image/jpeg"); err != nil {
		return StoredImage{}, fmt.Errorf("upload original: %w", err)
	}

	thumbKey := prefix + "/thumbnails/" + filename
	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	var thumbBuf bytes.Buffer
	if err := jpeg.Encode(&thumbBuf, thumb, &jpeg.Options{Quality: thumbnailJPEGQ}); err != nil {
		return StoredImage{}, fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := s.put(ctx, thumbKey, thumbBuf.Bytes(), "image/jpeg"); err != nil {
		// A visual without a thumbnail still works; the client falls back
		// to the original. Log and continue.
		s.logger.Error().Err(err).Str("key", thumbKey).Msg("Failed to upload thumbnail")
		thumbKey = ""
	}

	return StoredImage{
		Key:          key,
		ThumbnailKey: thumbKey,
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		SizeBytes:    len(data),
	}, nil
}

// PutObject stores an arbitrary object, used by the render worker for
// platform renditions.
func (s *Store) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return s.put(ctx, key, data, contentType)
}

func (s *Store) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	return err
}

// GetObject fetches an object's bytes. The render worker uses this to pull
// originals before resizing.
func (s *Store) GetObject(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return buf.Bytes(), nil
}

// DeletePrefix removes every object under the given folder. Used when a
// visual or an entire account is deleted.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix + "/"),
	})

	// DeleteObjects takes at most 1000 keys per request; a list page never
	// exceeds that, so each page is deleted before fetching the next.
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects under %s: %w", prefix, err)
		}
		if len(page.Contents) == 0 {
			continue
		}
		toDelete := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			toDelete = append(toDelete, types.ObjectIdentifier{Key: obj.Key})
		}
		if _, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: toDelete, Quiet: aws.Bool(true)},
		}); err != nil {
			return fmt.Errorf("delete objects under %s: %w", prefix, err)
		}
	}
	return nil
}

// PresignGet returns a time-limited download URL for one object.
func (s *Store) PresignGet(ctx context.Context, key string) (string, error) {
	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignValidity))
	if err != nil {
		return "", fmt.Errorf("presign get for %s: %w", key, err)
	}
	return resp.URL, nil
}
