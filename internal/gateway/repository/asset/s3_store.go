package asset

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"reelsmith/internal/compose"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store keeps the media catalog (video/audio/image files referenced by
// compositions) in an S3-compatible bucket.
type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Store{
		client:     client,
		bucketName: bucket,
		region:     region,
	}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("store is nil")
	}
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Put uploads one media file. duration is the playable length in seconds
// for audio/video (0 for images) and is kept as object metadata so the
// catalog can be rebuilt from the bucket alone.
func (s *S3Store) Put(ctx context.Context, name, contentType string, duration float64, content []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("asset name is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	meta := map[string]string{}
	if duration > 0 {
		meta["duration"] = strconv.FormatFloat(duration, 'f', -1, 64)
	}
	_, err := s.client.PutObject(ctx, s.bucketName, name, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: meta,
	})
	return err
}

// List returns the catalog sorted by asset name, with presigned GET URLs
// valid for the given TTL.
func (s *S3Store) List(ctx context.Context, urlTTL time.Duration) ([]compose.AssetMeta, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}

	var out []compose.AssetMeta
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		stat, err := s.client.StatObject(ctx, s.bucketName, obj.Key, minio.StatObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", obj.Key, err)
		}
		presigned, err := s.client.PresignedGetObject(ctx, s.bucketName, obj.Key, urlTTL, url.Values{})
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", obj.Key, err)
		}
		meta := compose.AssetMeta{
			Name: obj.Key,
			Kind: kindFromContentType(stat.ContentType),
			URL:  presigned.String(),
		}
		if raw := stat.UserMetadata["Duration"]; raw != "" {
			if d, err := strconv.ParseFloat(raw, 64); err == nil {
				meta.Duration = d
			}
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func kindFromContentType(ct string) string {
	switch {
	case strings.HasPrefix(ct, "video/"):
		return "video"
	case strings.HasPrefix(ct, "audio/"):
		return "audio"
	case strings.HasPrefix(ct, "image/"):
		return "image"
	default:
		return "file"
	}
}
