package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/socialhub/client/internal/auth"
	"github.com/socialhub/client/internal/config"
	"github.com/socialhub/client/internal/models"
)

// S3API is the subset of the S3 client the session store uses.
type S3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3SessionStore keeps the snapshot as a private object in an S3-compatible
// bucket.
type S3SessionStore struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
	key      string
	sealer   *Sealer
}

// NewS3Client configures a client targeting the provided object store.
func NewS3Client(ctx context.Context, cfg config.ObjectStoreConfig) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if strings.TrimSpace(cfg.Endpoint) != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// NewS3SessionStore stores the profile's snapshot at "<prefix>/<profile>.json".
func NewS3SessionStore(client S3API, cfg config.ObjectStoreConfig, profile string, sealer *Sealer) (*S3SessionStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 session store: bucket is required")
	}
	if strings.TrimSpace(profile) == "" {
		return nil, fmt.Errorf("s3 session store: profile is required")
	}

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = manager.MinUploadPartSize
		u.LeavePartsOnError = false
	})

	return &S3SessionStore{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
		key:      strings.TrimLeft(path.Join(cfg.Prefix, profile+".json"), "/"),
		sealer:   sealer,
	}, nil
}

// Key returns the object key holding the snapshot.
func (s *S3SessionStore) Key() string { return s.key }

// Load returns auth.ErrNoSession when the object does not exist.
func (s *S3SessionStore) Load(ctx context.Context) (models.Snapshot, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var missing *s3types.NoSuchKey
		if errors.As(err, &missing) {
			return models.Snapshot{}, auth.ErrNoSession
		}
		return models.Snapshot{}, fmt.Errorf("s3 get %s: %w", s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("s3 read %s: %w", s.key, err)
	}
	snap, err := decodeSnapshot(data, s.sealer)
	if err != nil {
		return models.Snapshot{}, err
	}
	if snap.Credentials.Empty() {
		return models.Snapshot{}, auth.ErrNoSession
	}
	return snap, nil
}

func (s *S3SessionStore) Save(ctx context.Context, snap models.Snapshot) error {
	data, err := encodeSnapshot(snap, s.sealer)
	if err != nil {
		return err
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		ACL:         s3types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s: %w", s.key, err)
	}
	return nil
}

func (s *S3SessionStore) Clear(ctx context.Context) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", s.key, err)
	}
	return nil
}
