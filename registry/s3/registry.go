package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"plugin-updater/config"
	"plugin-updater/registry"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/rs/zerolog/log"
)

// ErrIncompleteS3Config is returned when the S3 configuration is incomplete
var ErrIncompleteS3Config = errors.New("incomplete S3 configuration")

var _ registry.Registry = (*S3Registry)(nil)

// S3Registry implements the registry interface using an s3-backed
// storage
type S3Registry struct {
	S3Client *s3.Client
	Timeout  time.Duration
	Bucket   string
	Prefix   string
}

// New creates a new s3-based registry. Static credentials are used when both
// key id and access key are configured, the default AWS credential chain
// otherwise.
func New(ctx context.Context, cfg config.S3Config) (*S3Registry, error) {
	// check for required S3 configuration
	if strings.TrimSpace(cfg.Bucket) == "" ||
		strings.TrimSpace(cfg.Timeout) == "" {
		return nil, fmt.Errorf("%w: bucket and timeout are required", ErrIncompleteS3Config)
	}
	hasKeyID := strings.TrimSpace(cfg.KeyID) != ""
	hasAccessKey := strings.TrimSpace(cfg.AccessKey) != ""
	if hasKeyID != hasAccessKey {
		return nil, fmt.Errorf("%w: key id and access key go together", ErrIncompleteS3Config)
	}

	timeoutDuration, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid S3 timeout value: %w", err)
	}

	var s3Client *s3.Client
	if hasKeyID {
		if strings.TrimSpace(cfg.Region) == "" {
			return nil, fmt.Errorf("%w: region is required with static credentials", ErrIncompleteS3Config)
		}

		opts := s3.Options{
			UsePathStyle: true,
			Region:       cfg.Region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(
					cfg.KeyID,
					cfg.AccessKey,
					"",
				),
			),
		}
		if cfg.Endpoint != "" {
			opts.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		s3Client = s3.New(opts)
	} else {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}

		s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.UsePathStyle = true
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
	}

	return &S3Registry{
		S3Client: s3Client,
		Timeout:  timeoutDuration,
		Bucket:   cfg.Bucket,
		Prefix:   strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// StoreArtifact uploads the content to the bucket and returns its checksum
func (r *S3Registry) StoreArtifact(
	ctx context.Context,
	key registry.Key,
	reader io.Reader,
) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact content: %w", err)
	}

	artifactPath := r.getArtifactPath(key)

	uploader := manager.NewUploader(r.S3Client)

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	result, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(artifactPath),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		var mu manager.MultiUploadFailure
		if errors.As(err, &mu) {
			// Process error and its associated uploadID
			log.Error().
				Msg(fmt.Sprintf("multi-upload failure (upload_id: %s): %v", mu.UploadID(), mu))

			return "", fmt.Errorf(
				"multi-upload failure (upload_id: %s): %w",
				mu.UploadID(),
				mu,
			)
		}

		log.Error().Err(err).Msg("upload failure")

		return "", fmt.Errorf("upload failure: %w", err)
	}
	log.Info().
		Str("location", result.Location).
		Msg("successfully uploaded plugin to s3 bucket")

	return registry.Checksum(content), nil
}

// GetArtifact downloads the content stored for key
func (r *S3Registry) GetArtifact(
	ctx context.Context,
	key registry.Key,
) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	object, err := r.S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(r.getArtifactPath(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", registry.ErrArtifactNotFound, key)
		}

		return nil, fmt.Errorf("failed to get artifact from S3: %w", err)
	}

	var content []byte
	if object.Body != nil {
		defer func() {
			if cerr := object.Body.Close(); cerr != nil {
				log.Error().Err(cerr).Msg("failed to close S3 object body")
			}
		}()
		content, err = io.ReadAll(object.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact content: %w", err)
		}
	} else {
		content = []byte{}
	}

	return content, nil
}

// DeleteArtifact deletes the object stored for key
func (r *S3Registry) DeleteArtifact(ctx context.Context, key registry.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	// DeleteObject succeeds for missing keys, so check first
	_, err := r.S3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(r.getArtifactPath(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("failed to remove artifact: %w: %s", registry.ErrArtifactNotFound, key)
		}

		return fmt.Errorf("failed to look up artifact in S3: %w", err)
	}

	_, err = r.S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(r.getArtifactPath(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete artifact from S3: %w", err)
	}

	return nil
}

// getArtifactPath returns the object key for an artifact
func (r *S3Registry) getArtifactPath(key registry.Key) string {
	if r.Prefix == "" {
		return key.ObjectName()
	}

	return path.Join(r.Prefix, key.ObjectName())
}

func isNotFound(err error) bool {
	var notFoundErr *types.NotFound
	var noSuchKeyErr *types.NoSuchKey

	return errors.As(err, &notFoundErr) || errors.As(err, &noSuchKeyErr)
}
