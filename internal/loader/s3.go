package loader

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/curvescope/internal/curve"
)

// S3Options configures an S3-backed series source. Endpoint is optional and
// targets S3-compatible storage (e.g. Cloudflare R2) when set. Credentials
// fall back to the default AWS chain when left empty.
type S3Options struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Source loads series from delimited files in an S3-compatible bucket
type S3Source struct {
	client     *s3.Client
	downloader *manager.Downloader
	bucket     string
	prefix     string
	log        zerolog.Logger
}

// NewS3Source creates an S3-backed series source
func NewS3Source(ctx context.Context, opts S3Options, log zerolog.Logger) (*S3Source, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Source{
		client:     client,
		downloader: manager.NewDownloader(client),
		bucket:     opts.Bucket,
		prefix:     opts.Prefix,
		log:        log.With().Str("component", "s3_source").Logger(),
	}, nil
}

// List returns the ids of all recognized series objects under the prefix
func (s *S3Source) List(ctx context.Context) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var ids []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", s.bucket, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			if id, ok := seriesID(path.Base(*obj.Key)); ok {
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Load downloads and parses the series object for one id
func (s *S3Source) Load(ctx context.Context, id string) (curve.RawSeries, error) {
	for _, ext := range dataExtensions {
		key := s.objectKey(id + ext)

		buf := manager.NewWriteAtBuffer(nil)
		_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("failed to download s3://%s/%s: %w", s.bucket, key, err)
		}

		series, err := parseSeries(bytes.NewReader(buf.Bytes()), id)
		if err != nil {
			return nil, err
		}
		s.log.Debug().Str("id", id).Str("key", key).Int("observations", len(series)).Msg("Loaded series object")
		return series, nil
	}

	return nil, fmt.Errorf("no series object found for %q in bucket %s", id, s.bucket)
}

// objectKey joins the configured prefix with a file name
func (s *S3Source) objectKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return strings.TrimSuffix(s.prefix, "/") + "/" + name
}

// isNotFound reports whether an S3 error means the object does not exist
func isNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "NotFound") ||
		strings.Contains(msg, "StatusCode: 404")
}
