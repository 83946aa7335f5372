package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/dmitrijs2005/postkeeper/internal/server/config"
)

// Source yields the raw seed document.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
	Name() string
}

//go:embed data/posts.json
var bundled []byte

// EmbeddedSource serves the dataset compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Read(context.Context) ([]byte, error) { return bundled, nil }
func (EmbeddedSource) Name() string                         { return "embedded:data/posts.json" }

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	getObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return c.GetObject(ctx, in, optFns...)
	}
)

// S3Source reads the dataset from an object in an S3-compatible bucket.
type S3Source struct {
	bucket   string
	key      string
	region   string
	endpoint string
	user     string
	password string
}

func NewS3Source(c *sc.Config) *S3Source {
	return &S3Source{
		bucket:   c.S3Bucket,
		key:      c.S3Key,
		region:   c.S3Region,
		endpoint: c.S3BaseEndpoint,
		user:     c.S3RootUser,
		password: c.S3RootPassword,
	}
}

func (s *S3Source) Name() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

func (s *S3Source) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.user, s.password, "")),
	)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.endpoint != "" {
			o.BaseEndpoint = aws.String(s.endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

func (s *S3Source) Read(ctx context.Context) ([]byte, error) {
	c, err := s.client(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	out, err := getObject(c, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.Name(), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Name(), err)
	}
	return data, nil
}

// NewSource picks the Source named by the configuration.
func NewSource(c *sc.Config) (Source, error) {
	switch c.SeedSource {
	case sc.SeedSourceEmbedded, "":
		return EmbeddedSource{}, nil
	case sc.SeedSourceS3:
		return NewS3Source(c), nil
	default:
		return nil, fmt.Errorf("unknown seed source %q", c.SeedSource)
	}
}
