package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config 对象存储参数，凭证走默认凭证链（环境变量 / 实例角色）。
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // 可选，MinIO 等兼容端点
	PathStyle bool
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3 将对象写入单个桶。
type S3 struct {
	client    s3API
	bucket    string
	region    string
	endpoint  *url.URL
	pathStyle bool
}

// NewS3 构造 S3 后端。
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "ap-southeast-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3WithClient(client, cfg.Bucket, region, cfg.Endpoint, cfg.PathStyle), nil
}

func newS3WithClient(client s3API, bucket, region, endpoint string, pathStyle bool) *S3 {
	store := &S3{client: client, bucket: bucket, region: region, pathStyle: pathStyle}
	if endpoint != "" {
		if u, err := url.Parse(endpoint); err == nil {
			store.endpoint = u
		}
	}
	return store
}

func (s *S3) Driver() string { return DriverS3 }

func (s *S3) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	// S3 没有 create-only 语义，先 Head 判断
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key}); err == nil {
		return "", ErrExists
	}

	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: r}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return s.objectURL(key), nil
}

func (s *S3) objectURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.endpoint != nil {
		base := strings.TrimRight(s.endpoint.String(), "/")
		if s.pathStyle {
			return base + "/" + s.bucket + "/" + escaped
		}
		return fmt.Sprintf("%s://%s.%s/%s", s.endpoint.Scheme, s.bucket, s.endpoint.Host, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
}
