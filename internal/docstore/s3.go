package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/glucokeeper/internal/common"
)

// s3API is the part of *s3.Client the store uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Options configures an S3-compatible backend. BaseEndpoint may point at
// MinIO, e.g. "http://127.0.0.1:9000/".
type S3Options struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// S3 stores each document as one object whose key is the document path.
type S3 struct {
	api    s3API
	bucket string
}

// NewS3 builds a client from opts. Static credentials are used when an
// access key is given; otherwise the default AWS credential chain applies.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return newS3WithAPI(client, opts.Bucket), nil
}

func newS3WithAPI(api s3API, bucket string) *S3 {
	return &S3{api: api, bucket: bucket}
}

func (s *S3) Put(ctx context.Context, path string, body []byte) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return s.mapErr("put", path, err)
	}
	return nil
}

func (s *S3) Get(ctx context.Context, path string) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, s.mapErr("get", path, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: s3 read %s: %v", common.ErrUnavailable, path, err)
	}
	return body, nil
}

// List pages through the objects directly under collection and fetches each
// one. The delimiter keeps nested collections out of the listing.
func (s *S3) List(ctx context.Context, collection string) (map[string][]byte, error) {
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(collection + "/"),
		Delimiter: aws.String("/"),
	})

	out := make(map[string][]byte)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, s.mapErr("list", collection, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			body, err := s.Get(ctx, key)
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			_, id := Split(key)
			out[id] = body
		}
	}
	return out, nil
}

func (s *S3) Delete(ctx context.Context, path string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		mapped := s.mapErr("delete", path, err)
		if errors.Is(mapped, common.ErrNotFound) {
			return nil
		}
		return mapped
	}
	return nil
}

// mapErr turns SDK errors into the package's error contract. An error that
// carries no service response means the request never completed.
func (s *S3) mapErr(op, path string, err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return common.ErrNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return common.ErrNotFound
		}
		return fmt.Errorf("s3 %s %s: %w", op, path, err)
	}

	return fmt.Errorf("%w: s3 %s %s: %v", common.ErrUnavailable, op, path, err)
}
