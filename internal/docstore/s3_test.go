package docstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/glucokeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory bucket that pages ListObjectsV2 two keys at a time.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
	calls   []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.err
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := f.record("put"); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(in.Key)] = body
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if err := f.record("get"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	body, ok := f.objects[aws.ToString(in.Key)]
	f.mu.Unlock()
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if err := f.record("delete"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	delete(f.objects, aws.ToString(in.Key))
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	f.mu.Lock()
	var keys []string
	for k := range f.objects {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if delim != "" && strings.Contains(strings.TrimPrefix(k, prefix), delim) {
			continue
		}
		keys = append(keys, k)
	}
	f.mu.Unlock()
	sort.Strings(keys)

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		for i, k := range keys {
			if k == tok {
				start = i
				break
			}
		}
	}
	end := start + 2
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	} else {
		end = len(keys)
	}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestS3_Contract(t *testing.T) {
	exerciseStore(t, newS3WithAPI(newFakeS3(), "bucket"))
}

func TestS3_ListPaginates(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newS3WithAPI(fake, "bucket")

	for _, id := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, s.Put(ctx, "accounts/a/entries/"+id, []byte(`{"id":`+id+`}`)))
	}
	require.NoError(t, s.Put(ctx, "accounts/a/entries/5/nested", []byte(`{}`)))

	docs, err := s.List(ctx, "accounts/a/entries")
	require.NoError(t, err)
	assert.Len(t, docs, 5)

	lists := 0
	for _, c := range fake.calls {
		if c == "list" {
			lists++
		}
	}
	assert.Equal(t, 3, lists)
}

func TestS3_TransportErrorIsUnavailable(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.err = errors.New("dial tcp: connection refused")
	s := newS3WithAPI(fake, "bucket")

	err := s.Put(ctx, "x/1", []byte(`{}`))
	require.ErrorIs(t, err, common.ErrUnavailable)

	_, err = s.Get(ctx, "x/1")
	require.ErrorIs(t, err, common.ErrUnavailable)

	_, err = s.List(ctx, "x")
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestS3_APIErrorIsNotUnavailable(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.err = &smithy.GenericAPIError{Code: "AccessDenied", Message: "nope"}
	s := newS3WithAPI(fake, "bucket")

	err := s.Put(ctx, "x/1", []byte(`{}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrUnavailable)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestS3_DeleteNotFoundIsNil(t *testing.T) {
	fake := newFakeS3()
	fake.err = &smithy.GenericAPIError{Code: "NoSuchKey"}
	s := newS3WithAPI(fake, "bucket")

	require.NoError(t, s.Delete(context.Background(), "x/1"))
}

func TestNewS3_StaticCredentials(t *testing.T) {
	s, err := NewS3(context.Background(), S3Options{
		Bucket:       "glucose",
		Region:       "us-east-1",
		BaseEndpoint: "http://127.0.0.1:9000/",
		AccessKey:    "admin",
		SecretKey:    "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "glucose", s.bucket)
	assert.NotNil(t, s.api)
}
