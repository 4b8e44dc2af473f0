package archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
)

type object struct {
	body        []byte
	contentType string
}

type fakeS3 struct {
	objects map[string]object
	headErr error
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]object{}}
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}

	if _, ok := f.objects[*in.Key]; ok {
		return &s3.HeadObjectOutput{}, nil
	}

	return nil, &types.NotFound{}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}

	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	obj := object{body: body}
	if in.ContentType != nil {
		obj.contentType = *in.ContentType
	}

	f.objects[*in.Key] = obj

	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if *in.Bucket != "snapshots" {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "no such bucket"}
	}

	return &s3.HeadBucketOutput{}, nil
}

func TestS3Archive_Put(t *testing.T) {
	client := newFakeS3()
	a := NewS3Archive(S3Config{Client: client, Bucket: "snapshots"})

	err := a.Put(context.Background(), "lineages/t/r/1.json", []byte(`{"rootId":"r"}`), "application/json")
	require.NoError(t, err)

	obj, ok := client.objects["lineages/t/r/1.json"]
	require.True(t, ok)
	assert.JSONEq(t, `{"rootId":"r"}`, string(obj.body))
	assert.Equal(t, "application/json", obj.contentType)
}

func TestS3Archive_PutIsCreateOnly(t *testing.T) {
	client := newFakeS3()
	a := NewS3Archive(S3Config{Client: client, Bucket: "snapshots"})

	require.NoError(t, a.Put(context.Background(), "k", []byte("first"), ""))

	err := a.Put(context.Background(), "k", []byte("second"), "")

	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.Equal(t, "first", string(client.objects["k"].body))
}

func TestS3Archive_Errors(t *testing.T) {
	tests := []struct {
		name    string
		headErr error
		putErr  error
	}{
		{
			name:    "head fails with something other than not found",
			headErr: &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"},
		},
		{
			name:   "put fails",
			putErr: errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeS3()
			client.headErr = tt.headErr
			client.putErr = tt.putErr

			err := NewS3Archive(S3Config{Client: client, Bucket: "snapshots"}).
				Put(context.Background(), "k", []byte("x"), "")

			require.Error(t, err)
			assert.True(t, domain.IsUnavailable(err))
		})
	}
}

func TestS3Archive_Check(t *testing.T) {
	client := newFakeS3()

	assert.NoError(t, NewS3Archive(S3Config{Client: client, Bucket: "snapshots"}).Check(context.Background()))

	err := NewS3Archive(S3Config{Client: client, Bucket: "missing"}).Check(context.Background())
	assert.True(t, domain.IsUnavailable(err))
}

func TestNewS3Archive_RequiresClientAndBucket(t *testing.T) {
	assert.Panics(t, func() { NewS3Archive(S3Config{Bucket: "b"}) })
	assert.Panics(t, func() { NewS3Archive(S3Config{Client: newFakeS3()}) })
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.False(t, isNotFound(errors.New("plain")))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
}
