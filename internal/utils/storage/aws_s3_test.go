package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 keeps objects in memory and pages listings two keys at a time.
type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := start + 2
	if end > len(keys) {
		end = len(keys)
	}
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k])))})
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestAwsS3_ListFollowsPages(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"inbox/":      nil,
		"inbox/a.pdf": []byte("a"),
		"inbox/b.pdf": []byte("bb"),
		"inbox/c.pdf": []byte("ccc"),
		"other/d.pdf": []byte("d"),
	}}
	client := NewAwsS3WithClient(fake, "tickets", "eu-west-1")

	objects, err := client.ListObjects(context.Background(), "inbox/")
	require.NoError(t, err)
	require.Len(t, objects, 3)
	assert.Equal(t, "inbox/a.pdf", objects[0].Key)
	assert.Equal(t, int64(3), objects[2].Size)
}

func TestAwsS3_RoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	client := NewAwsS3WithClient(fake, "tickets", "eu-west-1")
	ctx := context.Background()

	require.NoError(t, client.UploadFile(ctx, "archive/a.pdf", []byte("%PDF"), "application/pdf"))
	data, err := client.Download(ctx, "archive/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), data)

	require.NoError(t, client.DeleteFile(ctx, "archive/a.pdf"))
	_, err = client.Download(ctx, "archive/a.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	assert.Equal(t, "https://tickets.s3.eu-west-1.amazonaws.com/archive/a.pdf", client.GetPublicLinkKey("archive/a.pdf"))
}
