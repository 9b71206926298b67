package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/devmsrajput/yt-backend/internal/config"
)

type uploaderStub struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (u *uploaderStub) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if u.err != nil {
		return nil, u.err
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	u.input = input
	u.body = string(data)
	return &manager.UploadOutput{}, nil
}

type deleterStub struct {
	keys    []string
	err     error
	headErr error
}

func (d *deleterStub) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if d.headErr != nil {
		return nil, d.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (d *deleterStub) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.keys = append(d.keys, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StorageUploadReturnsPublicLocation(t *testing.T) {
	up := &uploaderStub{}
	store := newS3Storage(up, &deleterStub{}, "media", "https://cdn.example.com/")

	location, err := store.Upload(context.Background(), "/videos/abc.mp4", "video/mp4", strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if location != "https://cdn.example.com/videos/abc.mp4" {
		t.Fatalf("unexpected location %q", location)
	}
	if aws.ToString(up.input.Key) != "videos/abc.mp4" || aws.ToString(up.input.Bucket) != "media" {
		t.Fatalf("unexpected put input %+v", up.input)
	}
	if aws.ToString(up.input.ContentType) != "video/mp4" || up.body != "bytes" {
		t.Fatalf("unexpected content %q %q", aws.ToString(up.input.ContentType), up.body)
	}

	if _, err := store.Upload(context.Background(), "/", "", strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty key")
	}

	up.err = errors.New("boom")
	if _, err := store.Upload(context.Background(), "x", "", strings.NewReader("")); err == nil {
		t.Fatal("expected upload failure to surface")
	}
}

func TestS3StorageDeleteResolvesKeys(t *testing.T) {
	cases := []struct {
		name     string
		baseURL  string
		location string
		wantKey  string
		wantErr  bool
	}{
		{name: "public location", baseURL: "https://cdn.example.com", location: "https://cdn.example.com/avatars/a.png", wantKey: "avatars/a.png"},
		{name: "bare key", location: "/avatars/a.png", wantKey: "avatars/a.png"},
		{name: "absolute url without base", location: "https://bucket.s3.amazonaws.com/videos/v.mp4", wantKey: "videos/v.mp4"},
		{name: "foreign host", baseURL: "https://cdn.example.com", location: "https://elsewhere.example.com/x.png", wantErr: true},
		{name: "empty", location: " ", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			del := &deleterStub{}
			store := newS3Storage(&uploaderStub{}, del, "media", tc.baseURL)

			err := store.Delete(context.Background(), tc.location)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if len(del.keys) != 1 || del.keys[0] != tc.wantKey {
				t.Fatalf("expected key %q got %v", tc.wantKey, del.keys)
			}
		})
	}
}

func TestNewS3StorageRequiresBucket(t *testing.T) {
	if _, err := NewS3Storage(context.Background(), config.ObjectStoreConfig{Region: "us-east-1"}); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestS3StoragePing(t *testing.T) {
	store := newS3Storage(&uploaderStub{}, &deleterStub{}, "media", "")
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	store = newS3Storage(&uploaderStub{}, &deleterStub{headErr: errors.New("no such bucket")}, "media", "")
	err := store.Ping(context.Background())
	if err == nil || !strings.Contains(err.Error(), "media") {
		t.Fatalf("expected bucket named in error got %v", err)
	}
}
