package cleanup

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore deletes media objects from the blob bucket.
type ObjectStore struct {
	client *s3.Client
	bucket string
}

// NewObjectStore wraps an S3 client for the given bucket.
func NewObjectStore(client *s3.Client, bucket string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket}
}

// Delete removes one object. S3 deletes are idempotent, so an object that
// is already gone does not fail the purge.
func (o *ObjectStore) Delete(ctx context.Context, key string) error {
	_, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("cleanup: delete object %q: %w", key, err)
	}
	return nil
}

// ObjectKeyFromURL extracts the bucket key from a media download URL.
// The media gateway serves objects at .../o/<url-encoded key>?..., so the
// key is the percent-decoded segment after the last "/o/". Plain bucket
// URLs (https://host/key) fall back to the full unescaped path.
func ObjectKeyFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("cleanup: parse media url %q: %w", raw, err)
	}
	if u.Path == "" || u.Path == "/" {
		return "", fmt.Errorf("cleanup: media url %q has no object path", raw)
	}

	// EscapedPath keeps the %2F separators that download URLs encode the
	// key with; PathUnescape below turns them back into real slashes.
	escaped := u.EscapedPath()
	if idx := strings.LastIndex(escaped, "/o/"); idx >= 0 {
		escaped = escaped[idx+len("/o/"):]
	} else {
		escaped = strings.TrimPrefix(escaped, "/")
	}
	if escaped == "" {
		return "", fmt.Errorf("cleanup: media url %q has an empty object key", raw)
	}

	key, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("cleanup: decode object key in %q: %w", raw, err)
	}
	return key, nil
}
