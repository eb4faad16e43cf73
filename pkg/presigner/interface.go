package presigner

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// DefaultTTL is how long a download link is valid for unless configured
// otherwise.
const DefaultTTL = 900 * time.Second

// MaxTTL is the longest expiry S3 accepts for SigV4 presigned URLs.
const MaxTTL = 7 * 24 * time.Hour

// SignedLink is a URL that permits retrieval of one object until Expires.
type SignedLink struct {
	URL     url.URL
	Expires time.Time
}

// SigningError is returned when a download URL could not be signed.
type SigningError struct {
	Key string
	Err error
}

func (se *SigningError) Error() string {
	return fmt.Sprintf("signing download URL for %q: %s", se.Key, se.Err)
}

func (se *SigningError) Unwrap() error {
	return se.Err
}

type DownloadPresigner interface {
	// SignDownloadURL creates and signs a URL that allows a GET request to
	// retrieve the object stored under key.
	//
	// The ttl parameter determines how long the signed URL will be valid for.
	// Failures are returned as *SigningError.
	SignDownloadURL(ctx context.Context, key string, ttl time.Duration) (SignedLink, error)
}
