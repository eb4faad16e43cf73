package presigner

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/storacha/grantlink/internal/testutil"
)

func TestS3DownloadPresigner(t *testing.T) {
	endpoint := testutil.Must(url.Parse("http://localhost:9000"))(t)

	t.Run("signs a GET url", func(t *testing.T) {
		reqSigner, err := NewStaticDownloadPresigner("minioadmin", "minioadmin", *endpoint, "", "data")
		require.NoError(t, err)

		before := time.Now()
		link, err := reqSigner.SignDownloadURL(context.Background(), "dir/file.txt", DefaultTTL)
		require.NoError(t, err)

		require.Equal(t, "localhost:9000", link.URL.Host)
		require.Equal(t, "/data/dir/file.txt", link.URL.Path)
		q := link.URL.Query()
		require.Equal(t, "900", q.Get("X-Amz-Expires"))
		require.Equal(t, "AWS4-HMAC-SHA256", q.Get("X-Amz-Algorithm"))
		require.NotEmpty(t, q.Get("X-Amz-Signature"))
		require.Contains(t, q.Get("X-Amz-Credential"), "minioadmin/")
		require.WithinDuration(t, before.Add(DefaultTTL), link.Expires, 5*time.Second)
	})

	t.Run("zero ttl uses default", func(t *testing.T) {
		reqSigner, err := NewStaticDownloadPresigner("minioadmin", "minioadmin", *endpoint, "eu-west-1", "data")
		require.NoError(t, err)

		link, err := reqSigner.SignDownloadURL(context.Background(), "file.txt", 0)
		require.NoError(t, err)
		require.Equal(t, "900", link.URL.Query().Get("X-Amz-Expires"))
		require.Contains(t, link.URL.Query().Get("X-Amz-Credential"), "/eu-west-1/s3/")
	})

	t.Run("custom ttl", func(t *testing.T) {
		reqSigner, err := NewStaticDownloadPresigner("minioadmin", "minioadmin", *endpoint, "", "data")
		require.NoError(t, err)

		link, err := reqSigner.SignDownloadURL(context.Background(), "file.txt", time.Minute)
		require.NoError(t, err)
		require.Equal(t, "60", link.URL.Query().Get("X-Amz-Expires"))
	})

	t.Run("ttl too long", func(t *testing.T) {
		reqSigner, err := NewStaticDownloadPresigner("minioadmin", "minioadmin", *endpoint, "", "data")
		require.NoError(t, err)

		_, err = reqSigner.SignDownloadURL(context.Background(), "file.txt", 8*24*time.Hour)
		var se *SigningError
		require.True(t, errors.As(err, &se))
		require.Equal(t, "file.txt", se.Key)
	})

	t.Run("empty key", func(t *testing.T) {
		reqSigner, err := NewStaticDownloadPresigner("minioadmin", "minioadmin", *endpoint, "", "data")
		require.NoError(t, err)

		_, err = reqSigner.SignDownloadURL(context.Background(), "", DefaultTTL)
		var se *SigningError
		require.True(t, errors.As(err, &se))
	})

	t.Run("bucket required", func(t *testing.T) {
		_, err := NewStaticDownloadPresigner("minioadmin", "minioadmin", *endpoint, "", "")
		require.Error(t, err)
	})
}
