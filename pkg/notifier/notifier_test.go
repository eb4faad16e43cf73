package notifier

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/storacha/grantlink/pkg/grant"
)

func TestAccessEvent(t *testing.T) {
	req := grant.AccessRequest{
		ResourceKey:    "dir/file.txt",
		RequesterAlias: "bob123",
		CapabilityHash: strings.Repeat("a", 64),
	}

	t.Run("summary message", func(t *testing.T) {
		event := NewAccessEvent("my-bucket", req, grant.Decision{Authorized: true, OneTime: true, Epoch: 1700000000})
		require.Equal(t, "Requested 's3://my-bucket/dir/file.txt' by 'bob123'. Expired: true.", event.Message)

		event = NewAccessEvent("my-bucket", req, grant.Decision{Authorized: true, OneTime: false, Epoch: 1700000000})
		require.Equal(t, "Requested 's3://my-bucket/dir/file.txt' by 'bob123'. Expired: false.", event.Message)
	})

	t.Run("workflow input", func(t *testing.T) {
		event := NewAccessEvent("my-bucket", req, grant.Decision{Authorized: true, OneTime: false, Epoch: 1700000000})
		b, err := json.Marshal(event)
		require.NoError(t, err)

		var input map[string]any
		require.NoError(t, json.Unmarshal(b, &input))
		require.Equal(t, map[string]any{
			"s3_key":          "dir/file.txt",
			"alias":           "bob123",
			"hash":            req.CapabilityHash,
			"is_authorized":   true,
			"is_onetime":      false,
			"epoch_now":       "1700000000",
			"success_message": event.Message,
		}, input)
	})

	t.Run("link expiry", func(t *testing.T) {
		event := NewAccessEvent("my-bucket", req, grant.Decision{Authorized: true, OneTime: true, Epoch: 1700000000})
		event.LinkExpires = time.Unix(1700000900, 0)
		b, err := json.Marshal(event)
		require.NoError(t, err)
		require.Contains(t, string(b), `"link_expires_at":"2023-11-14T22:28:20Z"`)

		var decoded AccessEvent
		require.NoError(t, json.Unmarshal(b, &decoded))
		require.True(t, event.LinkExpires.Equal(decoded.LinkExpires))
		decoded.LinkExpires = event.LinkExpires
		require.Equal(t, event, decoded)
	})

	t.Run("bad epoch", func(t *testing.T) {
		var decoded AccessEvent
		err := json.Unmarshal([]byte(`{"epoch_now":"soon"}`), &decoded)
		require.Error(t, err)
	})
}

func TestLogNotifier(t *testing.T) {
	id, err := LogNotifier{}.Notify(context.Background(), AccessEvent{ResourceKey: "file.txt"})
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
}
