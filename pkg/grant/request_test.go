package grant

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var validHash = strings.Repeat("a", 64)

func requireInvalid(t *testing.T, err error, field string) {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected validation error, got %v", err)
	require.Equal(t, field, ve.Field)
}

func TestParseRequest(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req, err := ParseRequest("dir%2Ffile.txt", "bob123", validHash)
		require.NoError(t, err)
		require.Equal(t, AccessRequest{
			ResourceKey:    "dir/file.txt",
			RequesterAlias: "bob123",
			CapabilityHash: validHash,
		}, req)
	})

	t.Run("undecodable key", func(t *testing.T) {
		_, err := ParseRequest("dir%zzfile", "bob123", validHash)
		requireInvalid(t, err, FieldKey)
	})

	t.Run("plus decodes to space", func(t *testing.T) {
		_, err := ParseRequest("my+file.txt", "bob123", validHash)
		requireInvalid(t, err, FieldKey)
	})

	t.Run("bad hash", func(t *testing.T) {
		_, err := ParseRequest("dir/file.txt", "bob123", "BADHASH")
		requireInvalid(t, err, FieldHash)
	})
}

func TestValidate(t *testing.T) {
	valid := AccessRequest{ResourceKey: "dir/file.txt", RequesterAlias: "bob123", CapabilityHash: validHash}

	t.Run("accepts valid request", func(t *testing.T) {
		require.NoError(t, Validate(valid))
	})

	t.Run("alias", func(t *testing.T) {
		for _, alias := range []string{"", "a", strings.Repeat("b", 33), "bob_123", "bób"} {
			req := valid
			req.RequesterAlias = alias
			requireInvalid(t, Validate(req), FieldAlias)
		}
		req := valid
		req.RequesterAlias = strings.Repeat("B", 32)
		require.NoError(t, Validate(req))
	})

	t.Run("hash", func(t *testing.T) {
		for _, hash := range []string{"", strings.Repeat("a", 63), strings.Repeat("a", 65), strings.Repeat("A", 64), strings.Repeat("g", 64)} {
			req := valid
			req.CapabilityHash = hash
			requireInvalid(t, Validate(req), FieldHash)
		}
	})

	t.Run("key", func(t *testing.T) {
		for _, key := range []string{"", "file name.txt", "%file", "dir/f!le", strings.Repeat("k", 1025)} {
			req := valid
			req.ResourceKey = key
			requireInvalid(t, Validate(req), FieldKey)
		}
		req := valid
		req.ResourceKey = strings.Repeat("k", 1024)
		require.NoError(t, Validate(req))
	})

	t.Run("key length is counted after decoding", func(t *testing.T) {
		longest := strings.Repeat("a/", MaxKeyLength/2)
		req, err := ParseRequest(strings.ReplaceAll(longest, "/", "%2F"), valid.RequesterAlias, valid.CapabilityHash)
		require.NoError(t, err)
		require.Equal(t, longest, req.ResourceKey)

		_, err = ParseRequest(longest+"a", valid.RequesterAlias, valid.CapabilityHash)
		requireInvalid(t, err, FieldKey)
	})

	t.Run("rejects disallowed leading characters", func(t *testing.T) {
		req := valid
		req.ResourceKey = "#dir/file.txt"
		requireInvalid(t, Validate(req), FieldKey)
	})

	t.Run("alias checked first", func(t *testing.T) {
		requireInvalid(t, Validate(AccessRequest{}), FieldAlias)
	})

	t.Run("is deterministic", func(t *testing.T) {
		req := valid
		req.CapabilityHash = "BADHASH"
		first := Validate(req)
		for range 5 {
			require.Equal(t, first, Validate(req))
		}
	})
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint(validHash)
	require.True(t, strings.HasPrefix(fp, "z"))
	require.NotContains(t, fp, validHash)
	require.Equal(t, fp, Fingerprint(validHash))
	require.NotEqual(t, fp, Fingerprint(strings.Repeat("b", 64)))
}

func TestRecord(t *testing.T) {
	yes, no := true, false

	t.Run("missing flag is one-time", func(t *testing.T) {
		require.True(t, Record{}.IsOneTime())
		require.True(t, Record{OneTime: &yes}.IsOneTime())
		require.False(t, Record{OneTime: &no}.IsOneTime())
	})

	t.Run("decide", func(t *testing.T) {
		require.Equal(t, Decision{Epoch: 42}, Decide(nil, 42))
		require.Equal(t, Decision{Authorized: true, OneTime: true, Epoch: 42}, Decide([]Record{{}}, 42))
		require.Equal(t, Decision{Authorized: true, OneTime: false, Epoch: 42}, Decide([]Record{{OneTime: &no}, {OneTime: &yes}}, 42))
	})

	t.Run("valid at", func(t *testing.T) {
		r := Record{Expires: 100}
		require.True(t, r.ValidAt(99))
		require.False(t, r.ValidAt(100))
	})
}
