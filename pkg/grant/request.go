package grant

import (
	"fmt"
	"net/url"
	"regexp"

	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
)

var log = logging.Logger("grant")

// Field names reported by ValidationError.
const (
	FieldAlias = "alias"
	FieldHash  = "hash"
	FieldKey   = "key"
)

var (
	aliasPattern = regexp.MustCompile(`^[A-Za-z0-9]{2,32}$`)
	hashPattern  = regexp.MustCompile(`^[a-f0-9]{64}$`)
	keyPattern   = regexp.MustCompile(`^[a-zA-Z0-9_./-]+$`)
)

// MaxKeyLength is the longest object key accepted. Keys are ASCII once they
// match keyPattern, so the byte length is the character count.
const MaxKeyLength = 1024

// AccessRequest is a request to download the object at ResourceKey, made by
// RequesterAlias holding the capability CapabilityHash.
type AccessRequest struct {
	// ResourceKey is the percent-decoded object key.
	ResourceKey string
	// RequesterAlias identifies the requester in notifications.
	RequesterAlias string
	// CapabilityHash is the secret token presented by the requester.
	CapabilityHash string
}

// ValidationError reports the first request field that failed its format.
type ValidationError struct {
	Field string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s", ve.Field)
}

// ParseRequest decodes the percent-encoded object key and validates all three
// fields. A key that cannot be decoded is reported as an invalid key.
func ParseRequest(rawKey, alias, hash string) (AccessRequest, error) {
	key, err := url.QueryUnescape(rawKey)
	if err != nil {
		log.Infof("Invalid %s: decoding: %s", FieldKey, err)
		return AccessRequest{}, &ValidationError{Field: FieldKey}
	}
	req := AccessRequest{
		ResourceKey:    key,
		RequesterAlias: alias,
		CapabilityHash: hash,
	}
	if err := Validate(req); err != nil {
		return AccessRequest{}, err
	}
	return req, nil
}

// Validate checks the alias, hash and key formats in that order and returns
// a *ValidationError naming the first field that does not match.
func Validate(req AccessRequest) error {
	checks := []struct {
		field   string
		pattern *regexp.Regexp
		value   string
	}{
		{FieldAlias, aliasPattern, req.RequesterAlias},
		{FieldHash, hashPattern, req.CapabilityHash},
		{FieldKey, keyPattern, req.ResourceKey},
	}
	for _, c := range checks {
		if !c.pattern.MatchString(c.value) || (c.field == FieldKey && len(c.value) > MaxKeyLength) {
			log.Infof("Invalid %s", c.field)
			return &ValidationError{Field: c.field}
		}
	}
	return nil
}

// Fingerprint returns a non-reversible identifier for a capability hash that
// is safe to write to logs.
func Fingerprint(hash string) string {
	digest, err := multihash.Sum([]byte(hash), multihash.SHA2_256, -1)
	if err != nil {
		return "<unavailable>"
	}
	s, err := multibase.Encode(multibase.Base58BTC, digest)
	if err != nil {
		return "<unavailable>"
	}
	return s
}
