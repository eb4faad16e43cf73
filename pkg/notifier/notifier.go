package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/storacha/grantlink/pkg/grant"
)

var log = logging.Logger("notifier")

// AccessEvent records that a download link was issued. Its JSON encoding is
// the input of the access workflow.
type AccessEvent struct {
	ResourceKey    string
	RequesterAlias string
	CapabilityHash string
	OneTime        bool
	Epoch          int64
	Message        string
	// LinkExpires is the expiry of the issued link, zero if unknown.
	LinkExpires time.Time
}

// NewAccessEvent describes the issue of a link for req under decision. The
// summary message names the object as s3://{bucket}/{key}.
func NewAccessEvent(bucket string, req grant.AccessRequest, decision grant.Decision) AccessEvent {
	return AccessEvent{
		ResourceKey:    req.ResourceKey,
		RequesterAlias: req.RequesterAlias,
		CapabilityHash: req.CapabilityHash,
		OneTime:        decision.OneTime,
		Epoch:          decision.Epoch,
		Message: fmt.Sprintf("Requested 's3://%s/%s' by '%s'. Expired: %t.",
			bucket, req.ResourceKey, req.RequesterAlias, decision.OneTime),
	}
}

type accessEventJSON struct {
	S3Key         string `json:"s3_key"`
	Alias         string `json:"alias"`
	Hash          string `json:"hash"`
	IsAuthorized  bool   `json:"is_authorized"`
	IsOneTime     bool   `json:"is_onetime"`
	EpochNow      string `json:"epoch_now"`
	Message       string `json:"success_message"`
	LinkExpiresAt string `json:"link_expires_at,omitempty"`
}

// MarshalJSON encodes the event in the form the access workflow reads.
// epoch_now is a decimal string because the workflow writes it back to the
// grant table as a number attribute.
func (e AccessEvent) MarshalJSON() ([]byte, error) {
	v := accessEventJSON{
		S3Key:        e.ResourceKey,
		Alias:        e.RequesterAlias,
		Hash:         e.CapabilityHash,
		IsAuthorized: true,
		IsOneTime:    e.OneTime,
		EpochNow:     strconv.FormatInt(e.Epoch, 10),
		Message:      e.Message,
	}
	if !e.LinkExpires.IsZero() {
		v.LinkExpiresAt = e.LinkExpires.UTC().Format(time.RFC3339)
	}
	return json.Marshal(v)
}

// UnmarshalJSON decodes an event encoded by MarshalJSON.
func (e *AccessEvent) UnmarshalJSON(b []byte) error {
	var v accessEventJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	epoch, err := strconv.ParseInt(v.EpochNow, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing epoch_now: %w", err)
	}
	var expires time.Time
	if v.LinkExpiresAt != "" {
		expires, err = time.Parse(time.RFC3339, v.LinkExpiresAt)
		if err != nil {
			return fmt.Errorf("parsing link_expires_at: %w", err)
		}
	}
	*e = AccessEvent{
		ResourceKey:    v.S3Key,
		RequesterAlias: v.Alias,
		CapabilityHash: v.Hash,
		OneTime:        v.IsOneTime,
		Epoch:          epoch,
		Message:        v.Message,
		LinkExpires:    expires,
	}
	return nil
}

// Error is returned when an access event could not be handed to the
// workflow.
type Error struct {
	Err error
}

func (ne *Error) Error() string {
	return "notifying access: " + ne.Err.Error()
}

func (ne *Error) Unwrap() error {
	return ne.Err
}

// Notifier starts the access workflow for an event. It returns once the
// workflow has been accepted for execution, not when it completes.
type Notifier interface {
	Notify(ctx context.Context, event AccessEvent) (executionID string, err error)
}

// LogNotifier writes events to the log instead of starting a workflow. It is
// meant for local development.
type LogNotifier struct{}

var _ Notifier = LogNotifier{}

func (LogNotifier) Notify(ctx context.Context, event AccessEvent) (string, error) {
	id := uuid.NewString()
	log.Infow("Access event", "execution", id, "key", event.ResourceKey, "alias", event.RequesterAlias,
		"grant", grant.Fingerprint(event.CapabilityHash), "onetime", event.OneTime, "epoch", event.Epoch)
	return id, nil
}
