package links

import (
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/storacha/grantlink/pkg/notifier"
	"github.com/storacha/grantlink/pkg/presigner"
	"github.com/storacha/grantlink/pkg/store/grantstore"
)

// NotifyMode decides what happens when the access workflow cannot be started.
type NotifyMode string

const (
	// NotifyBestEffort logs the failure and still returns the link.
	NotifyBestEffort NotifyMode = "best-effort"
	// NotifyStrict fails the request so every issued link is audited.
	NotifyStrict NotifyMode = "strict"
)

// ConsumeMode decides who expires a one-time grant once it is redeemed.
type ConsumeMode string

const (
	// ConsumeByWorkflow leaves expiry to the access workflow.
	ConsumeByWorkflow ConsumeMode = "workflow"
	// ConsumeConditional expires the grant with a conditional write before
	// the link is signed, so concurrent redemptions cannot both succeed.
	ConsumeConditional ConsumeMode = "conditional"
)

// ParseNotifyMode parses a notify mode, empty meaning best-effort.
func ParseNotifyMode(s string) (NotifyMode, error) {
	switch NotifyMode(s) {
	case "", NotifyBestEffort:
		return NotifyBestEffort, nil
	case NotifyStrict:
		return NotifyStrict, nil
	}
	return "", fmt.Errorf("unknown notify mode: %q", s)
}

// ParseConsumeMode parses a consume mode, empty meaning workflow.
func ParseConsumeMode(s string) (ConsumeMode, error) {
	switch ConsumeMode(s) {
	case "", ConsumeByWorkflow:
		return ConsumeByWorkflow, nil
	case ConsumeConditional:
		return ConsumeConditional, nil
	}
	return "", fmt.Errorf("unknown consume mode: %q", s)
}

type options struct {
	grants      grantstore.GrantStore
	presigner   presigner.DownloadPresigner
	notifier    notifier.Notifier
	bucket      string
	linkTTL     time.Duration
	notifyMode  NotifyMode
	consumeMode ConsumeMode
	now         func() time.Time
}

type Option func(*options) error

// WithLogLevel changes the log level for the links subsystem.
func WithLogLevel(level string) Option {
	return func(o *options) error {
		return logging.SetLogLevel("links", level)
	}
}

func WithGrantStore(grants grantstore.GrantStore) Option {
	return func(o *options) error {
		o.grants = grants
		return nil
	}
}

func WithPresigner(p presigner.DownloadPresigner) Option {
	return func(o *options) error {
		o.presigner = p
		return nil
	}
}

func WithNotifier(n notifier.Notifier) Option {
	return func(o *options) error {
		o.notifier = n
		return nil
	}
}

// WithBucket sets the bucket name used in access event messages.
func WithBucket(bucket string) Option {
	return func(o *options) error {
		o.bucket = bucket
		return nil
	}
}

// WithLinkTTL overrides how long issued links are valid for.
func WithLinkTTL(ttl time.Duration) Option {
	return func(o *options) error {
		if ttl <= 0 {
			return fmt.Errorf("link ttl must be positive: %s", ttl)
		}
		o.linkTTL = ttl
		return nil
	}
}

func WithNotifyMode(mode NotifyMode) Option {
	return func(o *options) error {
		m, err := ParseNotifyMode(string(mode))
		if err != nil {
			return err
		}
		o.notifyMode = m
		return nil
	}
}

func WithConsumeMode(mode ConsumeMode) Option {
	return func(o *options) error {
		m, err := ParseConsumeMode(string(mode))
		if err != nil {
			return err
		}
		o.consumeMode = m
		return nil
	}
}

// WithClock replaces the time source decisions are made with.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		o.now = now
		return nil
	}
}
