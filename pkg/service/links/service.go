package links

import (
	"context"
	"errors"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/storacha/grantlink/internal/telemetry"
	"github.com/storacha/grantlink/pkg/grant"
	"github.com/storacha/grantlink/pkg/notifier"
	"github.com/storacha/grantlink/pkg/presigner"
	"github.com/storacha/grantlink/pkg/store/grantstore"
)

var log = logging.Logger("links")

// Service issues signed download links for requests holding a valid grant.
type Service struct {
	grants      grantstore.GrantStore
	presigner   presigner.DownloadPresigner
	notifier    notifier.Notifier
	bucket      string
	linkTTL     time.Duration
	notifyMode  NotifyMode
	consumeMode ConsumeMode
	now         func() time.Time
}

// New creates a link service. A grant store, presigner and notifier are
// required.
func New(opts ...Option) (*Service, error) {
	o := &options{
		linkTTL:     presigner.DefaultTTL,
		notifyMode:  NotifyBestEffort,
		consumeMode: ConsumeByWorkflow,
		now:         time.Now,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.grants == nil {
		return nil, errors.New("grant store is required")
	}
	if o.presigner == nil {
		return nil, errors.New("presigner is required")
	}
	if o.notifier == nil {
		return nil, errors.New("notifier is required")
	}
	return &Service{
		grants:      o.grants,
		presigner:   o.presigner,
		notifier:    o.notifier,
		bucket:      o.bucket,
		linkTTL:     o.linkTTL,
		notifyMode:  o.notifyMode,
		consumeMode: o.consumeMode,
		now:         o.now,
	}, nil
}

// GetLink validates req, checks it against the grant store, signs a download
// link and starts the access workflow. Use OutcomeOf to classify the error.
func (s *Service) GetLink(ctx context.Context, req grant.AccessRequest) (presigner.SignedLink, error) {
	if err := grant.Validate(req); err != nil {
		return presigner.SignedLink{}, err
	}

	fp := grant.Fingerprint(req.CapabilityHash)
	now := s.now().Unix()
	decision, err := s.grants.Lookup(ctx, req.CapabilityHash, req.ResourceKey, now)
	if err != nil {
		log.Errorw("Looking up grant", "grant", fp, "key", req.ResourceKey, "error", err)
		return presigner.SignedLink{}, fmt.Errorf("looking up grant: %w", err)
	}
	if !decision.Authorized {
		log.Infow("Unauthorized", "grant", fp, "key", req.ResourceKey)
		return presigner.SignedLink{}, ErrUnauthorized
	}
	log.Infow("Authorized", "grant", fp, "key", req.ResourceKey, "onetime", decision.OneTime)

	link, err := s.presigner.SignDownloadURL(ctx, req.ResourceKey, s.linkTTL)
	if err != nil {
		log.Errorw("Signing download URL", "key", req.ResourceKey, "error", err)
		return presigner.SignedLink{}, fmt.Errorf("issuing link: %w", err)
	}
	log.Infow("Successfully generated pre-signed link", "key", req.ResourceKey, "expires", link.Expires)

	// consumed only once a link exists, a signing failure leaves the grant
	// redeemable
	if decision.OneTime && s.consumeMode == ConsumeConditional {
		err := s.grants.Consume(ctx, req.CapabilityHash, req.ResourceKey, decision.Epoch)
		if err != nil {
			if errors.Is(err, grantstore.ErrConsumed) {
				log.Infow("Grant consumed concurrently", "grant", fp, "key", req.ResourceKey)
				return presigner.SignedLink{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
			}
			log.Errorw("Consuming grant", "grant", fp, "key", req.ResourceKey, "error", err)
			return presigner.SignedLink{}, fmt.Errorf("consuming grant: %w", err)
		}
	}

	// in strict mode a consumed grant stays consumed when the workflow cannot
	// be started
	event := notifier.NewAccessEvent(s.bucket, req, decision)
	event.LinkExpires = link.Expires
	execution, err := s.notifier.Notify(ctx, event)
	if err != nil {
		if s.notifyMode == NotifyStrict {
			log.Errorw("Starting access workflow", "grant", fp, "key", req.ResourceKey, "error", err)
			return presigner.SignedLink{}, fmt.Errorf("starting access workflow: %w", err)
		}
		log.Warnw("Starting access workflow, returning link anyway", "grant", fp, "key", req.ResourceKey, "error", err)
		telemetry.ReportError(err)
		return link, nil
	}
	log.Debugw("Started access workflow", "execution", execution, "key", req.ResourceKey)

	return link, nil
}
