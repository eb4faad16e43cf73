package main

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	logging "github.com/ipfs/go-log/v2"

	"github.com/storacha/grantlink/cmd/lambda"
	"github.com/storacha/grantlink/internal/telemetry"
	"github.com/storacha/grantlink/pkg/aws"
	"github.com/storacha/grantlink/pkg/grant"
	"github.com/storacha/grantlink/pkg/notifier"
)

var log = logging.Logger("lambda/accessforwarder")

// accessforwarder drains the notify queue, starting the access workflow for
// each queued event. Messages that fail are reported back to SQS so only
// they are retried.
func main() {
	lambda.StartSQSEventHandler(makeHandler)
}

func makeHandler(cfg aws.Config) (lambda.SQSEventHandler, error) {
	if cfg.StateMachineARN == "" {
		return nil, errors.New("missing state machine ARN")
	}
	workflow := aws.NewSFNAccessNotifier(cfg.Config, cfg.StateMachineARN, cfg.SFNOptions...)
	return forwardTo(workflow), nil
}

func forwardTo(workflow notifier.Notifier) lambda.SQSEventHandler {
	return func(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
		var res events.SQSEventResponse
		for _, msg := range sqsEvent.Records {
			event, err := aws.DecodeAccessMessage(msg.Body)
			if err != nil {
				// retrying will not make it decodable
				log.Errorw("Dropping undecodable access message", "message", msg.MessageId, "error", err)
				telemetry.ReportError(err)
				continue
			}
			execution, err := workflow.Notify(ctx, event)
			if err != nil {
				log.Warnw("Starting access workflow", "message", msg.MessageId, "error", err)
				res.BatchItemFailures = append(res.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: msg.MessageId})
				continue
			}
			log.Infow("Started access workflow", "message", msg.MessageId, "execution", execution,
				"grant", grant.Fingerprint(event.CapabilityHash))
		}
		return res, nil
	}
}
