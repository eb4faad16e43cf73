package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"github.com/storacha/grantlink/pkg/notifier"
)

var AccessQueueMessageGroupID = "access-events"

// SQSAccessNotifier implements the notifier.Notifier interface using SQS. The
// consumer of the queue runs the access workflow.
type SQSAccessNotifier struct {
	queueURL  string
	sqsClient *sqs.Client
}

var _ notifier.Notifier = (*SQSAccessNotifier)(nil)

// NewSQSAccessNotifier returns a new SQSAccessNotifier for the given aws config
func NewSQSAccessNotifier(cfg aws.Config, queueURL string, opts ...func(*sqs.Options)) *SQSAccessNotifier {
	return &SQSAccessNotifier{
		queueURL:  queueURL,
		sqsClient: sqs.NewFromConfig(cfg, opts...),
	}
}

// Notify implements notifier.Notifier. It returns the SQS message ID.
func (s *SQSAccessNotifier) Notify(ctx context.Context, event notifier.AccessEvent) (string, error) {
	messageJSON, err := json.Marshal(event)
	if err != nil {
		return "", &notifier.Error{Err: fmt.Errorf("serializing message json: %w", err)}
	}
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(messageJSON)),
	}
	if strings.HasSuffix(s.queueURL, ".fifo") {
		input.MessageGroupId = &AccessQueueMessageGroupID
		input.MessageDeduplicationId = aws.String(uuid.NewString())
	}
	out, err := s.sqsClient.SendMessage(ctx, input)
	if err != nil {
		return "", &notifier.Error{Err: fmt.Errorf("enqueueing message: %w", err)}
	}
	return aws.ToString(out.MessageId), nil
}

// DecodeAccessMessage extracts an access event from an SQS message body
func DecodeAccessMessage(messageBody string) (notifier.AccessEvent, error) {
	var event notifier.AccessEvent
	err := json.Unmarshal([]byte(messageBody), &event)
	if err != nil {
		return notifier.AccessEvent{}, fmt.Errorf("deserializing message: %w", err)
	}
	return event, nil
}
