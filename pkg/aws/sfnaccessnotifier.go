package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"

	"github.com/storacha/grantlink/pkg/notifier"
)

// SFNAccessNotifier implements the notifier.Notifier interface by starting a
// Step Functions state machine execution per access event.
type SFNAccessNotifier struct {
	stateMachineARN string
	sfnClient       *sfn.Client
}

var _ notifier.Notifier = (*SFNAccessNotifier)(nil)

// NewSFNAccessNotifier returns a Notifier that starts executions of the given
// state machine.
func NewSFNAccessNotifier(cfg aws.Config, stateMachineARN string, opts ...func(*sfn.Options)) *SFNAccessNotifier {
	return &SFNAccessNotifier{
		stateMachineARN: stateMachineARN,
		sfnClient:       sfn.NewFromConfig(cfg, opts...),
	}
}

// Notify implements notifier.Notifier. It returns the execution ARN.
func (s *SFNAccessNotifier) Notify(ctx context.Context, event notifier.AccessEvent) (string, error) {
	input, err := json.Marshal(event)
	if err != nil {
		return "", &notifier.Error{Err: fmt.Errorf("serializing execution input: %w", err)}
	}
	out, err := s.sfnClient.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(s.stateMachineARN),
		Input:           aws.String(string(input)),
	})
	if err != nil {
		return "", &notifier.Error{Err: fmt.Errorf("starting execution: %w", err)}
	}
	return aws.ToString(out.ExecutionArn), nil
}
