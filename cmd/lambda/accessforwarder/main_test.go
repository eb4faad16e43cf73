package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"github.com/storacha/grantlink/internal/testutil"
	"github.com/storacha/grantlink/pkg/notifier"
)

type recordingNotifier struct {
	events []notifier.AccessEvent
	fail   map[string]bool
}

func (r *recordingNotifier) Notify(ctx context.Context, event notifier.AccessEvent) (string, error) {
	if r.fail[event.ResourceKey] {
		return "", &notifier.Error{Err: errors.New("throttled")}
	}
	r.events = append(r.events, event)
	return "arn:aws:states:us-east-1:000000000000:execution:access:1", nil
}

func message(t *testing.T, id string, event notifier.AccessEvent) events.SQSMessage {
	body := testutil.Must(json.Marshal(event))(t)
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func TestForwardTo(t *testing.T) {
	ok := notifier.AccessEvent{ResourceKey: "dir/ok.txt", RequesterAlias: "bob123", CapabilityHash: testutil.RandomHash(), Epoch: 1700000000}
	failing := notifier.AccessEvent{ResourceKey: "dir/fail.txt", RequesterAlias: "bob123", CapabilityHash: testutil.RandomHash(), Epoch: 1700000000}
	workflow := &recordingNotifier{fail: map[string]bool{failing.ResourceKey: true}}

	res, err := forwardTo(workflow)(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{
			message(t, "1", ok),
			message(t, "2", failing),
			{MessageId: "3", Body: "not json"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, []notifier.AccessEvent{ok}, workflow.events)
	require.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "2"}}, res.BatchItemFailures)
}
