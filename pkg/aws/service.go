package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"

	"github.com/storacha/grantlink/pkg/notifier"
	"github.com/storacha/grantlink/pkg/presigner"
	"github.com/storacha/grantlink/pkg/service/links"
)

var log = logging.Logger("aws")

// ErrMissingSecret means that the value returned from Secrets was empty
var ErrMissingSecret = errors.New("missing value for secret")

func mustGetEnv(envVar string) string {
	value := os.Getenv(envVar)
	if len(value) == 0 {
		panic(fmt.Errorf("missing env var: %s", envVar))
	}
	return value
}

type Config struct {
	Config        aws.Config
	S3Options     []func(*s3.Options)
	DynamoOptions []func(*dynamodb.Options)
	SFNOptions    []func(*sfn.Options)
	SQSOptions    []func(*sqs.Options)

	SentryDSN         string
	SentryEnvironment string
	LogLevel          string

	TableName string

	Bucket                string
	BucketEndpoint        string
	BucketRegion          string
	BucketAccessKeyID     string
	BucketSecretAccessKey string
	LinkTTL               time.Duration

	StateMachineARN string
	NotifyQueueURL  string

	NotifyMode  links.NotifyMode
	ConsumeMode links.ConsumeMode
}

// Validate reports every missing or inconsistent setting.
func (cfg Config) Validate() error {
	var errs error
	if cfg.TableName == "" {
		errs = multierror.Append(errs, errors.New("grant table name is required"))
	}
	if cfg.Bucket == "" {
		errs = multierror.Append(errs, errors.New("bucket name is required"))
	}
	if cfg.StateMachineARN == "" && cfg.NotifyQueueURL == "" {
		errs = multierror.Append(errs, errors.New("a state machine ARN or notify queue URL is required"))
	}
	if (cfg.BucketAccessKeyID == "") != (cfg.BucketSecretAccessKey == "") {
		errs = multierror.Append(errs, errors.New("bucket access key ID and secret access key must be set together"))
	}
	if cfg.LinkTTL < 0 || cfg.LinkTTL > presigner.MaxTTL {
		errs = multierror.Append(errs, fmt.Errorf("invalid link ttl: %s, must be at most %s", cfg.LinkTTL, presigner.MaxTTL))
	}
	if _, err := links.ParseNotifyMode(string(cfg.NotifyMode)); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := links.ParseConsumeMode(string(cfg.ConsumeMode)); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

func mustGetSSMParams(ctx context.Context, client *ssm.Client, names ...string) map[string]string {
	response, err := client.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          names,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		panic(fmt.Errorf("retrieving SSM parameters: %w", err))
	}
	params := map[string]string{}
	for _, name := range names {
		value := ""
		for _, p := range response.Parameters {
			if aws.ToString(p.Name) == name {
				value = aws.ToString(p.Value)
				break
			}
		}
		if value == "" {
			panic(ErrMissingSecret)
		}
		params[name] = value
	}
	return params
}

// normalizeLogLevel accepts the level names of other logging libraries, e.g.
// WARNING and CRITICAL.
func normalizeLogLevel(level string) string {
	switch level = strings.ToLower(level); level {
	case "warning":
		return "warn"
	case "critical":
		return "fatal"
	}
	return level
}

// FromEnv constructs the AWS Configuration from the environment. Missing
// required settings panic, so a misconfigured function fails at start-up
// rather than per request.
func FromEnv(ctx context.Context) Config {
	awsConfig, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		panic(fmt.Errorf("loading aws default config: %w", err))
	}

	// signing with the function role's session credentials would cut links
	// short when the session expires, so long lived keys may be provided
	var bucketAccessKeyID, bucketSecretAccessKey string
	if os.Getenv("S3_BUCKET_ACCESS_KEY_ID") != "" || os.Getenv("S3_BUCKET_SECRET_ACCESS_KEY") != "" {
		idName := mustGetEnv("S3_BUCKET_ACCESS_KEY_ID")
		secretName := mustGetEnv("S3_BUCKET_SECRET_ACCESS_KEY")
		secrets := mustGetSSMParams(ctx, ssm.NewFromConfig(awsConfig), idName, secretName)
		bucketAccessKeyID = secrets[idName]
		bucketSecretAccessKey = secrets[secretName]
	}

	linkTTL := presigner.DefaultTTL
	if s := os.Getenv("LINK_TTL"); s != "" {
		secs, err := strconv.ParseUint(s, 10, 32)
		if err != nil || secs == 0 || time.Duration(secs)*time.Second > presigner.MaxTTL {
			panic(fmt.Errorf("parsing link ttl: %q", s))
		}
		linkTTL = time.Duration(secs) * time.Second
	}

	notifyMode, err := links.ParseNotifyMode(os.Getenv("NOTIFY_MODE"))
	if err != nil {
		panic(err)
	}
	consumeMode, err := links.ParseConsumeMode(os.Getenv("CONSUME_MODE"))
	if err != nil {
		panic(err)
	}

	notifyQueueURL := os.Getenv("NOTIFY_QUEUE_URL")
	stateMachineARN := os.Getenv("STATE_MACHINE_ARN")
	if notifyQueueURL == "" {
		stateMachineARN = mustGetEnv("STATE_MACHINE_ARN")
	}

	return Config{
		Config:                awsConfig,
		SentryDSN:             os.Getenv("SENTRY_DSN"),
		SentryEnvironment:     os.Getenv("SENTRY_ENVIRONMENT"),
		LogLevel:              normalizeLogLevel(mustGetEnv("LOG_LEVEL")),
		TableName:             mustGetEnv("TABLE_NAME"),
		Bucket:                mustGetEnv("S3_BUCKET"),
		BucketEndpoint:        os.Getenv("S3_BUCKET_ENDPOINT"),
		BucketRegion:          os.Getenv("S3_BUCKET_REGION"),
		BucketAccessKeyID:     bucketAccessKeyID,
		BucketSecretAccessKey: bucketSecretAccessKey,
		LinkTTL:               linkTTL,
		StateMachineARN:       stateMachineARN,
		NotifyQueueURL:        notifyQueueURL,
		NotifyMode:            notifyMode,
		ConsumeMode:           consumeMode,
	}
}

// Construct wires the link service to DynamoDB, S3 and Step Functions (or
// SQS when a notify queue is configured).
func Construct(cfg Config) (*links.Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s3Opts := cfg.S3Options
	if cfg.BucketRegion != "" {
		s3Opts = append(s3Opts, func(opts *s3.Options) {
			opts.Region = cfg.BucketRegion
		})
	}
	if cfg.BucketAccessKeyID != "" && cfg.BucketSecretAccessKey != "" {
		s3Opts = append(s3Opts, func(opts *s3.Options) {
			opts.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.BucketAccessKeyID,
				cfg.BucketSecretAccessKey,
				"",
			)
		})
	}
	if cfg.BucketEndpoint != "" {
		s3Opts = append(s3Opts, func(opts *s3.Options) {
			opts.BaseEndpoint = &cfg.BucketEndpoint
			opts.UsePathStyle = true
		})
	}
	linkPresigner := presigner.NewS3DownloadPresigner(s3.NewFromConfig(cfg.Config, s3Opts...), cfg.Bucket)

	grantStore := NewDynamoGrantStore(cfg.Config, cfg.TableName, cfg.DynamoOptions...)

	var accessNotifier notifier.Notifier
	if cfg.NotifyQueueURL != "" {
		log.Infof("Access events are queued to %s", cfg.NotifyQueueURL)
		accessNotifier = NewSQSAccessNotifier(cfg.Config, cfg.NotifyQueueURL, cfg.SQSOptions...)
	} else {
		accessNotifier = NewSFNAccessNotifier(cfg.Config, cfg.StateMachineARN, cfg.SFNOptions...)
	}

	opts := []links.Option{
		links.WithGrantStore(grantStore),
		links.WithPresigner(linkPresigner),
		links.WithNotifier(accessNotifier),
		links.WithBucket(cfg.Bucket),
		links.WithNotifyMode(cfg.NotifyMode),
		links.WithConsumeMode(cfg.ConsumeMode),
	}
	if cfg.LinkTTL > 0 {
		opts = append(opts, links.WithLinkTTL(cfg.LinkTTL))
	}
	if cfg.LogLevel != "" {
		opts = append(opts, links.WithLogLevel(cfg.LogLevel))
	}
	return links.New(opts...)
}
