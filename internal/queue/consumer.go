package queue

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/timmy/memflow/internal/config"
	"github.com/timmy/memflow/internal/logger"
	"github.com/timmy/memflow/internal/notification"
	"github.com/timmy/memflow/internal/service"
)

// receiveBackoff is the pause after a failed receive before polling again,
// so a broken queue connection does not spin the loop.
const receiveBackoff = 5 * time.Second

// QueueClient is the subset of the SQS API the consumer uses, so tests can
// substitute a fake. *sqs.Client satisfies it.
type QueueClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls the notification queue and feeds each message through
// the pipeline. Messages are deleted only after a successful invocation;
// failed ones stay on the queue for redelivery by the queue's own policy.
type Consumer struct {
	client   QueueClient
	queueURL string
	waitTime int32
	pipeline *service.Pipeline
}

// NewConsumer builds a consumer from the queue configuration, using the
// default AWS credential chain.
func NewConsumer(ctx context.Context, cfg config.QueueConfig, pipeline *service.Pipeline) (*Consumer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("queue URL is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewConsumerWithClient(sqs.NewFromConfig(awsCfg), cfg.URL, cfg.WaitTimeSeconds, pipeline), nil
}

// NewConsumerWithClient builds a consumer around an injected queue client.
func NewConsumerWithClient(client QueueClient, queueURL string, waitTime int32, pipeline *service.Pipeline) *Consumer {
	if waitTime <= 0 {
		waitTime = 20
	}

	return &Consumer{
		client:   client,
		queueURL: queueURL,
		waitTime: waitTime,
		pipeline: pipeline,
	}
}

// Run polls until the context is cancelled. Each message becomes one
// single-record event, matching the queue's batch size of one.
func (c *Consumer) Run(ctx context.Context) error {
	logger.CtxInfo(ctx, "Queue consumer started, polling %s", c.queueURL)

	for {
		select {
		case <-ctx.Done():
			logger.CtxInfo(ctx, "Queue consumer stopping")
			return ctx.Err()
		default:
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     c.waitTime,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.FromContext(ctx).WithError(err).Error("Failed to receive messages")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(receiveBackoff):
			}
			continue
		}

		for _, msg := range out.Messages {
			c.handle(ctx, msg.MessageId, msg.Body, msg.ReceiptHandle)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, messageID, body, receiptHandle *string) {
	msgCtx := logger.SetRequestID(logger.SetComponent(ctx, "worker"), aws.ToString(messageID))

	evt := &notification.Event{
		Records: []notification.Record{{
			MessageID: aws.ToString(messageID),
			Body:      aws.ToString(body),
		}},
	}

	result := c.pipeline.ProcessEvent(msgCtx, evt)
	if result.StatusCode != http.StatusOK {
		// Leave the message on the queue; visibility timeout expiry will
		// redeliver it or route it to the dead-letter queue.
		logger.CtxWarn(msgCtx, "Message processing failed with status %d, leaving for redelivery", result.StatusCode)
		return
	}

	if _, err := c.client.DeleteMessage(msgCtx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: receiptHandle,
	}); err != nil {
		logger.FromContext(msgCtx).WithError(err).Error("Failed to delete processed message")
	}
}
