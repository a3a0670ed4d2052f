package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs/redisqueue"
	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs/watermillqueue"
	"github.com/ThreeDotsLabs/watermill/message"
)

const outboundTopicPrefix = "fieldservice.jobs."

// Queues holds the job backends of a process.
type Queues struct {
	// Redis carries workflow executions and every delayed job.
	Redis *redisqueue.Queue
	// Router is the queue handed to the engine and action handlers.
	Router *jobs.Router
}

// NewQueues connects the Redis job queue. When an outbound publisher is given, notification and
// outbound sync jobs are published on it instead of Redis.
func NewQueues(
	ctx context.Context,
	logger *slog.Logger,
	redisURL string,
	config redisqueue.Config,
	outbound message.Publisher,
) (*Queues, error) {
	redisQueue, err := redisqueue.Connect(ctx, redisURL, logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect job queue: %w", err)
	}

	router := jobs.NewRouter(redisQueue)

	if outbound != nil {
		external := watermillqueue.New(outbound, nil, outboundTopicPrefix, logger)
		router.
			Route(jobs.QueueNotifications, external).
			Route(jobs.QueueOutboundSync, external)
	}

	return &Queues{Redis: redisQueue, Router: router}, nil
}
