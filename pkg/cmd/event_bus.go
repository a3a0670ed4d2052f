package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lazi-Labs/lazi-sub001/pkg/channels/gochannel"
	"github.com/Lazi-Labs/lazi-sub001/pkg/channels/kafka"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

var ErrUnsupportedEventBus = errors.New("unsupported event bus provider")

// NewPubSub connects the watermill transport named by provider.
func NewPubSub(provider string, logger *slog.Logger, serviceName string) (message.Publisher, message.Subscriber, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, kafka.BrokersFromEnv(), serviceName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return pub, sub, nil
	case "gochannel", "":
		pub, sub := gochannel.CreateChannel(wmLogger)

		return pub, sub, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedEventBus, provider)
	}
}
