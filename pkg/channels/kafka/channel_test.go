package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokersFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, BrokersFromEnv())

	t.Setenv("KAFKA_BROKERS", "")
	assert.Empty(t, BrokersFromEnv())
}

func TestCreateChannel_NoBrokers(t *testing.T) {
	t.Parallel()

	_, _, err := CreateChannel(watermill.NopLogger{}, nil, "workflow-worker")
	require.ErrorIs(t, err, ErrNoBrokers)
}
