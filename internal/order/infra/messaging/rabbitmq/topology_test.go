package rabbitmq_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fqueis/moutsti-order-service/internal/order/config"
	"github.com/fqueis/moutsti-order-service/internal/order/infra/messaging/rabbitmq"
)

func TestNextDelay_ExponentialBackoffCappedAtMaxInterval(t *testing.T) {
	retry := config.RetryConfig{
		InitialInterval: time.Second,
		Multiplier:      2.0,
		MaxInterval:     5 * time.Second,
	}

	assert.Equal(t, time.Second, rabbitmq.NextDelay(retry, 1))
	assert.Equal(t, 2*time.Second, rabbitmq.NextDelay(retry, 2))
	assert.Equal(t, 4*time.Second, rabbitmq.NextDelay(retry, 3))
	assert.Equal(t, 5*time.Second, rabbitmq.NextDelay(retry, 4), "delay must cap at MaxInterval once the multiplier would exceed it")
}
