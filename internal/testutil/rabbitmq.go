package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/issouf7507-dev/codeqr-sub000/internal/events"
)

const (
	brokerUser     = "codeqr"
	brokerPassword = "codeqr"
)

// StartRabbitMQ runs a broker for the storefront events and returns a
// connection dialled the way the server dials. Broker and connection go away
// with the test.
func StartRabbitMQ(t *testing.T) *amqp.Connection {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	broker := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": brokerUser,
			"RABBITMQ_DEFAULT_PASS": brokerPassword,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("Server startup complete"),
			wait.ForListeningPort("5672/tcp"),
		).WithDeadline(90 * time.Second),
	})

	host, err := broker.Host(ctx)
	require.NoError(t, err)
	port, err := broker.MappedPort(ctx, "5672")
	require.NoError(t, err)
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/", brokerUser, brokerPassword, host, port.Port())

	// The listener can accept before the default vhost is ready.
	var conn *amqp.Connection
	require.Eventually(t, func() bool {
		conn, err = events.Dial(url)
		return err == nil
	}, 30*time.Second, 500*time.Millisecond, "dial %s", url)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}
