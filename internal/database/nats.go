package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// ConnectNATS opens a NATS connection used for cross-instance score events.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url must not be empty")
	}

	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %w", err)
	}

	return conn, nil
}

// PingNATS reports whether the connection is currently established.
func PingNATS(conn *nats.Conn) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if status := conn.Status(); status != nats.CONNECTED {
			return fmt.Errorf("nats connection %s", status)
		}
		return nil
	}
}
