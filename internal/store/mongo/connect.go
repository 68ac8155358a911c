package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/MrSnakeDoc/multisite/internal/connect"
	"github.com/MrSnakeDoc/multisite/internal/logger"
)

// ConnectOptions defines the MongoDB client and its connection retry behavior.
type ConnectOptions struct {
	URI             string
	AppName         string
	MaxPoolSize     uint64
	ServerSelection time.Duration // server selection timeout

	Retry connect.Options
}

// Connect opens a client and waits until the primary answers a ping.
// The client is disconnected when the retry budget runs out.
func Connect(ctx context.Context, opts ConnectOptions, log logger.Logger) (*mongod.Client, error) {
	if err := opts.Retry.Validate(); err != nil {
		return nil, err
	}

	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.AppName != "" {
		clientOpts.SetAppName(opts.AppName)
	}
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.ServerSelection > 0 {
		clientOpts.SetServerSelectionTimeout(opts.ServerSelection)
	}

	client, err := mongod.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("multisite/mongo: connect: %w", err)
	}

	ping := func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	target := connect.Target{Backend: "mongodb", Addr: redactURI(opts.URI)}
	if err := connect.WithRetry(ctx, target, opts.Retry, ping, log); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// redactURI drops credentials from a connection string before logging it.
func redactURI(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	if _, host, hasCreds := strings.Cut(rest, "@"); hasCreds {
		return scheme + "://***@" + host
	}
	return uri
}
