// Package mongo wraps the MongoDB driver connection used by the document
// catalog source.
package mongo

import (
	"context"
	"fmt"

	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/config"
)

type Client struct {
	client   *driver.Client
	database *driver.Database
	cfg      config.MongoConfig
}

// New connects and pings the primary within cfg.ConnectTimeout.
func New(ctx context.Context, cfg config.MongoConfig) (*Client, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	client, err := driver.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return &Client{
		client:   client,
		database: client.Database(cfg.Database),
		cfg:      cfg,
	}, nil
}

// Collection returns the configured episode collection.
func (c *Client) Collection() *driver.Collection {
	return c.database.Collection(c.cfg.Collection)
}

// Namespace is "<database>.<collection>", used in error context.
func (c *Client) Namespace() string {
	return c.cfg.Database + "." + c.cfg.Collection
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
