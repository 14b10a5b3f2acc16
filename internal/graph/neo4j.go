package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/config"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/metrics"
)

// Client executes pattern specs against a Neo4j store. The driver pools
// connections internally; a session is acquired per Run call and released
// on every exit path, so concurrent detector calls share the pool safely.
type Client struct {
	driver  neo4j.Driver
	dbName  string
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient connects to the graph store and verifies connectivity.
func NewClient(ctx context.Context, cfg config.GraphConfig, logger *slog.Logger, m *metrics.Metrics) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver, err := neo4j.NewDriver(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: verify connectivity: %v", ErrUnavailable, err)
	}

	logger.Info("graph store connected", "uri", cfg.URI, "database", cfg.Database)

	return &Client{
		driver:  driver,
		dbName:  cfg.Database,
		timeout: cfg.QueryTimeout,
		logger:  logger,
		metrics: m,
	}, nil
}

// Run executes a registered spec in a read session.
func (c *Client) Run(ctx context.Context, spec PatternSpec, params Params) ([]Row, error) {
	if err := spec.ValidateParams(params); err != nil {
		return nil, err
	}

	queryCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()

	session := c.driver.NewSession(queryCtx, neo4j.SessionConfig{
		DatabaseName: c.dbName,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(queryCtx)

	records, err := session.ExecuteRead(queryCtx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(queryCtx, spec.Cypher(), params)
		if err != nil {
			return nil, err
		}
		return res.Collect(queryCtx)
	})

	duration := time.Since(start)
	if err != nil {
		c.metrics.ObserveQuery(spec.Name(), "error", duration)
		c.logger.Warn("graph query failed",
			"spec", spec.Name(),
			"duration", duration,
			"err", err,
		)
		return nil, fmt.Errorf("%w: spec %q: %v", ErrUnavailable, spec.Name(), err)
	}
	c.metrics.ObserveQuery(spec.Name(), "success", duration)

	recs, ok := records.([]*neo4j.Record)
	if !ok {
		return nil, fmt.Errorf("%w: spec %q: unexpected result type %T", ErrUnavailable, spec.Name(), records)
	}

	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, Row(rec.AsMap()))
	}
	return rows, nil
}

// Ping verifies the store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the driver and its connection pool.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}
