package connectors

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabiq-ai/tabiq-engine/pkg/dataset"
)

// PostgresConnector registers the result of a read-only query as a
// dataset. It never materializes whole tables implicitly; the caller
// supplies the query.
type PostgresConnector struct {
	connString string
	opts       Options
	pool       *pgxpool.Pool
}

var _ Connector = (*PostgresConnector)(nil)

func NewPostgres(connString string, opts Options) *PostgresConnector {
	return &PostgresConnector{connString: connString, opts: opts}
}

func (c *PostgresConnector) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, c.connString)
	if err != nil {
		return fmt.Errorf("configure postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}
	c.pool = pool
	return nil
}

func (c *PostgresConnector) Read(ctx context.Context, query string) ([]*dataset.Dataset, error) {
	if c.pool == nil {
		return nil, fmt.Errorf("connector not connected")
	}
	if query == "" {
		return nil, fmt.Errorf("postgres connector requires a query")
	}

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = string(d.Name)
	}

	var data [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]any, len(cols))
		copy(row, values)
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	name := c.opts.Name
	if name == "" {
		name = "query_result"
	}
	ds := dataset.New(name, c.opts.Description, cols, data)
	return []*dataset.Dataset{finalize(ds, c.opts)}, nil
}

func (c *PostgresConnector) Close() error {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
	return nil
}

func (c *PostgresConnector) IsConnected() bool { return c.pool != nil }
