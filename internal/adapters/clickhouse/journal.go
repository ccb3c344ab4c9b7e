package clickhouse

import (
	"context"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"covertrack/internal/adapters/config"
	"covertrack/pkg/errors"
	"covertrack/pkg/logger"
)

const (
	journalDDL = `
		CREATE TABLE IF NOT EXISTS ws_events (
			ts      DateTime64(3, 'UTC'),
			kind    LowCardinality(String),
			symbol  String,
			payload String
		) ENGINE = MergeTree()
		ORDER BY (kind, ts)`

	defaultBatchSize = 500
	defaultMaxAge    = 5 * time.Second
)

// Entry is one journaled streaming event.
type Entry struct {
	TS      time.Time
	Kind    string
	Symbol  string
	Payload string
}

// Journal is an append-only record of every inbound streaming event, batched
// because single-row ClickHouse inserts are prohibitively slow. The journal
// is optional: a nil *Journal is safe to call.
type Journal struct {
	conn driver.Conn
	log  *logger.Logger

	mu        sync.Mutex
	buffer    []Entry
	batchSize int
	maxAge    time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewJournal connects to ClickHouse and ensures the events table exists.
func NewJournal(cfg config.ClickHouseConfig) (*Journal, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr()},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect clickhouse")
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, errors.Wrap(err, "ping clickhouse")
	}
	if err := conn.Exec(context.Background(), journalDDL); err != nil {
		return nil, errors.Wrap(err, "create ws_events table")
	}

	j := &Journal{
		conn:      conn,
		log:       logger.Get().With("component", "journal"),
		buffer:    make([]Entry, 0, defaultBatchSize),
		batchSize: defaultBatchSize,
		maxAge:    defaultMaxAge,
		stopCh:    make(chan struct{}),
	}

	j.wg.Add(1)
	go j.flushLoop()

	return j, nil
}

// Record buffers one event, flushing when the batch fills.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if j == nil {
		return nil
	}

	j.mu.Lock()
	j.buffer = append(j.buffer, e)
	full := len(j.buffer) >= j.batchSize
	j.mu.Unlock()

	if full {
		return j.Flush(ctx)
	}
	return nil
}

// Flush writes all buffered entries.
func (j *Journal) Flush(ctx context.Context) error {
	if j == nil {
		return nil
	}

	j.mu.Lock()
	if len(j.buffer) == 0 {
		j.mu.Unlock()
		return nil
	}
	batch := j.buffer
	j.buffer = make([]Entry, 0, j.batchSize)
	j.mu.Unlock()

	insert, err := j.conn.PrepareBatch(ctx, "INSERT INTO ws_events (ts, kind, symbol, payload)")
	if err != nil {
		return errors.Wrap(err, "prepare journal batch")
	}
	for _, e := range batch {
		if err := insert.Append(e.TS, e.Kind, e.Symbol, e.Payload); err != nil {
			return errors.Wrap(err, "append journal row")
		}
	}
	if err := insert.Send(); err != nil {
		return errors.Wrapf(err, "flush %d journal rows", len(batch))
	}

	j.log.Debugf("flushed %d journal rows", len(batch))
	return nil
}

func (j *Journal) flushLoop() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.maxAge)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := j.Flush(ctx); err != nil {
				j.log.Errorf("periodic flush failed: %v", err)
			}
			cancel()
		}
	}
}

// Close flushes remaining entries and shuts the journal down.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}

	close(j.stopCh)
	j.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := j.Flush(ctx); err != nil {
		return err
	}
	return j.conn.Close()
}
