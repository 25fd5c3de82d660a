package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// DefaultWriteTimeout bounds a single insert.
const DefaultWriteTimeout = 10 * time.Second

// TimescaleSink stores accepted readings and alert outcomes in Postgres /
// TimescaleDB.
type TimescaleSink struct {
	db         *sql.DB
	tableName  string
	alertTable string
	timeout    time.Duration
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewTimescaleSink(db *sql.DB, table, alertTable string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table, alertTable: alertTable, timeout: DefaultWriteTimeout}
}

// SetWriteTimeout changes the per-insert deadline. Non-positive values are ignored.
func (t *TimescaleSink) SetWriteTimeout(d time.Duration) {
	if d > 0 {
		t.timeout = d
	}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

// EnsureSchema creates both tables when missing. Hypertable conversion is
// attempted and ignored on plain Postgres.
func (t *TimescaleSink) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS " + t.tableName + ` (
	headset_id TEXT NOT NULL DEFAULT '',
	ts TIMESTAMPTZ NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	status TEXT NOT NULL,
	PRIMARY KEY (headset_id, ts)
)`,
		"CREATE TABLE IF NOT EXISTS " + t.alertTable + ` (
	episode BIGINT NOT NULL,
	raised_at TIMESTAMPTZ NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	manual BOOLEAN NOT NULL DEFAULT FALSE,
	delivered INTEGER NOT NULL,
	errors JSONB,
	result JSONB NOT NULL
)`,
	}
	for _, stmt := range stmts {
		if _, err := t.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	// Plain Postgres has no create_hypertable.
	_, _ = t.db.ExecContext(ctx, "SELECT create_hypertable($1, 'ts', if_not_exists => TRUE)", t.tableName)
	return nil
}

func (t *TimescaleSink) WriteBatch(readings []domain.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (headset_id, ts, score, status) VALUES ")

	args := make([]any, 0, len(readings)*4)
	for i, r := range readings {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "($%d,$%d,$%d,$%d)", len(args)+1, len(args)+2, len(args)+3, len(args)+4)
		args = append(args, r.HeadsetID, r.Timestamp, float64(r.Score), r.Status.String())
	}

	b.WriteString(" ON CONFLICT (headset_id, ts) DO NOTHING")

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	if _, err := t.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert %d readings: %w", len(readings), err)
	}
	return nil
}

func (t *TimescaleSink) WriteAlert(res *domain.AlertResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal alert result: %w", err)
	}
	var errs []byte
	if res.Failed() {
		if errs, err = json.Marshal(res.ErrorStrings()); err != nil {
			return fmt.Errorf("marshal alert errors: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	_, err = t.db.ExecContext(ctx,
		"INSERT INTO "+t.alertTable+" (episode, raised_at, score, manual, delivered, errors, result) VALUES ($1,$2,$3,$4,$5,$6,$7)",
		res.Alert.Episode,
		res.Alert.Raised,
		float64(res.Alert.Reading.Score),
		res.Alert.Manual,
		res.Delivered(),
		errs,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert alert %d: %w", res.Alert.Episode, err)
	}
	return nil
}

var (
	_ ports.Sink      = (*TimescaleSink)(nil)
	_ ports.AlertSink = (*TimescaleSink)(nil)
)
