// Package convlog is the append-only conversation/business event log backing
// the analytics dashboard. Appends are fire-and-forget from the reply path.
package convlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/aryanranjan/aria/brain/contract"
)

type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// Record is one persisted event row.
type Record struct {
	bun.BaseModel `bun:"table:conversation_events,alias:ce"`

	ID        string    `bun:"id,pk"`
	Type      string    `bun:"type,notnull"`
	UserID    string    `bun:"user_id,notnull"`
	Role      string    `bun:"role"`
	Content   string    `bun:"content"`
	Channel   string    `bun:"channel"`
	Amount    int       `bun:"amount"`
	Timestamp time.Time `bun:"timestamp,notnull"`
}

// Postgres persists events through bun.
type Postgres struct {
	db      *bun.DB
	timeout time.Duration
}

var _ contractx.ConversationLog = (*Postgres)(nil)

func NewPostgres(cfg Config) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("conversation log dsn is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &Postgres{db: db, timeout: timeout}, nil
}

// Init creates the event table when it does not exist yet.
func (p *Postgres) Init(ctx context.Context) error {
	_, err := p.db.NewCreateTable().
		Model((*Record)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create conversation_events table: %w", err)
	}
	return nil
}

// Append inserts one event. Callers treat failure as non-fatal; the reply
// path never blocks on this store.
func (p *Postgres) Append(ctx context.Context, event contractx.Event) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	record := &Record{
		ID:        uuid.NewString(),
		Type:      string(event.Type),
		UserID:    event.UserID,
		Role:      event.Role,
		Content:   event.Content,
		Channel:   event.Channel,
		Amount:    event.Amount,
		Timestamp: ts.UTC(),
	}
	if _, err := p.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
