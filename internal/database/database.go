package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"

	"ms-calendar/internal/config"
	"ms-calendar/internal/logger"
	"ms-calendar/internal/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Retry controls how Open waits for the database to come up.
type Retry struct {
	Attempts int
	Delay    time.Duration
}

var DefaultRetry = Retry{Attempts: 5, Delay: 2 * time.Second}

// Open connects to the configured database, pinging until it answers or the
// retry budget is spent.
func Open(ctx context.Context, cfg config.DatabaseConfig, retry Retry, log *logger.Logger) (*bun.DB, error) {
	driverName, dialect, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}

	var sqldb *sql.DB
	for i := 0; i < retry.Attempts; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to %s (attempt %d/%d)", cfg.Driver, i+1, retry.Attempts))

		sqldb, err = sql.Open(driverName, cfg.DSN())
		if err == nil {
			err = sqldb.PingContext(ctx)
			if err == nil {
				break
			}
			sqldb.Close()
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", cfg.Driver, err))
		if i < retry.Attempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retry.Delay):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s after %d attempts: %w", cfg.Driver, retry.Attempts, err)
	}

	if cfg.Driver == DriverSQLite {
		// a single writer avoids SQLITE_BUSY
		sqldb.SetMaxOpenConns(1)
	} else {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	log.Info("DATABASE", fmt.Sprintf("✅ %s connection successful", cfg.Driver))
	return bun.NewDB(sqldb, dialect), nil
}

func dialectFor(driver string) (string, schema.Dialect, error) {
	switch driver {
	case DriverSQLite:
		return sqliteshim.ShimName, sqlitedialect.New(), nil
	case DriverMySQL:
		return "mysql", mysqldialect.New(), nil
	case DriverPostgres:
		return "postgres", pgdialect.New(), nil
	}
	return "", nil, fmt.Errorf("unsupported database driver %q", driver)
}

// Models lists every table of the calendar schema in creation order.
func Models() []interface{} {
	return []interface{}{
		(*models.Member)(nil),
		(*models.Responsibility)(nil),
		(*models.Address)(nil),
		(*models.Event)(nil),
		(*models.EventSchedule)(nil),
		(*models.EventSlot)(nil),
		(*models.EventRegistration)(nil),
	}
}

type index struct {
	name    string
	model   interface{}
	columns []string
}

var indexes = []index{
	{"idx_events_start_date", (*models.Event)(nil), []string{"start_date"}},
	{"idx_events_organizer", (*models.Event)(nil), []string{"organizer_id"}},
	{"idx_responsibilities_member", (*models.Responsibility)(nil), []string{"member_id"}},
	{"idx_addresses_owner", (*models.Address)(nil), []string{"addressable_type", "addressable_id"}},
	{"idx_event_slots_event", (*models.EventSlot)(nil), []string{"event_id"}},
	{"idx_event_registrations_slot", (*models.EventRegistration)(nil), []string{"slot_id"}},
}

// CreateSchema creates the tables and indexes from the bun models. It is
// idempotent and meant for SQLite and development databases; production
// PostgreSQL and MySQL use the migration Runner.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// DropSchema drops every table in reverse creation order.
func DropSchema(ctx context.Context, db *bun.DB) error {
	all := Models()
	for i := len(all) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(all[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", all[i], err)
		}
	}
	return nil
}
