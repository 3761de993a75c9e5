package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/disgoorg/productivity-bot/internal/domain/logger"
	"github.com/disgoorg/productivity-bot/prodbot/database/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
	schemaVersion        = 1 // bump when schema/migrations change

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	PoolSize     int
	MaxIdleConns int
	MaxLifetime  time.Duration
	Path         string // sqlite file or DSN
}

// DB holds the bun handle used by repositories. For Postgres a pgx pool is
// kept alongside it for raw statements and pool stats.
type DB struct {
	driver string
	pool   *pgxpool.Pool
	bunDB  *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case DriverSQLite:
		db, err = newSQLite(cfg.Path)
	case DriverPostgres, "":
		db, err = newPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	db.bunDB.AddQueryHook(logger.NewQueryHook())
	return db, nil
}

func newPostgres(ctx context.Context, cfg DBConfig) (*DB, error) {
	// Add retry logic for initial connection
	var conn net.Conn
	var err error

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	for i := 0; i < defaultMaxRetries; i++ {
		conn, err = net.DialTimeout("tcp", addr, defaultConnTimeout)
		if err == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}
	_ = conn.Close()

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	// Configure pool settings
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{driver: DriverPostgres, pool: pool, bunDB: newBunDB(pool)}, nil
}

// Helper function to build connection string
func buildConnString(cfg DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
}

func newBunDB(pool *pgxpool.Pool) *bun.DB {
	// Default to disabling SSL for Bun unless explicitly overridden by env
	sslMode := os.Getenv("PG_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	connCfg := pool.Config().ConnConfig
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		connCfg.User,
		connCfg.Password,
		connCfg.Host,
		connCfg.Port,
		connCfg.Database,
		sslMode,
	)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func newSQLite(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows a single writer; serialize access instead of hitting SQLITE_BUSY.
	sqldb.SetMaxOpenConns(1)

	return &DB{driver: DriverSQLite, bunDB: bun.NewDB(sqldb, sqlitedialect.New())}, nil
}

// NewFromBun wraps an existing bun handle, used by tests.
func NewFromBun(bunDB *bun.DB) *DB {
	driver := DriverPostgres
	if bunDB.Dialect().Name() == dialect.SQLite {
		driver = DriverSQLite
	}
	return &DB{driver: driver, bunDB: bunDB}
}

func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) GetPool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

// ExecWithLog runs a raw statement and logs its outcome.
func (db *DB) ExecWithLog(ctx context.Context, query string, args ...interface{}) (int64, error) {
	start := time.Now()

	var (
		affected int64
		err      error
	)
	if db.pool != nil {
		tag, execErr := db.pool.Exec(ctx, query, args...)
		affected, err = tag.RowsAffected(), execErr
	} else {
		res, execErr := db.bunDB.ExecContext(ctx, query, args...)
		err = execErr
		if err == nil {
			affected, _ = res.RowsAffected()
		}
	}
	duration := time.Since(start)

	if err != nil {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("operation", "exec"),
			slog.String("query", query),
			slog.Any("args", args),
			slog.Duration("took", duration),
			slog.Any("error", err),
		)
		return affected, err
	}

	slog.Debug("Query executed",
		slog.String("type", "db"),
		slog.String("operation", "exec"),
		slog.String("query", query),
		slog.Duration("took", duration),
		slog.Int64("affected_rows", affected),
	)
	return affected, nil
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.bunDB != nil {
		db.bunDB.Close()
	}
}

// Ping verifies the database connections are working
func (db *DB) Ping(ctx context.Context) error {
	if db.pool != nil {
		if err := db.pool.Ping(ctx); err != nil {
			return fmt.Errorf("pgxpool ping failed: %w", err)
		}
	}

	if err := db.bunDB.PingContext(ctx); err != nil {
		return fmt.Errorf("bun ping failed: %w", err)
	}

	return nil
}

// Stats summarizes connection usage for /status.
type Stats struct {
	Driver      string
	OpenConns   int
	InUse       int
	Idle        int
	AcquireWait time.Duration
}

func (db *DB) Stats() Stats {
	if db.pool != nil {
		s := db.pool.Stat()
		return Stats{
			Driver:      db.driver,
			OpenConns:   int(s.TotalConns()),
			InUse:       int(s.AcquiredConns()),
			Idle:        int(s.IdleConns()),
			AcquireWait: s.AcquireDuration(),
		}
	}

	s := db.bunDB.DB.Stats()
	return Stats{
		Driver:      db.driver,
		OpenConns:   s.OpenConnections,
		InUse:       s.InUse,
		Idle:        s.Idle,
		AcquireWait: s.WaitDuration,
	}
}

// InitializeSchema creates all required database tables and indexes
func (db *DB) InitializeSchema(ctx context.Context) error {
	if db.driver == DriverSQLite {
		if _, err := db.ExecWithLog(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	// Create tables in the correct order to handle foreign key constraints
	tables := []interface{}{
		(*models.Countdown)(nil),
		(*models.Reminder)(nil),
		(*models.ScheduledMessage)(nil),
		(*models.Poll)(nil),
		(*models.Task)(nil),
	}

	for _, model := range tables {
		if _, err := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if _, err := db.bunDB.NewCreateTable().
		Model((*models.PollVote)(nil)).
		IfNotExists().
		ForeignKey(`("poll_id") REFERENCES "polls" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_countdowns_status_target ON countdowns(status, target_at);",
		"CREATE INDEX IF NOT EXISTS idx_countdowns_guild ON countdowns(guild_id, status);",
		"CREATE INDEX IF NOT EXISTS idx_reminders_status_remind ON reminders(status, remind_at);",
		"CREATE INDEX IF NOT EXISTS idx_reminders_user ON reminders(user_id, status);",
		"CREATE INDEX IF NOT EXISTS idx_scheduled_messages_status_send ON scheduled_messages(status, send_at);",
		"CREATE INDEX IF NOT EXISTS idx_scheduled_messages_guild ON scheduled_messages(guild_id, status);",
		"CREATE INDEX IF NOT EXISTS idx_polls_status_expires ON polls(status, expires_at);",
		"CREATE INDEX IF NOT EXISTS idx_polls_message ON polls(message_id);",
		"CREATE INDEX IF NOT EXISTS idx_poll_votes_poll ON poll_votes(poll_id);",
		"CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(user_id, guild_id, completed);",
	}

	for _, idx := range indexes {
		if _, err := db.ExecWithLog(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// Update schema version marker (safe upsert)
	if err := db.ensureAppMeta(ctx); err != nil {
		return fmt.Errorf("failed to create app_meta: %w", err)
	}
	return db.setAppMeta(ctx, "schema_version", fmt.Sprintf("%d", schemaVersion))
}

// ensureAppMeta creates the app_meta table if not exists
func (db *DB) ensureAppMeta(ctx context.Context) error {
	_, err := db.ExecWithLog(ctx, `CREATE TABLE IF NOT EXISTS app_meta (key TEXT PRIMARY KEY, value TEXT)`)
	return err
}

// SchemaVersion returns the stored schema version, or "" before the first migration.
func (db *DB) SchemaVersion(ctx context.Context) (string, error) {
	var v string
	err := db.bunDB.NewSelect().
		Table("app_meta").
		Column("value").
		Where("key = ?", "schema_version").
		Scan(ctx, &v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (db *DB) setAppMeta(ctx context.Context, key, value string) error {
	_, err := db.bunDB.NewRaw(
		`INSERT INTO app_meta(key, value) VALUES(?, ?)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value,
	).Exec(ctx)
	return err
}
