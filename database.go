package keybot

import (
	"context"
	"database/sql"
	"io/fs"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

const migrationsDir = "data/sql/migrations"

var registerModels sync.Once

// persistenceConfig feeds the persistence client from the store settings
type persistenceConfig struct {
	driver string
	dsn    string
}

func (c persistenceConfig) GetDebug() bool { return false }

func (c persistenceConfig) GetDriver() string { return c.driver }

func (c persistenceConfig) GetServer() string { return c.dsn }

func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }

func (c persistenceConfig) GetOtelIdentifier() string { return "" }

// Database is the persistence client backing BunStore
type Database struct {
	client *persistence.Client
}

// OpenDatabase connects to postgres or sqlite through the persistence client
func OpenDatabase(driver, dsn string) (*Database, error) {
	var (
		sqldb   *sql.DB
		dialect schema.Dialect
	)

	switch driver {
	case StoreDriverPostgres:
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		dialect = pgdialect.New()
	case StoreDriverSQLite:
		db, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
		}
		// sqlite serializes writers, a single connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
		sqldb = db
		dialect = sqlitedialect.New()
	default:
		return nil, goerrors.New("unsupported database driver", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"driver": driver})
	}

	registerModels.Do(func() {
		persistence.RegisterModel((*RegistrationKey)(nil))
		persistence.RegisterModel((*Credential)(nil))
	})

	client, err := persistence.New(persistenceConfig{driver: driver, dsn: dsn}, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create persistence client").
			WithMetadata(map[string]any{"driver": driver})
	}

	return &Database{client: client}, nil
}

// DB returns the bun handle
func (d *Database) DB() *bun.DB {
	return d.client.DB()
}

func (d *Database) Close() error {
	return d.client.DB().Close()
}

// MigrateSchema registers the embedded migrations, checks them against both
// dialects and applies what is pending. Running it again is a no-op.
func (d *Database) MigrateSchema(ctx context.Context) error {
	migrationsFS, err := fs.Sub(GetMigrationsFS(), migrationsDir)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load migrations")
	}

	d.client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel(migrationsDir),
		persistence.WithValidationTargets(StoreDriverPostgres, StoreDriverSQLite),
	)
	if err := d.client.ValidateDialects(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "migrations are not valid for every dialect")
	}

	if err := d.client.Migrate(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migrations")
	}
	return nil
}
