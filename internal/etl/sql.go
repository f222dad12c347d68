package etl

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/BartekS5/stravaetl/pkg/database"
	"github.com/BartekS5/stravaetl/pkg/logger"
	"github.com/BartekS5/stravaetl/pkg/models"
)

// Dialect covers the SQL differences between the supported engines.
type Dialect int

const (
	Postgres Dialect = iota
	SQLServer
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case database.DriverPostgres:
		return Postgres, nil
	case database.DriverSQLServer:
		return SQLServer, nil
	default:
		return 0, fmt.Errorf("no SQL dialect for driver %q", driver)
	}
}

func (d Dialect) String() string {
	if d == SQLServer {
		return "sqlserver"
	}
	return "postgres"
}

func (d Dialect) placeholder(n int) string {
	if d == SQLServer {
		return fmt.Sprintf("@p%d", n)
	}
	return fmt.Sprintf("$%d", n)
}

func (d Dialect) columnType(k models.Kind) string {
	if d == SQLServer {
		switch k {
		case models.KindBigInt:
			return "BIGINT"
		case models.KindInt:
			return "INT"
		case models.KindFloat:
			return "FLOAT"
		case models.KindBool:
			return "BIT"
		case models.KindTimestamp:
			return "DATETIMEOFFSET"
		default:
			return "NVARCHAR(MAX)"
		}
	}
	switch k {
	case models.KindBigInt:
		return "BIGINT"
	case models.KindInt:
		return "INTEGER"
	case models.KindFloat:
		return "DOUBLE PRECISION"
	case models.KindBool:
		return "BOOLEAN"
	case models.KindTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// CreateTableSQL returns an idempotent CREATE TABLE statement for schema.
func (d Dialect) CreateTableSQL(table string, schema models.Schema) string {
	defs := make([]string, len(schema))
	for i, c := range schema {
		def := c.Name + " " + d.columnType(c.Kind)
		if c.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs[i] = def
	}
	body := strings.Join(defs, ", ")

	if d == SQLServer {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)", table, table, body)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, body)
}

func (d Dialect) InsertSQL(table string, schema models.Schema) string {
	placeholders := make([]string, len(schema))
	for i := range schema {
		placeholders[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(schema.Names(), ", "), strings.Join(placeholders, ", "))
}

func (d Dialect) DeleteSQL(table string) string {
	return "DELETE FROM " + table
}

// SQLLoader replaces a table's contents inside one transaction, so readers
// see either the previous rows or the new ones.
type SQLLoader struct {
	DB      *sql.DB
	Dialect Dialect
	Log     *logger.Logger
}

func NewSQLLoader(db *sql.DB, driver string, log *logger.Logger) (*SQLLoader, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLLoader{DB: db, Dialect: d, Log: log}, nil
}

func (l *SQLLoader) Load(ctx context.Context, table string, schema models.Schema, records []models.Record) error {
	if err := ValidateTableName(table); err != nil {
		return err
	}
	if err := ValidateBatch(schema, records); err != nil {
		return fmt.Errorf("%s: %w", table, err)
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, l.Dialect.CreateTableSQL(table, schema)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, l.Dialect.DeleteSQL(table)); err != nil {
		return fmt.Errorf("failed to clear table %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, l.Dialect.InsertSQL(table, schema))
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Values()...); err != nil {
			return fmt.Errorf("failed to insert id %d into %s: %w", r.Key(), table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}

	l.log().Info().Str("table", table).Str("dialect", l.Dialect.String()).Int("rows", len(records)).
		Msgf("Replaced %s with %d rows", table, len(records))
	return nil
}

func (l *SQLLoader) log() *logger.Logger {
	if l.Log == nil {
		return logger.Nop()
	}
	return l.Log
}
