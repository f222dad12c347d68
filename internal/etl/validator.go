package etl

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/BartekS5/stravaetl/pkg/models"
)

var (
	ErrDuplicateKey = errors.New("duplicate primary key")
	ErrInvalidTable = errors.New("invalid table name")
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateTableName only accepts plain identifiers. Table names are spliced
// into DDL and DML, so nothing that needs quoting gets through.
func ValidateTableName(table string) error {
	if !identifier.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return nil
}

// ValidateBatch checks that the schema has a key, every record matches the
// schema width and no key appears twice.
func ValidateBatch(schema models.Schema, records []models.Record) error {
	if _, ok := schema.Key(); !ok {
		return errors.New("schema has no primary key column")
	}
	for _, c := range schema {
		if !identifier.MatchString(c.Name) {
			return fmt.Errorf("invalid column name %q", c.Name)
		}
	}

	seen := make(map[int64]int, len(records))
	for i, r := range records {
		if n := len(r.Values()); n != len(schema) {
			return fmt.Errorf("record #%d has %d values, schema has %d columns", i, n, len(schema))
		}
		if first, dup := seen[r.Key()]; dup {
			return fmt.Errorf("%w: id %d at records #%d and #%d", ErrDuplicateKey, r.Key(), first, i)
		}
		seen[r.Key()] = i
	}
	return nil
}
