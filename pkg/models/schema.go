package models

// Kind is the logical type of a destination column. Loaders map it onto the
// native type of their storage engine.
type Kind int

const (
	KindBigInt Kind = iota
	KindInt
	KindFloat
	KindText
	KindBool
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindBigInt:
		return "bigint"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

type Column struct {
	Name       string
	Kind       Kind
	PrimaryKey bool
}

// Schema is an ordered column list. Record.Values returns values in the same
// order.
type Schema []Column

func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Key returns the primary key column.
func (s Schema) Key() (Column, bool) {
	for _, c := range s {
		if c.PrimaryKey {
			return c, true
		}
	}
	return Column{}, false
}

// Record is one row destined for a table described by a Schema.
type Record interface {
	Key() int64
	Values() []interface{}
}

func AsRecords[R Record](rows []R) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// nullable turns a nil pointer into an untyped nil so every driver sees NULL.
func nullable[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
