package etl

import (
	"context"

	"github.com/BartekS5/stravaetl/pkg/models"
)

// ActivityAPI is the slice of the Strava API the extractor needs.
type ActivityAPI interface {
	GetAthlete(ctx context.Context, accessToken string) (models.Document, error)
	ListActivities(ctx context.Context, accessToken string, after int64, page, perPage int) ([]models.Document, error)
}

type TokenProvider interface {
	AccessToken(ctx context.Context, account string) (string, error)
}

// RawStore holds the raw documents between extraction and transformation.
type RawStore interface {
	SaveProfile(account string, profile models.Document) error
	LoadProfile(account string) (models.Document, error)
	MergeActivities(account string, batch []models.Document) (int, error)
	LoadActivities(account string) ([]models.Document, error)
}

// Loader replaces the contents of a destination table.
type Loader interface {
	Load(ctx context.Context, table string, schema models.Schema, records []models.Record) error
}
