package etl

import (
	"context"
	"time"

	"github.com/BartekS5/stravaetl/internal/metrics"
	"github.com/BartekS5/stravaetl/pkg/logger"
	"github.com/BartekS5/stravaetl/pkg/models"
)

// Pipeline runs the two stages over every configured account. Accounts are
// handled one at a time, in configuration order.
type Pipeline struct {
	Accounts  []string
	Extractor *Extractor
	Cache     RawStore
	Loader    Loader
	Metrics   *metrics.Metrics
	Log       *logger.Logger
}

// ExtractSummary is what one extract or backfill run did.
type ExtractSummary struct {
	Fetched     map[string]int
	Checkpoints map[string]int64
	// Failed lists skipped accounts in processing order.
	Failed []string
}

type LoadSummary struct {
	Profiles   int
	Activities int
}

func (p *Pipeline) Extract(ctx context.Context) (ExtractSummary, error) {
	return p.eachAccount(ctx, func(account string) (AccountResult, error) {
		return p.Extractor.Extract(ctx, account)
	})
}

// Backfill refetches everything after since for every account.
func (p *Pipeline) Backfill(ctx context.Context, since time.Time) (ExtractSummary, error) {
	after := since.UTC().Unix()
	return p.eachAccount(ctx, func(account string) (AccountResult, error) {
		return p.Extractor.ExtractSince(ctx, account, after)
	})
}

func (p *Pipeline) eachAccount(ctx context.Context, run func(string) (AccountResult, error)) (ExtractSummary, error) {
	sum := ExtractSummary{
		Fetched:     make(map[string]int),
		Checkpoints: make(map[string]int64),
	}

	for _, account := range p.Accounts {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		res, err := run(account)
		if err != nil {
			return sum, err
		}
		p.record(res)

		if res.Status != metrics.StatusOK {
			sum.Failed = append(sum.Failed, account)
			continue
		}
		sum.Fetched[account] = len(res.Activities)
		sum.Checkpoints[account] = res.Checkpoint
	}

	p.log().Info().Int("accounts", len(p.Accounts)).Int("failed", len(sum.Failed)).
		Msgf("Extraction finished: %d accounts, %d skipped", len(p.Accounts), len(sum.Failed))
	return sum, nil
}

func (p *Pipeline) record(res AccountResult) {
	if p.Metrics == nil {
		return
	}
	p.Metrics.AccountsProcessed.WithLabelValues(res.Status).Inc()
	if res.Status == metrics.StatusCredentialFailed {
		return
	}
	p.Metrics.ActivitiesFetched.WithLabelValues(res.Account).Add(float64(len(res.Activities)))
	p.Metrics.Checkpoint.WithLabelValues(res.Account).Set(float64(res.Checkpoint))
}

// TransformLoad rebuilds both destination tables from the raw cache of every
// account. Everything is transformed before anything is loaded.
func (p *Pipeline) TransformLoad(ctx context.Context) (LoadSummary, error) {
	var sum LoadSummary
	log := p.log()

	var profiles []models.Document
	var batches []models.AccountBatch
	var raw []models.Document
	for _, account := range p.Accounts {
		profile, err := p.Cache.LoadProfile(account)
		if err != nil {
			return sum, err
		}
		if profile != nil {
			profiles = append(profiles, profile)
		}

		activities, err := p.Cache.LoadActivities(account)
		if err != nil {
			return sum, err
		}
		if len(activities) > 0 {
			batches = append(batches, models.AccountBatch{Account: account, Records: activities})
			raw = append(raw, activities...)
		}
	}

	if unmapped := UnmappedFields(raw); len(unmapped) > 0 {
		log.Warn().Strs("fields", unmapped).Msg("Activity fields not mapped to any column")
	}

	profileRows, err := TransformProfiles(profiles)
	if err != nil {
		return sum, err
	}
	activityRows, err := TransformActivities(batches)
	if err != nil {
		return sum, err
	}

	if len(profileRows) == 0 {
		log.Info().Msg("No athlete profiles cached")
	} else {
		if err := p.Loader.Load(ctx, models.ProfilesTable, models.ProfileSchema, models.AsRecords(profileRows)); err != nil {
			return sum, err
		}
		sum.Profiles = len(profileRows)
		p.rowsLoaded(models.ProfilesTable, sum.Profiles)
	}

	if len(activityRows) == 0 {
		log.Info().Msg("No new activities found")
		return sum, nil
	}
	if err := p.Loader.Load(ctx, models.ActivitiesTable, models.ActivitySchema, models.AsRecords(activityRows)); err != nil {
		return sum, err
	}
	sum.Activities = len(activityRows)
	p.rowsLoaded(models.ActivitiesTable, sum.Activities)

	log.Info().Int("profiles", sum.Profiles).Int("activities", sum.Activities).
		Msgf("Loaded %d profiles and %d activities", sum.Profiles, sum.Activities)
	return sum, nil
}

func (p *Pipeline) rowsLoaded(table string, n int) {
	if p.Metrics != nil {
		p.Metrics.RowsLoaded.WithLabelValues(table).Add(float64(n))
	}
}

func (p *Pipeline) log() *logger.Logger {
	if p.Log == nil {
		return logger.Nop()
	}
	return p.Log
}
