package etl

import (
	"context"
	"errors"
	"fmt"

	"github.com/BartekS5/stravaetl/internal/checkpoint"
	"github.com/BartekS5/stravaetl/internal/metrics"
	"github.com/BartekS5/stravaetl/internal/strava"
	"github.com/BartekS5/stravaetl/pkg/logger"
	"github.com/BartekS5/stravaetl/pkg/models"
	"github.com/BartekS5/stravaetl/pkg/utils"
)

// AccountResult describes what Extract did for one account.
type AccountResult struct {
	Account    string
	Status     string // one of the metrics.Status* values
	Activities []models.Document
	// Checkpoint is the stored value after the call.
	Checkpoint int64
	// Advanced reports whether the checkpoint was moved.
	Advanced bool
	// Err is the soft failure that caused a skip, if any.
	Err error
}

type Extractor struct {
	API         ActivityAPI
	Tokens      TokenProvider
	Checkpoints checkpoint.Store
	Cache       RawStore
	Log         *logger.Logger
	// PageSize is the per_page value, capped at strava.MaxPageSize.
	PageSize int
	// MaxPages stops pagination early; 0 means until a short page.
	MaxPages int
}

// Extract fetches everything newer than the account's checkpoint.
//
// Remote failures (token refresh, API status) are soft: they are logged and
// reported in the result with a nil error. Only local failures that put the
// checkpoint/cache invariant at risk are returned as errors.
func (e *Extractor) Extract(ctx context.Context, account string) (AccountResult, error) {
	return e.extract(ctx, account, nil)
}

// ExtractSince is a backfill: it fetches everything after since, ignoring the
// stored checkpoint. The checkpoint still only moves forward.
func (e *Extractor) ExtractSince(ctx context.Context, account string, since int64) (AccountResult, error) {
	return e.extract(ctx, account, &since)
}

func (e *Extractor) extract(ctx context.Context, account string, since *int64) (AccountResult, error) {
	log := e.log().ForAccount(account)
	res := AccountResult{Account: account}

	token, err := e.Tokens.AccessToken(ctx, account)
	if err != nil {
		if errors.Is(err, strava.ErrTokenStorage) {
			return res, err
		}
		log.Error().Err(err).Msg("No access token, skipping")
		res.Status = metrics.StatusCredentialFailed
		res.Err = err
		return res, nil
	}

	if err := e.fetchProfile(ctx, account, token, log); err != nil {
		return res, err
	}

	stored, err := e.Checkpoints.Get(ctx, account)
	if err != nil {
		return res, err
	}
	res.Checkpoint = stored

	after := stored
	if since != nil {
		after = *since
		log.Info().Int64("after", after).Msgf("Backfilling activities after %s", checkpoint.Format(after))
	} else {
		log.Info().Int64("after", after).Msgf("Fetching activities after %s", checkpoint.Format(after))
	}

	activities, err := e.fetchActivities(ctx, token, after)
	if err != nil {
		var apiErr *strava.APIError
		if errors.As(err, &apiErr) {
			log.Error().Int("status", apiErr.StatusCode).Str("body", apiErr.Body).Msg("Failed to fetch activities")
		} else {
			log.Error().Err(err).Msg("Failed to fetch activities")
		}
		res.Status = metrics.StatusFetchFailed
		res.Err = err
		return res, nil
	}

	log.Info().Int("count", len(activities)).Msgf("Fetched %d activities", len(activities))
	res.Status = metrics.StatusOK
	res.Activities = activities

	if len(activities) == 0 {
		return res, nil
	}

	latest, err := LatestStart(activities)
	if err != nil {
		return res, fmt.Errorf("%s: %w", account, err)
	}

	// The batch must be on disk before the watermark moves past it.
	total, err := e.Cache.MergeActivities(account, activities)
	if err != nil {
		return res, err
	}
	log.Info().Int("cached", total).Msg("Saved activities to cache")

	if latest <= stored {
		log.Info().Int64("latest", latest).Msg("Batch is not newer than the checkpoint; leaving it in place")
		return res, nil
	}

	if err := e.Checkpoints.Set(ctx, account, latest); err != nil {
		return res, err
	}
	res.Checkpoint = latest
	res.Advanced = true
	log.Info().Int64("checkpoint", latest).Msgf("Updated last run to %s", checkpoint.Format(latest))

	return res, nil
}

// fetchProfile saves the athlete profile. API failures are logged and
// skipped; cache write failures are returned.
func (e *Extractor) fetchProfile(ctx context.Context, account, token string, log *logger.Logger) error {
	profile, err := e.API.GetAthlete(ctx, token)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch athlete profile")
		return nil
	}

	if err := e.Cache.SaveProfile(account, profile); err != nil {
		return err
	}

	first, _ := profile["firstname"].(string)
	last, _ := profile["lastname"].(string)
	log.Info().Msgf("Fetched athlete profile for %s %s", first, last)
	return nil
}

// fetchActivities pages through the activity list. Any failed page fails the
// whole fetch so a partial batch never reaches the cache.
func (e *Extractor) fetchActivities(ctx context.Context, token string, after int64) ([]models.Document, error) {
	perPage := e.PageSize
	if perPage <= 0 || perPage > strava.MaxPageSize {
		perPage = strava.MaxPageSize
	}

	var all []models.Document
	for page := 1; e.MaxPages <= 0 || page <= e.MaxPages; page++ {
		batch, err := e.API.ListActivities(ctx, token, after, page, perPage)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			break
		}
	}
	return all, nil
}

func (e *Extractor) log() *logger.Logger {
	if e.Log == nil {
		return logger.Nop()
	}
	return e.Log
}

// LatestStart returns the largest start_date of the batch in epoch seconds.
func LatestStart(activities []models.Document) (int64, error) {
	var latest int64
	for i, a := range activities {
		ts, err := utils.UnixSeconds(a["start_date"])
		if err != nil {
			return 0, fmt.Errorf("activity %d: start_date: %w", i, err)
		}
		if i == 0 || ts > latest {
			latest = ts
		}
	}
	return latest, nil
}
