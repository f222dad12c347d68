package etl

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/BartekS5/stravaetl/pkg/models"
	"github.com/BartekS5/stravaetl/pkg/utils"
)

// Unit conversion factors applied during transformation.
const (
	MetersToMiles    = 0.000621371
	MetersToFeet     = 3.28084
	SecondsPerMinute = 60
)

// DroppedActivityFields are present in the API payload but not loaded.
// The coordinate pairs are covered by the map polyline.
var DroppedActivityFields = []string{"resource_state", "has_kudoed", "total_photo_count", "start_latlng", "end_latlng"}

// nestedActivityFields are flattened into athlete_* and map_* columns.
var nestedActivityFields = []string{"athlete", "map"}

// TransformActivities flattens the cached activities of every account into
// one row list, in batch order. It has no side effects.
func TransformActivities(batches []models.AccountBatch) ([]models.ActivityRow, error) {
	var rows []models.ActivityRow
	for _, b := range batches {
		for i, doc := range b.Records {
			row, err := transformActivity(doc)
			if err != nil {
				return nil, fmt.Errorf("%s activity #%d: %w", b.Account, i, err)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// TransformProfiles projects raw profiles onto ProfileSchema.
func TransformProfiles(profiles []models.Document) ([]models.ProfileRow, error) {
	rows := make([]models.ProfileRow, 0, len(profiles))
	for i, doc := range profiles {
		row, err := transformProfile(doc)
		if err != nil {
			return nil, fmt.Errorf("profile #%d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// UnmappedFields lists raw activity fields that are neither loaded nor known
// to be dropped. A non-empty result means the API grew new fields.
func UnmappedFields(docs []models.Document) []string {
	known := make(map[string]bool)
	for _, c := range models.ActivitySchema {
		known[c.Name] = true
	}
	for _, f := range DroppedActivityFields {
		known[f] = true
	}
	for _, f := range nestedActivityFields {
		known[f] = true
	}

	seen := make(map[string]bool)
	var out []string
	for _, d := range docs {
		for k := range d {
			if !known[k] && !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}

func transformActivity(d models.Document) (models.ActivityRow, error) {
	f := fieldReader{doc: d}
	var r models.ActivityRow

	r.ID = f.requiredInt("id")
	distance := f.requiredFloat("distance")
	moving := f.requiredFloat("moving_time")
	elapsed := f.requiredFloat("elapsed_time")
	elevation := f.requiredFloat("total_elevation_gain")
	r.StartDate = f.requiredTime("start_date")
	r.StartDateLocal = f.requiredTime("start_date_local")

	r.DistanceMiles = distance * MetersToMiles
	r.MovingTimeMinutes = moving / SecondsPerMinute
	r.ElapsedTimeMinutes = elapsed / SecondsPerMinute
	r.TotalElevationGainFeet = elevation * MetersToFeet

	r.Name = f.text("name")
	r.Type = f.text("type")
	r.SportType = f.text("sport_type")
	r.WorkoutType = f.text("workout_type")
	r.Timezone = f.text("timezone")
	r.UTCOffset = f.integer("utc_offset")
	r.LocationCity = f.text("location_city")
	r.LocationState = f.text("location_state")
	r.LocationCountry = f.text("location_country")
	r.AchievementCount = f.integer("achievement_count")
	r.KudosCount = f.integer("kudos_count")
	r.CommentCount = f.integer("comment_count")
	r.AthleteCount = f.integer("athlete_count")
	r.PhotoCount = f.integer("photo_count")
	r.Trainer = f.boolean("trainer")
	r.Commute = f.boolean("commute")
	r.Manual = f.boolean("manual")
	r.Private = f.boolean("private")
	r.Visibility = f.text("visibility")
	r.Flagged = f.boolean("flagged")
	r.GearID = f.text("gear_id")
	r.AverageSpeed = f.float("average_speed")
	r.MaxSpeed = f.float("max_speed")
	r.HasHeartrate = f.boolean("has_heartrate")
	r.AverageHeartrate = f.float("average_heartrate")
	r.MaxHeartrate = f.float("max_heartrate")
	r.HeartrateOptOut = f.boolean("heartrate_opt_out")
	r.DisplayHideHeartrateOption = f.boolean("display_hide_heartrate_option")
	r.ElevHigh = f.float("elev_high")
	r.ElevLow = f.float("elev_low")
	r.UploadID = f.integer("upload_id")
	r.UploadIDStr = f.text("upload_id_str")
	r.ExternalID = f.text("external_id")
	r.FromAcceptedTag = f.boolean("from_accepted_tag")
	r.PRCount = f.integer("pr_count")

	if athlete := d.Object("athlete"); athlete != nil {
		a := fieldReader{doc: athlete, prefix: "athlete."}
		r.AthleteID = a.integer("id")
		r.AthleteResourceState = a.integer("resource_state")
		f.absorb(a)
	}
	if m := d.Object("map"); m != nil {
		mr := fieldReader{doc: m, prefix: "map."}
		r.MapID = mr.text("id")
		r.MapSummaryPolyline = mr.text("summary_polyline")
		r.MapResourceState = mr.integer("resource_state")
		f.absorb(mr)
	}

	return r, f.err
}

func transformProfile(d models.Document) (models.ProfileRow, error) {
	f := fieldReader{doc: d}
	r := models.ProfileRow{
		ID:            f.requiredInt("id"),
		Username:      f.text("username"),
		ResourceState: f.integer("resource_state"),
		Firstname:     f.text("firstname"),
		Lastname:      f.text("lastname"),
		Bio:           f.text("bio"),
		City:          f.text("city"),
		State:         f.text("state"),
		Country:       f.text("country"),
		Sex:           f.text("sex"),
		Premium:       f.boolean("premium"),
		Summit:        f.boolean("summit"),
		CreatedAt:     f.timestamp("created_at"),
		UpdatedAt:     f.timestamp("updated_at"),
		BadgeTypeID:   f.integer("badge_type_id"),
		Weight:        f.float("weight"),
		ProfileMedium: f.text("profile_medium"),
		Profile:       f.text("profile"),
		Friend:        f.boolean("friend"),
		Follower:      f.boolean("follower"),
	}
	return r, f.err
}

var errMissing = errors.New("missing")

// fieldReader pulls typed values out of a document and keeps the first
// conversion error, so projections read as a flat list of assignments.
// Optional accessors return nil for absent or null fields.
type fieldReader struct {
	doc    models.Document
	prefix string
	err    error
}

func (f *fieldReader) fail(key string, err error) {
	if f.err == nil {
		f.err = fmt.Errorf("field %q: %w", f.prefix+key, err)
	}
}

func (f *fieldReader) absorb(other fieldReader) {
	if f.err == nil {
		f.err = other.err
	}
}

func (f *fieldReader) value(key string, required bool) (interface{}, bool) {
	v, ok := f.doc[key]
	if !ok || v == nil {
		if required {
			f.fail(key, errMissing)
		}
		return nil, false
	}
	return v, true
}

func (f *fieldReader) requiredInt(key string) int64 {
	v, ok := f.value(key, true)
	if !ok {
		return 0
	}
	i, err := utils.ConvertToInt64(v)
	if err != nil {
		f.fail(key, err)
	}
	return i
}

func (f *fieldReader) requiredFloat(key string) float64 {
	v, ok := f.value(key, true)
	if !ok {
		return 0
	}
	x, err := utils.ConvertToFloat64(v)
	if err != nil {
		f.fail(key, err)
	}
	return x
}

func (f *fieldReader) requiredTime(key string) time.Time {
	v, ok := f.value(key, true)
	if !ok {
		return time.Time{}
	}
	t, err := utils.ConvertDateTime(v)
	if err != nil {
		f.fail(key, err)
	}
	return t
}

func (f *fieldReader) text(key string) *string {
	v, ok := f.value(key, false)
	if !ok {
		return nil
	}
	s, err := utils.ConvertToString(v)
	if err != nil {
		f.fail(key, err)
		return nil
	}
	return &s
}

func (f *fieldReader) integer(key string) *int64 {
	v, ok := f.value(key, false)
	if !ok {
		return nil
	}
	i, err := utils.ConvertToInt64(v)
	if err != nil {
		f.fail(key, err)
		return nil
	}
	return &i
}

func (f *fieldReader) float(key string) *float64 {
	v, ok := f.value(key, false)
	if !ok {
		return nil
	}
	x, err := utils.ConvertToFloat64(v)
	if err != nil {
		f.fail(key, err)
		return nil
	}
	return &x
}

func (f *fieldReader) boolean(key string) *bool {
	v, ok := f.value(key, false)
	if !ok {
		return nil
	}
	b, err := utils.ConvertToBool(v)
	if err != nil {
		f.fail(key, err)
		return nil
	}
	return &b
}

func (f *fieldReader) timestamp(key string) *time.Time {
	v, ok := f.value(key, false)
	if !ok {
		return nil
	}
	t, err := utils.ConvertDateTime(v)
	if err != nil {
		f.fail(key, err)
		return nil
	}
	return &t
}
