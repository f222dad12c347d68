package models

import "time"

// ActivitiesTable is the default destination for flattened activities.
const ActivitiesTable = "activities"

// ActivitySchema is the fixed column layout of the activities table.
// Durations are stored in minutes, distance in miles and elevation gain in
// feet, so the time columns are floats.
var ActivitySchema = Schema{
	{Name: "id", Kind: KindBigInt, PrimaryKey: true},
	{Name: "name", Kind: KindText},
	{Name: "distance", Kind: KindFloat},
	{Name: "moving_time", Kind: KindFloat},
	{Name: "elapsed_time", Kind: KindFloat},
	{Name: "total_elevation_gain", Kind: KindFloat},
	{Name: "type", Kind: KindText},
	{Name: "sport_type", Kind: KindText},
	{Name: "workout_type", Kind: KindText},
	{Name: "start_date", Kind: KindTimestamp},
	{Name: "start_date_local", Kind: KindTimestamp},
	{Name: "timezone", Kind: KindText},
	{Name: "utc_offset", Kind: KindInt},
	{Name: "location_city", Kind: KindText},
	{Name: "location_state", Kind: KindText},
	{Name: "location_country", Kind: KindText},
	{Name: "achievement_count", Kind: KindInt},
	{Name: "kudos_count", Kind: KindInt},
	{Name: "comment_count", Kind: KindInt},
	{Name: "athlete_count", Kind: KindInt},
	{Name: "photo_count", Kind: KindInt},
	{Name: "trainer", Kind: KindBool},
	{Name: "commute", Kind: KindBool},
	{Name: "manual", Kind: KindBool},
	{Name: "private", Kind: KindBool},
	{Name: "visibility", Kind: KindText},
	{Name: "flagged", Kind: KindBool},
	{Name: "gear_id", Kind: KindText},
	{Name: "average_speed", Kind: KindFloat},
	{Name: "max_speed", Kind: KindFloat},
	{Name: "has_heartrate", Kind: KindBool},
	{Name: "average_heartrate", Kind: KindFloat},
	{Name: "max_heartrate", Kind: KindFloat},
	{Name: "heartrate_opt_out", Kind: KindBool},
	{Name: "display_hide_heartrate_option", Kind: KindBool},
	{Name: "elev_high", Kind: KindFloat},
	{Name: "elev_low", Kind: KindFloat},
	{Name: "upload_id", Kind: KindBigInt},
	{Name: "upload_id_str", Kind: KindText},
	{Name: "external_id", Kind: KindText},
	{Name: "from_accepted_tag", Kind: KindBool},
	{Name: "pr_count", Kind: KindInt},
	{Name: "athlete_id", Kind: KindBigInt},
	{Name: "athlete_resource_state", Kind: KindInt},
	{Name: "map_id", Kind: KindText},
	{Name: "map_summary_polyline", Kind: KindText},
	{Name: "map_resource_state", Kind: KindInt},
}

// ActivityRow is the flattened, unit-converted form of a raw activity.
type ActivityRow struct {
	ID                         int64
	Name                       *string
	DistanceMiles              float64
	MovingTimeMinutes          float64
	ElapsedTimeMinutes         float64
	TotalElevationGainFeet     float64
	Type                       *string
	SportType                  *string
	WorkoutType                *string
	StartDate                  time.Time
	StartDateLocal             time.Time
	Timezone                   *string
	UTCOffset                  *int64
	LocationCity               *string
	LocationState              *string
	LocationCountry            *string
	AchievementCount           *int64
	KudosCount                 *int64
	CommentCount               *int64
	AthleteCount               *int64
	PhotoCount                 *int64
	Trainer                    *bool
	Commute                    *bool
	Manual                     *bool
	Private                    *bool
	Visibility                 *string
	Flagged                    *bool
	GearID                     *string
	AverageSpeed               *float64
	MaxSpeed                   *float64
	HasHeartrate               *bool
	AverageHeartrate           *float64
	MaxHeartrate               *float64
	HeartrateOptOut            *bool
	DisplayHideHeartrateOption *bool
	ElevHigh                   *float64
	ElevLow                    *float64
	UploadID                   *int64
	UploadIDStr                *string
	ExternalID                 *string
	FromAcceptedTag            *bool
	PRCount                    *int64
	AthleteID                  *int64
	AthleteResourceState       *int64
	MapID                      *string
	MapSummaryPolyline         *string
	MapResourceState           *int64
}

func (r ActivityRow) Key() int64 { return r.ID }

// Values follows the column order of ActivitySchema.
func (r ActivityRow) Values() []interface{} {
	return []interface{}{
		r.ID,
		nullable(r.Name),
		r.DistanceMiles,
		r.MovingTimeMinutes,
		r.ElapsedTimeMinutes,
		r.TotalElevationGainFeet,
		nullable(r.Type),
		nullable(r.SportType),
		nullable(r.WorkoutType),
		r.StartDate,
		r.StartDateLocal,
		nullable(r.Timezone),
		nullable(r.UTCOffset),
		nullable(r.LocationCity),
		nullable(r.LocationState),
		nullable(r.LocationCountry),
		nullable(r.AchievementCount),
		nullable(r.KudosCount),
		nullable(r.CommentCount),
		nullable(r.AthleteCount),
		nullable(r.PhotoCount),
		nullable(r.Trainer),
		nullable(r.Commute),
		nullable(r.Manual),
		nullable(r.Private),
		nullable(r.Visibility),
		nullable(r.Flagged),
		nullable(r.GearID),
		nullable(r.AverageSpeed),
		nullable(r.MaxSpeed),
		nullable(r.HasHeartrate),
		nullable(r.AverageHeartrate),
		nullable(r.MaxHeartrate),
		nullable(r.HeartrateOptOut),
		nullable(r.DisplayHideHeartrateOption),
		nullable(r.ElevHigh),
		nullable(r.ElevLow),
		nullable(r.UploadID),
		nullable(r.UploadIDStr),
		nullable(r.ExternalID),
		nullable(r.FromAcceptedTag),
		nullable(r.PRCount),
		nullable(r.AthleteID),
		nullable(r.AthleteResourceState),
		nullable(r.MapID),
		nullable(r.MapSummaryPolyline),
		nullable(r.MapResourceState),
	}
}
