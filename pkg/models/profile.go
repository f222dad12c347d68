package models

import "time"

const ProfilesTable = "athlete_profiles"

var ProfileSchema = Schema{
	{Name: "id", Kind: KindBigInt, PrimaryKey: true},
	{Name: "username", Kind: KindText},
	{Name: "resource_state", Kind: KindInt},
	{Name: "firstname", Kind: KindText},
	{Name: "lastname", Kind: KindText},
	{Name: "bio", Kind: KindText},
	{Name: "city", Kind: KindText},
	{Name: "state", Kind: KindText},
	{Name: "country", Kind: KindText},
	{Name: "sex", Kind: KindText},
	{Name: "premium", Kind: KindBool},
	{Name: "summit", Kind: KindBool},
	{Name: "created_at", Kind: KindTimestamp},
	{Name: "updated_at", Kind: KindTimestamp},
	{Name: "badge_type_id", Kind: KindInt},
	{Name: "weight", Kind: KindFloat},
	{Name: "profile_medium", Kind: KindText},
	{Name: "profile", Kind: KindText},
	{Name: "friend", Kind: KindBool},
	{Name: "follower", Kind: KindBool},
}

// ProfileRow is one athlete profile projected onto ProfileSchema.
type ProfileRow struct {
	ID            int64
	Username      *string
	ResourceState *int64
	Firstname     *string
	Lastname      *string
	Bio           *string
	City          *string
	State         *string
	Country       *string
	Sex           *string
	Premium       *bool
	Summit        *bool
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
	BadgeTypeID   *int64
	Weight        *float64
	ProfileMedium *string
	Profile       *string
	Friend        *bool
	Follower      *bool
}

func (r ProfileRow) Key() int64 { return r.ID }

func (r ProfileRow) Values() []interface{} {
	return []interface{}{
		r.ID,
		nullable(r.Username),
		nullable(r.ResourceState),
		nullable(r.Firstname),
		nullable(r.Lastname),
		nullable(r.Bio),
		nullable(r.City),
		nullable(r.State),
		nullable(r.Country),
		nullable(r.Sex),
		nullable(r.Premium),
		nullable(r.Summit),
		nullable(r.CreatedAt),
		nullable(r.UpdatedAt),
		nullable(r.BadgeTypeID),
		nullable(r.Weight),
		nullable(r.ProfileMedium),
		nullable(r.Profile),
		nullable(r.Friend),
		nullable(r.Follower),
	}
}
