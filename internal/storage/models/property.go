package models

import "time"

// Property is a managed rental unit.
type Property struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   *string   `db:"owner_id" json:"owner_id,omitempty"`
	Timezone  *string   `db:"timezone" json:"timezone,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Owner returns the owning account or an empty string when unowned.
func (p *Property) Owner() string {
	if p.OwnerID == nil {
		return ""
	}
	return *p.OwnerID
}

// Location resolves the property's operating timezone, falling back to def
// when none is set or the stored name is unknown.
func (p *Property) Location(def *time.Location) *time.Location {
	if p.Timezone == nil || *p.Timezone == "" {
		return def
	}
	loc, err := time.LoadLocation(*p.Timezone)
	if err != nil {
		return def
	}
	return loc
}
