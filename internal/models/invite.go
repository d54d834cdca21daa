package models

// Invite is an opaque code redeemable to join exactly one team while live.
// The unique index on TeamID enforces at most one live invite per team; the
// one on Code makes every code resolve to at most one team.
type Invite struct {
	BaseModel

	Code   string `gorm:"uniqueIndex;not null" json:"code"`
	TeamID string `gorm:"type:uuid;not null;uniqueIndex" json:"team_id"`

	Team *Team `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
