package models

// Team is a group of up to MaxTeamSize participants collaborating under one
// creator for one event.
//
// CreatorID references a team_members row, not a user: the creator capability
// belongs to a membership and moves with succession when the current creator
// leaves. It is nullable only because the creator's own membership row does
// not exist yet at the instant the team row is inserted; the creating
// transaction always fixes it up before committing.
type Team struct {
	BaseModel

	EventID string `gorm:"type:uuid;not null;index" json:"event_id"`

	Name                string `gorm:"not null" json:"name"`
	Description         string `json:"description"`
	Contact             string `json:"contact"`
	LookingForTeammates bool   `gorm:"default:false" json:"looking_for_teammates"`

	CreatorID *string `gorm:"type:uuid" json:"creator_id"`

	Event   *Event       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}
