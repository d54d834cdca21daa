package models

// TeamMember joins a participant to a team. The unique index on ParticipantID
// is the schema-level backstop for "a participant belongs to at most one team
// per event": participants are already event-scoped, so one membership row per
// participant is exactly one team per event.
type TeamMember struct {
	BaseModel

	TeamID        string `gorm:"type:uuid;not null;index" json:"team_id"`
	ParticipantID string `gorm:"type:uuid;not null;uniqueIndex" json:"participant_id"`

	Team        *Team        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Participant *Participant `gorm:"constraint:OnDelete:CASCADE" json:"participant,omitempty"`
}
