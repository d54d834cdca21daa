package models

// Participant is a user's participation record scoped to one event. It is
// created lazily on first team interaction and persists even after the user's
// team disappears: a participant without a team is a valid steady state.
type Participant struct {
	BaseModel

	UserID  string `gorm:"type:uuid;not null;uniqueIndex:idx_participants_user_event" json:"user_id"`
	EventID string `gorm:"type:uuid;not null;uniqueIndex:idx_participants_user_event" json:"event_id"`

	User  *User  `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Event *Event `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
