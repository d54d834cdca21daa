package models

// User is a global identity. The membership core references users but never
// mutates them.
type User struct {
	BaseModel

	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	Participants []Participant `gorm:"foreignKey:UserID" json:"-"`
}
