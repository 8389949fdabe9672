package domain

import "time"

// User is a moderator account. Passwords are stored bcrypt-hashed.
type User struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	Email    string `gorm:"uniqueIndex;not null;size:255"`
	Password string `gorm:"not null;size:100" json:"-"`
	Role     string `gorm:"not null;default:'moderator';check:role IN ('moderator', 'admin')"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}
