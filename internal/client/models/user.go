package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/glucokeeper/internal/common"
)

// User is a person whose measurements are tracked. Users are immutable once
// created.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser trims name and rejects an empty one.
func NewUser(id int64, name string, createdAt time.Time) (User, error) {
	if id == 0 {
		return User{}, common.NewValidationError("id", "required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, common.NewValidationError("name", "please enter a user name")
	}
	return User{ID: id, Name: name, CreatedAt: NormalizeTime(createdAt)}, nil
}

// IsValidUser reports whether u has a non-empty name.
func IsValidUser(u User) bool {
	return strings.TrimSpace(u.Name) != ""
}

// FindUserByName returns the user whose name equals name ignoring case and
// surrounding spaces.
func FindUserByName(users []User, name string) (User, bool) {
	name = strings.TrimSpace(name)
	for _, u := range users {
		if strings.EqualFold(u.Name, name) {
			return u, true
		}
	}
	return User{}, false
}

// FindUser returns the user with the given id.
func FindUser(users []User, id int64) (User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}
