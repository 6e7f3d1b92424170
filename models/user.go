package models

import "time"

type User struct {
	UserID           string    `json:"userid" bson:"userid"`
	Username         string    `json:"username" bson:"username"`
	Email            string    `json:"email" bson:"email"`
	Password         string    `json:"password,omitempty" bson:"password"`
	Role             []string  `json:"role" bson:"role"` // user, admin, security
	AssignedFacility string    `json:"assignedFacility,omitempty" bson:"assignedFacility,omitempty"`
	RefreshToken     string    `json:"-" bson:"refresh_token,omitempty"`
	RefreshExpiry    time.Time `json:"-" bson:"refresh_expiry,omitempty"`
	LastLogin        time.Time `json:"lastLogin,omitempty" bson:"last_login,omitempty"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Role {
		if r == role {
			return true
		}
	}
	return false
}
