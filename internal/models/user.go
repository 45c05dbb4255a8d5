package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the capability a user holds on the platform
type Role string

const (
	RoleUser    Role = "user"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCreator, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered account
type User struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Email     string               `bson:"email" json:"email"`
	FullName  string               `bson:"fullName" json:"fullName"`
	Role      Role                 `bson:"role" json:"role"`
	Password  string               `bson:"password" json:"-"` // bcrypt hash
	IsActive  bool                 `bson:"isActive" json:"isActive"`
	Followers []primitive.ObjectID `bson:"followers,omitempty" json:"followers"`
	Following []primitive.ObjectID `bson:"following,omitempty" json:"following"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}
