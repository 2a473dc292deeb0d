package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleDriver   UserRole = "driver"
)

// User mirrors the auth provider's account record in the "users" collection.
type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UID       string             `json:"uid" bson:"uid"`
	Email     string             `json:"email" bson:"email"`
	FullName  string             `json:"full_name" bson:"fullName"`
	Role      UserRole           `json:"role" bson:"role"`
	CreatedAt time.Time          `json:"created_at" bson:"createdAt"`
}

// CurrentUser is the authenticated identity placed in request context by the
// auth middleware.
type CurrentUser struct {
	ID   string
	Role UserRole
}
