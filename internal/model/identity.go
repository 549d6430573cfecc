package model

import "github.com/google/uuid"

// Role is the kind of authenticated caller.
type Role string

const (
	RoleConsumer   Role = "consumer"
	RoleRestaurant Role = "restaurant"
)

// Identity is the authenticated caller supplied by the routing layer.
type Identity struct {
	ID   uuid.UUID
	Role Role
}
