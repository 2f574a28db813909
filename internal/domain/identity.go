package domain

import "github.com/google/uuid"

// Identity is the tagged identity of a captain or participant: either a
// stable authenticated user id, or a claimed display name for anonymous
// users. Never both.
type Identity struct {
	UserID      *uuid.UUID `json:"userId,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

func IdentityOfUser(id uuid.UUID) Identity {
	return Identity{UserID: &id}
}

func IdentityOfName(name string) Identity {
	return Identity{DisplayName: name}
}

func (i Identity) IsZero() bool {
	return i.UserID == nil && i.DisplayName == ""
}

// Equal matches only within the same identity scheme: user ids compare by
// id, anonymous identities compare by claimed name. A user id never matches
// a display name.
func (i Identity) Equal(other Identity) bool {
	if i.UserID != nil && other.UserID != nil {
		return *i.UserID == *other.UserID
	}
	if i.UserID == nil && other.UserID == nil {
		return i.DisplayName != "" && i.DisplayName == other.DisplayName
	}
	return false
}
