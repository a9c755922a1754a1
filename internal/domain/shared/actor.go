package shared

import (
	"strings"
)

// Actor is the already-authenticated caller of a lifecycle operation
type Actor struct {
	ID    string
	Name  string
	Role  Role
	Phone string
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Ref returns the audit snapshot of the actor stored on documents
func (a Actor) Ref() ActorRef {
	return ActorRef{ID: a.ID, Name: a.Name, Role: a.Role}
}

// ActorRef is the persisted {id, name, role} triple used in history and assignment records
type ActorRef struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
	Role Role   `json:"role" bson:"role"`
}

// SystemActor is recorded for changes made by compensation and repair paths
var SystemActor = Actor{ID: "system", Name: "system", Role: RoleAdmin}

// NormalizePhone keeps only the digits of a phone number
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
