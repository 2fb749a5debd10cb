package service

import "github.com/linkpulse/internal/db"

// Identity is the verified caller handed to every mutating operation.
type Identity struct {
	UserID   uint
	Username string
	Role     db.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == db.RoleAdmin
}

// CanModify reports whether the caller may edit or delete a resource owned by ownerID.
func (i Identity) CanModify(ownerID uint) bool {
	return i.UserID != 0 && (i.UserID == ownerID || i.IsAdmin())
}

func identityFromUser(user db.User) Identity {
	return Identity{UserID: user.ID, Username: user.Username, Role: user.Role}
}
