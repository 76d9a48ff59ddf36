package models

// Identity is the viewer of a request: either an authenticated user or
// anonymous. Using a value type instead of a nullable string keeps the
// visibility checks exhaustive.
type Identity struct {
	userID string
}

// Anonymous is the identity of an unauthenticated request.
var Anonymous = Identity{}

func UserIdentity(userID string) Identity {
	return Identity{userID: userID}
}

func (i Identity) IsAnonymous() bool {
	return i.userID == ""
}

// UserID returns the authenticated user id, or "" for Anonymous.
func (i Identity) UserID() string {
	return i.userID
}
