package model

import "github.com/google/uuid"

// Viewer is the identity a request is evaluated for. The zero value is an
// anonymous viewer.
type Viewer struct {
	UserID *uuid.UUID
}

func AnonymousViewer() Viewer {
	return Viewer{}
}

func ViewerFor(id uuid.UUID) Viewer {
	return Viewer{UserID: &id}
}

func (v Viewer) Authenticated() bool {
	return v.UserID != nil
}

// ID returns the viewer's user ID, or uuid.Nil when anonymous.
func (v Viewer) ID() uuid.UUID {
	if v.UserID == nil {
		return uuid.Nil
	}
	return *v.UserID
}

// Is reports whether the viewer is the given user.
func (v Viewer) Is(userID uuid.UUID) bool {
	return v.UserID != nil && *v.UserID == userID
}
