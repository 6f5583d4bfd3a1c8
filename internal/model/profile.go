package model

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Display fallbacks for missing names.
const (
	AnonymousPostAuthor    = "Anonymous User"
	AnonymousCommentAuthor = "Anonymous"
	AnonymousActor         = "Someone"
)

// Profile is the public part of a user.
type Profile struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FullName  *string   `db:"full_name" json:"full_name"`
	AvatarURL *string   `db:"avatar_url" json:"avatar_url"`
}

// NameOr returns the full name, or fallback when the profile or name is missing.
func (p *Profile) NameOr(fallback string) string {
	if p == nil || p.FullName == nil || strings.TrimSpace(*p.FullName) == "" {
		return fallback
	}
	return *p.FullName
}

// Initial is the avatar placeholder: the uppercased first letter of the name, or "?".
func (p *Profile) Initial() string {
	name := p.NameOr("")
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}
