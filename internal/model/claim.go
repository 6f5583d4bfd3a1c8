package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Claim records that a user responded to a post ("I found it" / "it's mine").
// At most one exists per (post, claimer) and it is never modified.
type Claim struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PostID    uuid.UUID `db:"post_id" json:"post_id"`
	ClaimerID uuid.UUID `db:"claimer_id" json:"claimer_id"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClaimUniqueConstraint is the storage constraint that enforces one claim per
// (post, claimer).
const ClaimUniqueConstraint = "claims_post_id_claimer_id_key"

// DefaultClaimMessage is the message stored with a new claim.
func DefaultClaimMessage(t PostType) string {
	if t == PostTypeLost {
		return "I found this item!"
	}
	return "This is my item!"
}

// ClaimResult is returned by the claim action. A duplicate claim is reported
// as Claimed with Created false.
type ClaimResult struct {
	Claimed    bool `json:"claimed"`
	Created    bool `json:"created"`
	ClaimCount int  `json:"claim_count"`
}

var (
	ErrAlreadyClaimed     = errors.New("post already claimed by this user")
	ErrCannotClaimOwnPost = errors.New("cannot claim your own post")
	ErrPostResolved       = errors.New("post is resolved")
)
