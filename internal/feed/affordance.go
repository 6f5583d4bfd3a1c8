package feed

import (
	"fmt"

	"lostfound/internal/model"
)

// State is the per-viewer state of a post card.
type State string

const (
	StateResolved        State = "resolved"
	StateActiveOwner     State = "active_owner"
	StateActiveClaimed   State = "active_claimed"
	StateActiveUnclaimed State = "active_unclaimed"
)

// Affordance is what a card shows and allows for one viewer.
type Affordance struct {
	State        State  `json:"state"`
	Label        string `json:"label"`
	CanClaim     bool   `json:"can_claim"`
	RequiresAuth bool   `json:"requires_auth"`
}

const ResolvedLabel = "Resolved — item returned"

// Evaluate decides the card state. Resolved wins over everything, then
// ownership, then whether the viewer already claimed.
func Evaluate(post *model.Post, viewer model.Viewer, hasClaimed bool, claimCount int) Affordance {
	switch {
	case post.IsResolved():
		return Affordance{State: StateResolved, Label: ResolvedLabel}
	case viewer.Is(post.UserID):
		return Affordance{State: StateActiveOwner, Label: ResponseLabel(claimCount)}
	case hasClaimed && viewer.Authenticated():
		return Affordance{State: StateActiveClaimed, Label: claimedLabel(post.Type, claimCount)}
	default:
		return Affordance{
			State:        StateActiveUnclaimed,
			Label:        ClaimActionLabel(post.Type),
			CanClaim:     true,
			RequiresAuth: !viewer.Authenticated(),
		}
	}
}

// ResponseLabel is the owner's summary of how many people responded.
func ResponseLabel(claimCount int) string {
	switch claimCount {
	case 0:
		return "No reports yet"
	case 1:
		return "1 person responded"
	default:
		return fmt.Sprintf("%d people responded", claimCount)
	}
}

// ClaimActionLabel is the call to action shown to a non-owner.
func ClaimActionLabel(t model.PostType) string {
	if t == model.PostTypeLost {
		return "I Found This!"
	}
	return "This is Mine!"
}

func claimedLabel(t model.PostType, claimCount int) string {
	label := "Claimed"
	if t == model.PostTypeLost {
		label = "Reported Found"
	}
	if claimCount > 0 {
		return fmt.Sprintf("%s (%d)", label, claimCount)
	}
	return label
}

// CanTransition reports whether a card may move from one state to another.
// Claiming moves unclaimed to claimed. The owner's status toggle moves any
// active state to resolved and back.
func CanTransition(from, to State) bool {
	switch {
	case from == StateActiveUnclaimed && to == StateActiveClaimed:
		return true
	case from != StateResolved && to == StateResolved:
		return true
	case from == StateResolved && to != StateResolved:
		return true
	default:
		return false
	}
}
