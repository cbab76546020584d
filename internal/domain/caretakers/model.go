package caretakers

import "vida-melhor/internal/domain/profiles"

// LinkStatus describe el vínculo de un idoso respecto del cuidador que mira.
type LinkStatus string

const (
	StatusUnlinked      LinkStatus = "unlinked"
	StatusLinkedToMe    LinkStatus = "linked_to_me"
	StatusLinkedToOther LinkStatus = "linked_to_other"
)

type LinkableElder struct {
	Profile profiles.Profile
	Status  LinkStatus
}

func statusFor(p profiles.Profile, actorID string) LinkStatus {
	switch {
	case !p.Linked():
		return StatusUnlinked
	case p.LinkedTo(actorID):
		return StatusLinkedToMe
	default:
		return StatusLinkedToOther
	}
}
