package notify

import "strings"

// Board list names, normalized.
const (
	ListApproval   = "approval"
	ListToDo       = "to do"
	ListCompleted  = "completed"
	ListInProgress = "in progress"
	ListArchived   = "archived"
)

// UnknownList stands in for a list that arrived without a name.
const UnknownList = "Unknown"

// TransitionOutcome is the status phrase for a list move and whether the move
// kicks off the onboarding flow.
type TransitionOutcome struct {
	Message            string
	TriggersOnboarding bool
}

// Normalize trims and lowercases a list name. It is idempotent.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Compose maps a (before, after) list pair to its outcome. Rules are checked
// in order and the first match wins.
func Compose(listBefore, listAfter string) TransitionOutcome {
	before, after := Normalize(listBefore), Normalize(listAfter)

	switch {
	case after == ListApproval && before == ListCompleted:
		return TransitionOutcome{Message: "reopened for review", TriggersOnboarding: true}
	case after == ListApproval:
		return TransitionOutcome{Message: "ready for review", TriggersOnboarding: true}
	case after == ListToDo:
		return TransitionOutcome{Message: "ticket sent back for revision"}
	case after == ListCompleted:
		return TransitionOutcome{Message: "completed"}
	case after == ListInProgress && before == ListApproval:
		return TransitionOutcome{Message: "sent back for rework"}
	case after == ListInProgress:
		return TransitionOutcome{Message: "work in progress"}
	case after == ListArchived && before == ListCompleted:
		return TransitionOutcome{Message: "archived after completion"}
	case after == ListArchived:
		return TransitionOutcome{Message: "archived"}
	// Unreachable: after == "completed" is matched above. Kept in its
	// historical position; see DESIGN.md before reordering.
	case before == ListArchived && after == ListCompleted:
		return TransitionOutcome{Message: "restored from archive"}
	default:
		return TransitionOutcome{Message: "status updated"}
	}
}
