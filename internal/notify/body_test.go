package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDueDate(t *testing.T) {
	assert.Equal(t, NoDueDate, FormatDueDate(nil, time.UTC))

	loc, err := time.LoadLocation("Africa/Johannesburg")
	require.NoError(t, err)
	due := time.Date(2025, time.October, 21, 12, 5, 0, 0, time.UTC)
	assert.Equal(t, "Tue, 21 Oct 2025, 14:05", FormatDueDate(&due, loc))
	assert.Equal(t, "Tue, 21 Oct 2025, 12:05", FormatDueDate(&due, nil))
}

func TestFormatMembers(t *testing.T) {
	assert.Equal(t, NoMembersAssigned, FormatMembers(nil))
	assert.Equal(t, "Anna, Unknown (m2)", FormatMembers([]string{"Anna", UnknownMember("m2")}))
}

func TestTransitionMessage(t *testing.T) {
	msg := TransitionMessage("Completed", "Approval", Compose("Completed", "Approval"))
	assert.Equal(t, `Card moved from "Completed" to "Approval" - reopened for review`, msg)
}

func TestNotification_Rendering(t *testing.T) {
	n := Notification{
		CardName:   "Fix <login>",
		ListBefore: "To Do",
		ListAfter:  "In Progress",
		DueDate:    NoDueDate,
		Members:    NoMembersAssigned,
		Message:    `Card moved from "To Do" to "In Progress" - work in progress`,
		CardURL:    "https://trello.com/c/abc123",
	}

	assert.Equal(t, "Trello Update: Fix <login>", n.Subject())
	assert.Equal(t, "Card: Fix <login>\n"+
		"Moved from: To Do\n"+
		"Moved to: In Progress\n"+
		"Due Date: No due date\n"+
		"Members: No members assigned\n"+
		"\n"+
		"Card moved from \"To Do\" to \"In Progress\" - work in progress\n"+
		"Link: https://trello.com/c/abc123\n", n.PlainText())

	html, err := n.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "Fix &lt;login&gt;")
	assert.NotContains(t, html, "<login>")
	assert.Contains(t, html, "No due date")
	assert.Contains(t, html, "https://trello.com/c/abc123")
}

func TestTransitionMessage_KeepsListNamesVerbatim(t *testing.T) {
	msg := TransitionMessage("Done \"QA\"", "Ready\tfor\u00a0go", TransitionOutcome{Message: "status updated"})
	assert.Equal(t, "Card moved from \"Done \"QA\"\" to \"Ready\tfor\u00a0go\" - status updated", msg)
	assert.NotContains(t, msg, `\t`)
	assert.NotContains(t, msg, `\u00a0`)
}
