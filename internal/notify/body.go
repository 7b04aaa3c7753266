package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const (
	NoDueDate         = "No due date"
	NoMembersAssigned = "No members assigned"

	// DueDateLayout mirrors the en-ZA short presentation the board team is used to.
	DueDateLayout = "Mon, 02 Jan 2006, 15:04"
)

// Notification is everything that goes into one email.
type Notification struct {
	CardName   string
	ListBefore string
	ListAfter  string
	DueDate    string
	Members    string
	Message    string
	CardURL    string
}

// FormatDueDate renders due in loc, or the NoDueDate placeholder.
func FormatDueDate(due *time.Time, loc *time.Location) string {
	if due == nil || due.IsZero() {
		return NoDueDate
	}
	if loc == nil {
		loc = time.UTC
	}
	return due.In(loc).Format(DueDateLayout)
}

func FormatMembers(names []string) string {
	if len(names) == 0 {
		return NoMembersAssigned
	}
	return strings.Join(names, ", ")
}

func UnknownMember(id string) string {
	return fmt.Sprintf("Unknown (%s)", id)
}

// TransitionMessage is the full status line, e.g.
// `Card moved from "Approval" to "Completed" - completed`.
func TransitionMessage(listBefore, listAfter string, outcome TransitionOutcome) string {
	return fmt.Sprintf("Card moved from \"%s\" to \"%s\" - %s", listBefore, listAfter, outcome.Message)
}

func (n Notification) Subject() string {
	return "Trello Update: " + n.CardName
}

func (n Notification) PlainText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Card: %s\n", n.CardName)
	fmt.Fprintf(&b, "Moved from: %s\n", n.ListBefore)
	fmt.Fprintf(&b, "Moved to: %s\n", n.ListAfter)
	fmt.Fprintf(&b, "Due Date: %s\n", n.DueDate)
	fmt.Fprintf(&b, "Members: %s\n", n.Members)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n", n.Message)
	fmt.Fprintf(&b, "Link: %s\n", n.CardURL)
	return b.String()
}

var htmlTemplate = template.Must(template.New("email").Parse(`<div style="font-family: Arial, sans-serif; line-height: 1.5;">
  <h2 style="color: #0055a5;">Trello Update</h2>
  <p><strong>Card:</strong> {{.Subject}}</p>
  <p><strong>Details:</strong></p>
  <pre style="background-color: #f4f4f4; padding: 10px; border-radius: 4px;">{{.Body}}</pre>
  <p style="margin-top: 20px;">Sent via ATKV Trello Automation</p>
</div>
`))

// HTML wraps the plain text body in the notification layout. Card content is
// escaped.
func (n Notification) HTML() (string, error) {
	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, struct {
		Subject string
		Body    string
	}{
		Subject: n.Subject(),
		Body:    n.PlainText(),
	})
	if err != nil {
		return "", fmt.Errorf("render email html: %w", err)
	}
	return buf.String(), nil
}
