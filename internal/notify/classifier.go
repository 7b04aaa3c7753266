package notify

import (
	"strings"

	"github.com/chxlky/trello-mimecast-notifier/internal/models"
)

// Transition is a qualifying card move. List names keep their original
// spelling for display; Compose normalizes them.
type Transition struct {
	CardID     string
	CardName   string
	BoardID    string
	ListBefore string
	ListAfter  string
}

type Classification struct {
	Transition Transition
	Qualifying bool
	Reason     string
}

// Classify decides whether a webhook payload describes a card moving between
// lists. Anything else is ignored with a reason suitable for logging.
func Classify(payload *models.TrelloWebhookPayload) Classification {
	if payload == nil || payload.Action == nil {
		return ignored("payload has no action")
	}
	action := payload.Action
	if action.Type != models.ActionUpdateCard {
		return ignored("action type " + action.Type + " is not a list move")
	}
	if action.Data.ListBefore == nil || action.Data.ListAfter == nil {
		return ignored("update is not a list move")
	}
	card := action.Data.Card
	if card == nil || strings.TrimSpace(card.ID) == "" {
		return ignored("no card id in payload")
	}

	t := Transition{
		CardID:     strings.TrimSpace(card.ID),
		CardName:   card.Name,
		ListBefore: listName(action.Data.ListBefore),
		ListAfter:  listName(action.Data.ListAfter),
	}
	if action.Data.Board != nil {
		t.BoardID = action.Data.Board.ID
	}
	return Classification{Transition: t, Qualifying: true}
}

func ignored(reason string) Classification {
	return Classification{Reason: reason}
}

func listName(list *models.TrelloListData) string {
	if list.Name == "" {
		return UnknownList
	}
	return list.Name
}
