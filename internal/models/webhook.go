package models

const ActionUpdateCard = "updateCard"

type TrelloCardData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TrelloBoardData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TrelloListData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TrelloActionData struct {
	Card       *TrelloCardData  `json:"card"`
	Board      *TrelloBoardData `json:"board"`
	ListBefore *TrelloListData  `json:"listBefore"`
	ListAfter  *TrelloListData  `json:"listAfter"`
}

type TrelloAction struct {
	Type string           `json:"type"` // e.g., "updateCard"
	Data TrelloActionData `json:"data"`
}

type TrelloWebhookPayload struct {
	Action *TrelloAction `json:"action"`
}
