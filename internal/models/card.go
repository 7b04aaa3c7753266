package models

import "time"

const trelloCardURLPrefix = "https://trello.com/c/"

// Card is the full card record returned by GET /cards/{id}.
type Card struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	ShortLink string     `json:"shortLink"`
	Due       *time.Time `json:"due"`
	IDMembers []string   `json:"idMembers"`
}

func (c Card) URL() string {
	return trelloCardURLPrefix + c.ShortLink
}

type Member struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
}
