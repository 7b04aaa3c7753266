package models

// OnboardingEvent is posted to the onboarding flow when a card enters review.
type OnboardingEvent struct {
	CardID     string `json:"cardId"`
	CardName   string `json:"cardName"`
	CardURL    string `json:"cardUrl"`
	ListBefore string `json:"listBefore"`
	ListAfter  string `json:"listAfter"`
}
