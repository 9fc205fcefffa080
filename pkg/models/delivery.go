package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome classifies a single dispatch attempt
type Outcome string

const (
	OutcomeSent       Outcome = "sent"
	OutcomeFailed     Outcome = "failed"      // endpoint answered with an error status
	OutcomeNoResponse Outcome = "no_response" // transport returned nothing
	OutcomeError      Outcome = "error"       // transport raised an error
)

func (o Outcome) Emoji() string {
	switch o {
	case OutcomeSent:
		return "✅"
	case OutcomeFailed:
		return "🔴"
	default:
		return "🟡"
	}
}

// Delivery records what happened to one dispatch
type Delivery struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	StatusCode int       `json:"status_code"`
	Outcome    Outcome   `json:"outcome"`
	Error      string    `json:"error,omitempty"`
}

func NewDelivery(method, url string, p DispatchPayload) Delivery {
	return Delivery{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Method:    method,
		URL:       url,
		Title:     p.Title,
		Text:      p.Desp,
	}
}
