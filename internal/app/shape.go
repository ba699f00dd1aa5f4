package app

import "github.com/openhearth/calendard/internal/domain"

// APIEvent is the flat machine-facing event record. Start and End are
// plain dates for all-day events and RFC 3339 timestamps otherwise.
type APIEvent struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

// SpeechEvent extends APIEvent with the fields the voice pipeline
// needs to phrase a response. Recurring stays nil when the backing
// store could not tell.
type SpeechEvent struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	AllDay      bool   `json:"all_day"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Recurring   *bool  `json:"recurring"`
}

// ToAPI projects events into API records. It never mutates its input.
func ToAPI(events []domain.Event) []APIEvent {
	out := make([]APIEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, APIEvent{
			Start:       ev.Start.String(),
			End:         ev.End.String(),
			Summary:     ev.Summary,
			Description: ev.Description,
		})
	}
	return out
}

// ToSpeech projects events into speech slot records. It never mutates
// its input.
func ToSpeech(events []domain.Event) []SpeechEvent {
	out := make([]SpeechEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, SpeechEvent{
			Start:       ev.Start.String(),
			End:         ev.End.String(),
			AllDay:      ev.AllDay(),
			Summary:     ev.Summary,
			Description: ev.Description,
			Location:    ev.Location,
			Recurring:   ev.Recurring,
		})
	}
	return out
}
