package models

// ParticipantEntry is one weighted row of a manual draw upload.
// Points is the number of tickets the MSISDN holds and is always > 0.
type ParticipantEntry struct {
	MSISDN string `json:"msisdn"`
	Points int    `json:"points"`
}
