package models

// WinnerRecord is one winner or runner-up returned by the backend. Position is
// 1-based within the (tier, runner-up) partition. FullMSISDN is only sent to
// privileged callers.
type WinnerRecord struct {
	ID           string `json:"id"`
	TierName     string `json:"tierName"`
	Position     int    `json:"position"`
	IsRunnerUp   bool   `json:"isRunnerUp"`
	MaskedMSISDN string `json:"maskedMsisdn"`
	FullMSISDN   string `json:"fullMsisdn,omitempty"`
}

// DisplayMSISDN picks the identifier a viewer may see.
func (w WinnerRecord) DisplayMSISDN(privileged bool) string {
	if privileged && w.FullMSISDN != "" {
		return w.FullMSISDN
	}
	return w.MaskedMSISDN
}

// DrawWinners is the winners view of an existing draw together with the
// prize structure it ran against.
type DrawWinners struct {
	Winners        []WinnerRecord `json:"winners"`
	PrizeStructure PrizeStructure `json:"prizeStructure"`
}
