package promoapi

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/utils"
)

// Backend payloads mix snake_case, camelCase and Go field names for the same
// values. encoding/json matches names case-insensitively, so one field per
// spelling that differs by more than case is enough.

type executeBody struct {
	DrawDate         string      `json:"draw_date"`
	PrizeStructureID string      `json:"prize_structure_id"`
	MSISDNEntries    []entryBody `json:"msisdn_entries,omitempty"`
}

type entryBody struct {
	MSISDN string `json:"msisdn"`
	Points int    `json:"points"`
}

func newExecuteBody(req models.DrawRequest) executeBody {
	body := executeBody{
		DrawDate:         req.DateString(),
		PrizeStructureID: req.PrizeStructureID,
	}
	if req.HasEntries() {
		body.MSISDNEntries = make([]entryBody, len(req.Entries))
		for i, e := range req.Entries {
			body.MSISDNEntries[i] = entryBody{MSISDN: e.MSISDN, Points: e.Points}
		}
	}
	return body
}

type wireError struct {
	Error               string `json:"error"`
	Message             string `json:"message"`
	RerunEligible       *bool  `json:"rerun_eligible"`
	RerunEligibleCamel  *bool  `json:"rerunEligible"`
	ExistingDrawID      string `json:"existing_draw_id"`
	ExistingDrawIDCamel string `json:"existingDrawId"`
	DrawID              string `json:"draw_id"`
}

func (w wireError) message() string {
	return firstNonEmpty(w.Error, w.Message)
}

func (w wireError) rerunEligible() *bool {
	if w.RerunEligible != nil {
		return w.RerunEligible
	}
	return w.RerunEligibleCamel
}

type wireTier struct {
	ID                    string  `json:"ID"`
	TierName              string  `json:"TierName"`
	TierNameSnake         string  `json:"tier_name"`
	Name                  string  `json:"name"`
	Amount                float64 `json:"Amount"`
	Quantity              *int    `json:"Quantity"`
	PrizeCount            *int    `json:"prizeCount"`
	RunnerUpCount         *int    `json:"RunnerUpCount"`
	RunnerUpCountSnake    *int    `json:"runner_up_count"`
	RunnerUpCountPerPrize *int    `json:"runnerUpCountPerPrize"`
	OrderIndex            int     `json:"OrderIndex"`
	OrderIndexSnake       *int    `json:"order_index"`
}

func (w wireTier) toModel() models.PrizeTier {
	t := models.PrizeTier{
		ID:                    w.ID,
		Name:                  firstNonEmpty(w.TierName, w.TierNameSnake, w.Name),
		Amount:                w.Amount,
		PrizeCount:            firstInt(w.Quantity, w.PrizeCount),
		RunnerUpCountPerPrize: firstInt(w.RunnerUpCount, w.RunnerUpCountSnake, w.RunnerUpCountPerPrize),
		OrderIndex:            w.OrderIndex,
	}
	if w.OrderIndexSnake != nil {
		t.OrderIndex = *w.OrderIndexSnake
	}
	return t
}

type wirePrizeStructure struct {
	ID                string     `json:"ID"`
	Name              string     `json:"Name"`
	Effective         string     `json:"Effective"`
	EffectiveDate     string     `json:"effectiveDate"`
	EligibleDays      []string   `json:"EligibleDays"`
	EligibleDaysSnake []string   `json:"eligible_days"`
	Tiers             []wireTier `json:"Tiers"`
}

func (w wirePrizeStructure) toModel() models.PrizeStructure {
	ps := models.PrizeStructure{
		ID:   w.ID,
		Name: w.Name,
	}
	if d, err := models.ParseDate(firstNonEmpty(w.Effective, w.EffectiveDate)); err == nil {
		ps.EffectiveDate = d
	}
	days := w.EligibleDays
	if len(days) == 0 {
		days = w.EligibleDaysSnake
	}
	for _, d := range days {
		if wd, ok := models.ParseWeekday(d); ok {
			ps.EligibleWeekdays = append(ps.EligibleWeekdays, wd)
		}
	}
	for _, t := range w.Tiers {
		ps.Tiers = append(ps.Tiers, t.toModel())
	}
	return ps
}

type wireWinner struct {
	ID              string          `json:"id"`
	MSISDN          string          `json:"msisdn"`
	MSISDNMasked    string          `json:"msisdn_masked"`
	MSISDNFull      string          `json:"msisdn_full"`
	MaskedMSISDN    string          `json:"maskedMsisdn"`
	FullMSISDN      string          `json:"fullMsisdn"`
	PrizeTier       string          `json:"prize_tier"`
	PrizeTierCamel  string          `json:"prizeTier"`
	TierName        string          `json:"tierName"`
	Position        json.RawMessage `json:"position"`
	IsRunnerUp      bool            `json:"is_runner_up"`
	IsRunnerUpCamel bool            `json:"isRunnerUp"`
}

func (w wireWinner) toModel() models.WinnerRecord {
	rec := models.WinnerRecord{
		ID:           w.ID,
		TierName:     firstNonEmpty(w.PrizeTier, w.PrizeTierCamel, w.TierName),
		IsRunnerUp:   w.IsRunnerUp || w.IsRunnerUpCamel,
		MaskedMSISDN: firstNonEmpty(w.MSISDNMasked, w.MaskedMSISDN),
		FullMSISDN:   firstNonEmpty(w.MSISDNFull, w.FullMSISDN),
	}

	// a bare msisdn may already be masked
	if w.MSISDN != "" {
		if strings.Contains(w.MSISDN, "*") {
			rec.MaskedMSISDN = firstNonEmpty(rec.MaskedMSISDN, w.MSISDN)
		} else {
			rec.FullMSISDN = firstNonEmpty(rec.FullMSISDN, w.MSISDN)
		}
	}
	if rec.MaskedMSISDN == "" && rec.FullMSISDN != "" {
		rec.MaskedMSISDN = utils.MaskMSISDN(rec.FullMSISDN)
	}

	rec.Position, rec.IsRunnerUp = decodePosition(w.Position, rec.IsRunnerUp)
	return rec
}

// decodePosition accepts a number, a numeric string, or the role labels
// "Winner" and "RunnerUp" some endpoints send instead of a position.
func decodePosition(raw json.RawMessage, runnerUp bool) (int, bool) {
	if len(raw) == 0 {
		return 0, runnerUp
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, runnerUp
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, runnerUp
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n, runnerUp
	}
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "runnerup":
		return 0, true
	}
	return 0, runnerUp
}

func toWinnerRecords(raw []wireWinner) []models.WinnerRecord {
	out := make([]models.WinnerRecord, 0, len(raw))
	for _, w := range raw {
		out = append(out, w.toModel())
	}
	return out
}

type wireDrawWinners struct {
	Winners        []wireWinner       `json:"winners"`
	PrizeStructure wirePrizeStructure `json:"prizeStructure"`
}

type wireDrawResult struct {
	DrawID      string       `json:"drawId"`
	DrawIDSnake string       `json:"draw_id"`
	ID          string       `json:"id"`
	Date        string       `json:"date"`
	DrawDate    string       `json:"draw_date"`
	Winners     []wireWinner `json:"winners"`
}

func (w wireDrawResult) toModel() *models.DrawResult {
	res := &models.DrawResult{
		DrawID:  firstNonEmpty(w.DrawID, w.DrawIDSnake, w.ID),
		Winners: toWinnerRecords(w.Winners),
	}
	if d, err := models.ParseDate(firstNonEmpty(w.Date, w.DrawDate)); err == nil {
		res.Date = d
	}
	return res
}

type wireDrawSummary struct {
	ID                    string `json:"ID"`
	DrawDate              string `json:"DrawDate"`
	DrawDateSnake         string `json:"draw_date"`
	Date                  string `json:"date"`
	PrizeStructureID      string `json:"PrizeStructureID"`
	PrizeStructureIDSnake string `json:"prize_structure_id"`
	Status                string `json:"Status"`
}

func (w wireDrawSummary) toModel() models.DrawSummary {
	s := models.DrawSummary{
		ID:               w.ID,
		PrizeStructureID: firstNonEmpty(w.PrizeStructureID, w.PrizeStructureIDSnake),
		Status:           w.Status,
	}
	if d, err := models.ParseDate(firstNonEmpty(w.DrawDate, w.DrawDateSnake, w.Date)); err == nil {
		s.Date = d
	}
	return s
}

// decodeDrawList accepts a bare array or an object with a "draws" array.
func decodeDrawList(raw json.RawMessage) ([]models.DrawSummary, error) {
	var list []wireDrawSummary
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var wrapped struct {
			Draws []wireDrawSummary `json:"draws"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, err
		}
		list = wrapped.Draws
	} else if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}

	out := make([]models.DrawSummary, 0, len(list))
	for _, w := range list {
		out = append(out, w.toModel())
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}
