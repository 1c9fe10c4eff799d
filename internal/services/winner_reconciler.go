package services

import (
	"sort"
	"time"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
)

const (
	// FillerToken is rendered for an empty grid cell.
	FillerToken = "-"
	// WithheldToken is rendered for a winner sent without any identifier,
	// so a filled cell never looks empty.
	WithheldToken = "***"
)

// DisplayWinner renders one winner for a viewer.
func DisplayWinner(w models.WinnerRecord, privileged bool) string {
	if v := w.DisplayMSISDN(privileged); v != "" {
		return v
	}
	return WithheldToken
}

// Slot is one grid cell. A nil Winner is a placeholder.
type Slot struct {
	Winner *models.WinnerRecord `json:"winner,omitempty"`
}

// Empty reports whether the slot is a placeholder.
func (s Slot) Empty() bool {
	return s.Winner == nil
}

// Display renders the slot for a viewer.
func (s Slot) Display(privileged bool) string {
	if s.Winner == nil {
		return FillerToken
	}
	return DisplayWinner(*s.Winner, privileged)
}

// TierRow is one prize of a tier with the runner-ups shown against it.
type TierRow struct {
	Winner    Slot   `json:"winner"`
	RunnerUps []Slot `json:"runnerUps"`
}

// TierView is the reconciled grid of one tier.
type TierView struct {
	TierName              string    `json:"tierName"`
	PrizeCount            int       `json:"prizeCount"`
	RunnerUpCountPerPrize int       `json:"runnerUpCountPerPrize"`
	Rows                  []TierRow `json:"rows"`
	// Overflow holds runner-ups beyond the last row's stride.
	Overflow []models.WinnerRecord `json:"overflow,omitempty"`
}

// Grid renders the tier as rows of 1 + RunnerUpCountPerPrize cells.
func (t TierView) Grid(privileged bool) [][]string {
	grid := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, 0, 1+len(row.RunnerUps))
		cells = append(cells, row.Winner.Display(privileged))
		for _, ru := range row.RunnerUps {
			cells = append(cells, ru.Display(privileged))
		}
		grid[i] = cells
	}
	return grid
}

// ReconciledView is the display form of a draw result against its prize
// structure.
type ReconciledView struct {
	DrawID string     `json:"drawId"`
	Date   time.Time  `json:"date"`
	Tiers  []TierView `json:"tiers"`
	// Unmatched holds winners whose tier is not part of the structure.
	Unmatched []models.WinnerRecord `json:"unmatched,omitempty"`
}

// ReconcileWinners lays the winners of result out per tier of structure.
// Row i of a tier shows the i-th main winner by position and the runner-ups
// at positions i*k .. (i+1)*k, where k is the tier's runner-up count. Missing
// cells are placeholders, so every tier is a full rectangle. The inputs are
// not modified.
func ReconcileWinners(result models.DrawResult, structure models.PrizeStructure) ReconciledView {
	view := ReconciledView{
		DrawID: result.DrawID,
		Date:   result.Date,
	}

	byTier := make(map[string][]models.WinnerRecord)
	for _, w := range result.Winners {
		byTier[w.TierName] = append(byTier[w.TierName], w)
	}

	tiers := structure.SortedTiers()
	known := make(map[string]bool, len(tiers))
	view.Tiers = make([]TierView, 0, len(tiers))
	for _, tier := range tiers {
		known[tier.Name] = true
		view.Tiers = append(view.Tiers, reconcileTier(tier, byTier[tier.Name]))
	}

	for _, w := range result.Winners {
		if !known[w.TierName] {
			view.Unmatched = append(view.Unmatched, w)
		}
	}
	return view
}

func reconcileTier(tier models.PrizeTier, winners []models.WinnerRecord) TierView {
	prizeCount := max(tier.PrizeCount, 0)
	stride := max(tier.RunnerUpCountPerPrize, 0)

	var mains, alternates []models.WinnerRecord
	for _, w := range winners {
		if w.IsRunnerUp {
			alternates = append(alternates, w)
		} else {
			mains = append(mains, w)
		}
	}
	sortByPosition(mains)
	sortByPosition(alternates)

	rowCount := max(prizeCount, len(mains))
	view := TierView{
		TierName:              tier.Name,
		PrizeCount:            prizeCount,
		RunnerUpCountPerPrize: stride,
		Rows:                  make([]TierRow, rowCount),
	}
	for i := 0; i < rowCount; i++ {
		row := TierRow{RunnerUps: make([]Slot, stride)}
		if i < len(mains) {
			row.Winner = Slot{Winner: &mains[i]}
		}
		for j := 0; j < stride; j++ {
			if idx := i*stride + j; idx < len(alternates) {
				row.RunnerUps[j] = Slot{Winner: &alternates[idx]}
			}
		}
		view.Rows[i] = row
	}
	if placed := rowCount * stride; len(alternates) > placed {
		view.Overflow = alternates[placed:]
	}
	return view
}

func sortByPosition(winners []models.WinnerRecord) {
	sort.SliceStable(winners, func(i, j int) bool {
		return winners[i].Position < winners[j].Position
	})
}
