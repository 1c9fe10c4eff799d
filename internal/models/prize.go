package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// PrizeTier is a named prize category inside a PrizeStructure.
type PrizeTier struct {
	ID                    string  `json:"id,omitempty"`
	Name                  string  `json:"name"`
	Amount                float64 `json:"amount,omitempty"`
	PrizeCount            int     `json:"prizeCount"`
	RunnerUpCountPerPrize int     `json:"runnerUpCountPerPrize"`
	OrderIndex            int     `json:"orderIndex"`
}

// PrizeStructure groups the tiers that apply to draws on eligible days.
type PrizeStructure struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	EffectiveDate    time.Time      `json:"effectiveDate"`
	EligibleWeekdays []time.Weekday `json:"eligibleWeekdays"`
	Tiers            []PrizeTier    `json:"tiers"`
}

// Usable reports why the structure cannot run a draw, or nil if it can.
func (p PrizeStructure) Usable() error {
	if len(p.Tiers) == 0 {
		return errors.New("prize structure has no tiers")
	}
	if len(p.EligibleWeekdays) == 0 {
		return errors.New("prize structure has no eligible weekdays")
	}
	seen := make(map[string]bool, len(p.Tiers))
	for _, t := range p.Tiers {
		if t.Name == "" {
			return errors.New("prize tier has no name")
		}
		if seen[t.Name] {
			return fmt.Errorf("prize tier %q is defined twice", t.Name)
		}
		seen[t.Name] = true
		if t.PrizeCount < 1 {
			return fmt.Errorf("prize tier %q must have at least one prize", t.Name)
		}
		if t.RunnerUpCountPerPrize < 0 {
			return fmt.Errorf("prize tier %q has a negative runner-up count", t.Name)
		}
	}
	return nil
}

// IsEligibleOn reports whether draws may run on the given weekday.
func (p PrizeStructure) IsEligibleOn(day time.Weekday) bool {
	for _, d := range p.EligibleWeekdays {
		if d == day {
			return true
		}
	}
	return false
}

// ValidFor reports whether the structure applies to a draw on date: it must
// already be effective and the date's weekday must be eligible.
func (p PrizeStructure) ValidFor(date time.Time) bool {
	date = TruncateToDate(date)
	if !p.EffectiveDate.IsZero() && TruncateToDate(p.EffectiveDate).After(date) {
		return false
	}
	return p.IsEligibleOn(date.Weekday())
}

// SortedTiers returns the tiers in display order without touching p.
func (p PrizeStructure) SortedTiers() []PrizeTier {
	tiers := make([]PrizeTier, len(p.Tiers))
	copy(tiers, p.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].OrderIndex < tiers[j].OrderIndex
	})
	return tiers
}

// ParseWeekday parses a full English day name, case-insensitively.
func ParseWeekday(day string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(day)) {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	default:
		return 0, false
	}
}
