package services

import (
	"strings"
	"time"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/apperrors"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
)

// DrawRequestInput is what the operator has selected so far. DrawDate takes
// precedence over DrawDateText when both are set.
type DrawRequestInput struct {
	DrawDate         time.Time
	DrawDateText     string
	PrizeStructure   *models.PrizeStructure
	PrizeStructureID string
	Entries          []models.ParticipantEntry
}

// BuildDrawRequest validates the selection and assembles a DrawRequest.
// Entries are copied as given; no entries means a live-feed draw.
func BuildDrawRequest(in DrawRequestInput) (models.DrawRequest, error) {
	date, err := resolveDrawDate(in)
	if err != nil {
		return models.DrawRequest{}, err
	}

	structureID := strings.TrimSpace(in.PrizeStructureID)
	if in.PrizeStructure != nil {
		if err := in.PrizeStructure.Usable(); err != nil {
			return models.DrawRequest{}, apperrors.NewValidationError("prize_structure", err.Error())
		}
		if structureID != "" && structureID != in.PrizeStructure.ID {
			return models.DrawRequest{}, apperrors.NewValidationError("prize_structure",
				"selected prize structure does not match "+structureID)
		}
		structureID = in.PrizeStructure.ID
	}
	if structureID == "" {
		return models.DrawRequest{}, apperrors.NewValidationError("", apperrors.FallbackValidation)
	}

	req := models.DrawRequest{
		DrawDate:         date,
		PrizeStructureID: structureID,
	}
	if len(in.Entries) > 0 {
		req.Entries = make([]models.ParticipantEntry, len(in.Entries))
		copy(req.Entries, in.Entries)
	}
	return req, nil
}

func resolveDrawDate(in DrawRequestInput) (time.Time, error) {
	if !in.DrawDate.IsZero() {
		return models.TruncateToDate(in.DrawDate), nil
	}
	text := strings.TrimSpace(in.DrawDateText)
	if text == "" {
		return time.Time{}, apperrors.NewValidationError("", apperrors.FallbackValidation)
	}
	date, err := models.ParseDate(text)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("draw_date", "draw date must be YYYY-MM-DD")
	}
	return date, nil
}
