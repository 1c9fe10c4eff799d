package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/apperrors"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/middleware"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/services"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/utils"
)

// maxUploadBytes bounds participant uploads
const maxUploadBytes = 10 << 20

// DrawHandler handles the draw console HTTP requests
type DrawHandler struct {
	console *services.ConsoleService
}

// NewDrawHandler creates a new DrawHandler
func NewDrawHandler(console *services.ConsoleService) *DrawHandler {
	return &DrawHandler{
		console: console,
	}
}

// ExecuteDrawRequest is the JSON body of POST /draws/execute
type ExecuteDrawRequest struct {
	DrawDate         string                    `json:"draw_date" form:"draw_date"`
	PrizeStructureID string                    `json:"prize_structure_id" form:"prize_structure_id"`
	MSISDNEntries    []models.ParticipantEntry `json:"msisdn_entries" form:"-"`
}

// ListPrizeStructures handles GET /prize-structures?date=YYYY-MM-DD
func (h *DrawHandler) ListPrizeStructures(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	date, err := models.ParseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format (YYYY-MM-DD)"})
		return
	}

	list, err := h.console.PrizeStructures(c.Request.Context(), session, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ExecuteDraw handles POST /draws/execute with either a JSON body or a
// multipart form carrying an optional participant file
func (h *DrawHandler) ExecuteDraw(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}

	var body ExecuteDrawRequest
	in := services.DrawRequestInput{}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if fh, err := c.FormFile("file"); err == nil {
			imp, err := readUpload(fh)
			if err != nil {
				respondError(c, err)
				return
			}
			if err := utils.RequireEntries(imp.Entries); err != nil {
				respondError(c, err)
				return
			}
			in.Entries = imp.Entries
		}
	} else {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if len(body.MSISDNEntries) > 0 {
			in.Entries = utils.FilterEntries(body.MSISDNEntries)
			if err := utils.RequireEntries(in.Entries); err != nil {
				respondError(c, err)
				return
			}
		}
	}
	in.DrawDateText = body.DrawDate
	in.PrizeStructureID = body.PrizeStructureID

	// an unselected date or structure is reported by the builder
	if date, err := models.ParseDate(strings.TrimSpace(body.DrawDate)); err == nil && strings.TrimSpace(body.PrizeStructureID) != "" {
		ps, err := h.console.ResolvePrizeStructure(c.Request.Context(), session, date, strings.TrimSpace(body.PrizeStructureID))
		if err != nil {
			respondError(c, err)
			return
		}
		in.PrizeStructure = ps
	}

	req, err := services.BuildDrawRequest(in)
	if err != nil {
		respondError(c, err)
		return
	}

	controller := h.console.Controller(session)
	result, err := controller.Execute(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"state": controller.State(), "draw": result}
	if in.PrizeStructure != nil {
		resp["reconciled"] = presentView(services.ReconcileWinners(*result, *in.PrizeStructure), session.Privileged())
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmRerun handles POST /draws/rerun/confirm
func (h *DrawHandler) ConfirmRerun(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	controller := h.console.Controller(session)
	pending := controller.Snapshot().Request
	result, err := controller.ConfirmRerun(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"state": controller.State(), "draw": result}
	if pending != nil && result != nil {
		ps, err := h.console.ResolvePrizeStructure(c.Request.Context(), session, pending.DrawDate, pending.PrizeStructureID)
		if err != nil {
			zap.L().Warn("rerun succeeded but its prize structure could not be resolved",
				zap.String("draw_id", result.DrawID), zap.Error(err))
		} else {
			resp["reconciled"] = presentView(services.ReconcileWinners(*result, *ps), session.Privileged())
		}
	}
	c.JSON(http.StatusOK, resp)
}

// DeclineRerun handles POST /draws/rerun/decline
func (h *DrawHandler) DeclineRerun(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	controller := h.console.Controller(session)
	if err := controller.DeclineRerun(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": controller.State()})
}

// GetState handles GET /draws/state
func (h *DrawHandler) GetState(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.console.Controller(session).Snapshot())
}

// ListDraws handles GET /draws
func (h *DrawHandler) ListDraws(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	draws, err := h.console.Draws(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draws)
}

// ListAudit handles GET /draws/audit?limit=N or GET /draws/audit?date=YYYY-MM-DD.
// A date returns every entry for that day and ignores limit.
func (h *DrawHandler) ListAudit(c *gin.Context) {
	var (
		entries []*models.DrawAudit
		err     error
	)
	if raw, ok := c.GetQuery("date"); ok {
		date, perr := models.ParseDate(strings.TrimSpace(raw))
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		entries, err = h.console.AuditForDate(c.Request.Context(), date)
	} else {
		limit, perr := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if perr != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		entries, err = h.console.Audit(c.Request.Context(), limit)
	}
	if err != nil {
		zap.L().Error("failed to list draw audit", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audit trail"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetWinners handles GET /draws/:id/winners
func (h *DrawHandler) GetWinners(c *gin.Context) {
	session, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	view, err := h.console.Winners(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presentView(view, session.Privileged()))
}

// ValidateEntries handles POST /entries/validate, checking an upload
// without submitting anything
func (h *DrawHandler) ValidateEntries(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	imp, err := readUpload(fh)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"valid":      len(imp.Entries),
		"total_rows": imp.TotalRows,
		"skipped":    imp.Skipped(),
	}
	if err := utils.RequireEntries(imp.Entries); err != nil {
		resp["error"] = apperrors.UserMessage(err)
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func sessionOrAbort(c *gin.Context) (models.Session, bool) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	}
	return session, ok
}

func readUpload(fh *multipart.FileHeader) (*utils.EntryImport, error) {
	if fh.Size > maxUploadBytes {
		return nil, apperrors.NewValidationError("file", "file is larger than 10 MB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, &apperrors.ParseError{Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return nil, &apperrors.ParseError{Err: err}
	}
	return utils.ParseEntriesFile(fh.Filename, data)
}

// respondError maps err onto a status code and the operator-facing message
func respondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	body := gin.H{"error": apperrors.UserMessage(err), "kind": kind}

	status := http.StatusBadGateway
	var ce *apperrors.ConflictError
	switch {
	case errors.Is(err, apperrors.ErrNoPendingRerun):
		status = http.StatusBadRequest
		body["error"] = err.Error()
	case kind == apperrors.KindParse, kind == apperrors.KindValidation:
		status = http.StatusBadRequest
	case errors.As(err, &ce):
		status = http.StatusConflict
		body["existing_draw_id"] = ce.ExistingDrawID
		body["rerun_eligible"] = ce.RerunEligible
	case kind == apperrors.KindBusy:
		status = http.StatusTooManyRequests
	}

	if status >= 500 {
		zap.L().Error("draw console request failed", zap.Error(err), zap.String("request_id", middleware.RequestID(c)))
	}
	c.JSON(status, body)
}

type tierPresentation struct {
	TierName              string     `json:"tierName"`
	PrizeCount            int        `json:"prizeCount"`
	RunnerUpCountPerPrize int        `json:"runnerUpCountPerPrize"`
	Grid                  [][]string `json:"grid"`
	Overflow              []string   `json:"overflow,omitempty"`
}

type winnerPresentation struct {
	TierName   string `json:"tierName"`
	Position   int    `json:"position"`
	IsRunnerUp bool   `json:"isRunnerUp"`
	MSISDN     string `json:"msisdn"`
}

// presentView renders a reconciled view with identifiers the viewer may see
func presentView(view services.ReconciledView, privileged bool) gin.H {
	tiers := make([]tierPresentation, 0, len(view.Tiers))
	for _, t := range view.Tiers {
		tp := tierPresentation{
			TierName:              t.TierName,
			PrizeCount:            t.PrizeCount,
			RunnerUpCountPerPrize: t.RunnerUpCountPerPrize,
			Grid:                  t.Grid(privileged),
		}
		for _, w := range t.Overflow {
			tp.Overflow = append(tp.Overflow, services.DisplayWinner(w, privileged))
		}
		tiers = append(tiers, tp)
	}

	unmatched := make([]winnerPresentation, 0, len(view.Unmatched))
	for _, w := range view.Unmatched {
		unmatched = append(unmatched, winnerPresentation{
			TierName:   w.TierName,
			Position:   w.Position,
			IsRunnerUp: w.IsRunnerUp,
			MSISDN:     services.DisplayWinner(w, privileged),
		})
	}

	resp := gin.H{
		"drawId": view.DrawID,
		"tiers":  tiers,
	}
	if !view.Date.IsZero() {
		resp["date"] = view.Date.Format(models.DateLayout)
	}
	if len(unmatched) > 0 {
		resp["unmatched"] = unmatched
	}
	return resp
}
