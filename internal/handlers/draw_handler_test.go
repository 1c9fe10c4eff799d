package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/apperrors"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/repositories"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubBackend struct {
	mu sync.Mutex

	executeErr   error
	executeCalls []models.DrawRequest
	rerunIDs     []string
	winners      *models.DrawWinners
}

func (b *stubBackend) Execute(ctx context.Context, session models.Session, req models.DrawRequest) (*models.DrawResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.executeCalls = append(b.executeCalls, req)
	if b.executeErr != nil {
		return nil, b.executeErr
	}
	return drawResult("draw-1"), nil
}

func (b *stubBackend) Rerun(ctx context.Context, session models.Session, existingDrawID string, req models.DrawRequest) (*models.DrawResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rerunIDs = append(b.rerunIDs, existingDrawID)
	return drawResult("draw-2"), nil
}

func (b *stubBackend) ListValidForDate(ctx context.Context, session models.Session, date time.Time) ([]models.PrizeStructure, error) {
	ps := structure()
	if !ps.ValidFor(date) {
		return nil, nil
	}
	return []models.PrizeStructure{ps}, nil
}

func (b *stubBackend) FetchByDrawID(ctx context.Context, session models.Session, drawID string) (*models.DrawWinners, error) {
	return b.winners, nil
}

func (b *stubBackend) ListDraws(ctx context.Context, session models.Session) ([]models.DrawSummary, error) {
	return []models.DrawSummary{
		{ID: "old", Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "new", Date: time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)},
	}, nil
}

func structure() models.PrizeStructure {
	return models.PrizeStructure{
		ID:               "ps-daily",
		Name:             "Daily",
		EligibleWeekdays: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		Tiers: []models.PrizeTier{
			{Name: "Jackpot", PrizeCount: 1, RunnerUpCountPerPrize: 1},
		},
	}
}

func drawResult(id string) *models.DrawResult {
	return &models.DrawResult{
		DrawID: id,
		Date:   time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		Winners: []models.WinnerRecord{
			{TierName: "Jackpot", Position: 1, MaskedMSISDN: "080***222", FullMSISDN: "08011112222"},
		},
	}
}

func newTestRouter(backend *stubBackend, session *models.Session) (*gin.Engine, repositories.DrawAuditRepository) {
	audit := repositories.NewMemoryDrawAuditRepository(10)
	h := NewDrawHandler(services.NewConsoleService(backend, audit, services.ConsoleOptions{}))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if session != nil {
			c.Set("session", *session)
		}
		c.Next()
	})
	r.GET("/prize-structures", h.ListPrizeStructures)
	r.POST("/draws/execute", h.ExecuteDraw)
	r.POST("/draws/rerun/confirm", h.ConfirmRerun)
	r.POST("/draws/rerun/decline", h.DeclineRerun)
	r.GET("/draws/state", h.GetState)
	r.GET("/draws", h.ListDraws)
	r.GET("/draws/audit", h.ListAudit)
	r.GET("/draws/:id/winners", h.GetWinners)
	r.POST("/entries/validate", h.ValidateEntries)
	return r, audit
}

func admin() *models.Session {
	return &models.Session{Subject: "ops", Role: models.RoleAdmin, Token: "t"}
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doUpload(r *gin.Engine, path string, fields map[string]string, filename, content string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if filename != "" {
		fw, _ := mw.CreateFormFile("file", filename)
		_, _ = fw.Write([]byte(content))
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestListPrizeStructures(t *testing.T) {
	r, _ := newTestRouter(&stubBackend{}, admin())

	w := doJSON(r, http.MethodGet, "/prize-structures?date=2025-06-04", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ps-daily"`)

	w = doJSON(r, http.MethodGet, "/prize-structures?date=04-06-2025", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExecuteDraw_JSON(t *testing.T) {
	backend := &stubBackend{}
	r, audit := newTestRouter(backend, admin())

	w := doJSON(r, http.MethodPost, "/draws/execute", gin.H{
		"draw_date":          "2025-06-04",
		"prize_structure_id": "ps-daily",
		"msisdn_entries": []gin.H{
			{"msisdn": " 08011112222 ", "points": 3},
			{"msisdn": "", "points": 2},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "COMPLETED", body["state"])
	reconciled := body["reconciled"].(map[string]any)
	tiers := reconciled["tiers"].([]any)
	require.Len(t, tiers, 1)
	grid := tiers[0].(map[string]any)["grid"].([]any)
	assert.Equal(t, []any{"080***222", "-"}, grid[0])

	require.Len(t, backend.executeCalls, 1)
	assert.Equal(t, []models.ParticipantEntry{{MSISDN: "08011112222", Points: 3}}, backend.executeCalls[0].Entries)

	entries, err := audit.FindRecent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditOutcomeCompleted, entries[0].Outcome)
}

func TestExecuteDraw_Validation(t *testing.T) {
	tests := []struct {
		name string
		body gin.H
		msg  string
	}{
		{
			name: "missing structure",
			body: gin.H{"draw_date": "2025-06-04"},
			msg:  apperrors.FallbackValidation,
		},
		{
			name: "structure not valid for date",
			body: gin.H{"draw_date": "2025-06-03", "prize_structure_id": "ps-daily"},
			msg:  "prize structure ps-daily is not valid for 2025-06-03",
		},
		{
			name: "entries all filtered out",
			body: gin.H{"draw_date": "2025-06-04", "prize_structure_id": "ps-daily", "msisdn_entries": []gin.H{{"msisdn": "080", "points": 0}}},
			msg:  "CSV contains no valid msisdn & points rows.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			backend := &stubBackend{}
			r, _ := newTestRouter(backend, admin())

			w := doJSON(r, http.MethodPost, "/draws/execute", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.msg, decode(t, w)["error"])
			assert.Empty(t, backend.executeCalls)
		})
	}
}

func TestExecuteDraw_Upload(t *testing.T) {
	backend := &stubBackend{}
	r, _ := newTestRouter(backend, admin())

	w := doUpload(r, "/draws/execute",
		map[string]string{"draw_date": "2025-06-04", "prize_structure_id": "ps-daily"},
		"entries.csv", "MSISDN,Points\n08011112222,3\nbad,x\n08055556666,1\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, backend.executeCalls, 1)
	assert.Len(t, backend.executeCalls[0].Entries, 2)

	w = doUpload(r, "/draws/execute",
		map[string]string{"draw_date": "2025-06-04", "prize_structure_id": "ps-daily"},
		"entries.csv", "MSISDN,Points\nbad,x\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, backend.executeCalls, 1)
}

func TestExecuteDraw_ConflictThenConfirm(t *testing.T) {
	backend := &stubBackend{executeErr: &apperrors.ConflictError{
		StatusCode:     http.StatusConflict,
		RerunEligible:  true,
		ExistingDrawID: "draw-1",
		Message:        "A draw already exists for 2025-06-04",
	}}
	r, _ := newTestRouter(backend, admin())

	w := doJSON(r, http.MethodPost, "/draws/execute", gin.H{"draw_date": "2025-06-04", "prize_structure_id": "ps-daily"})
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "draw-1", body["existing_draw_id"])
	assert.Equal(t, true, body["rerun_eligible"])

	w = doJSON(r, http.MethodGet, "/draws/state", nil)
	assert.Equal(t, "CONFLICT_PENDING", decode(t, w)["state"])

	w = doJSON(r, http.MethodPost, "/draws/rerun/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "COMPLETED", body["state"])
	assert.Equal(t, []string{"draw-1"}, backend.rerunIDs)
	reconciled, ok := body["reconciled"].(map[string]any)
	require.True(t, ok, "rerun response carries the winners grid")
	assert.Equal(t, "draw-2", reconciled["drawId"])
	tiers := reconciled["tiers"].([]any)
	require.Len(t, tiers, 1)
	grid := tiers[0].(map[string]any)["grid"].([]any)
	assert.Equal(t, []any{"080***222", "-"}, grid[0])

	w = doJSON(r, http.MethodPost, "/draws/rerun/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, backend.rerunIDs, 1)
}

func TestExecuteDraw_ConflictThenDecline(t *testing.T) {
	backend := &stubBackend{executeErr: &apperrors.ConflictError{RerunEligible: true, ExistingDrawID: "draw-1"}}
	r, _ := newTestRouter(backend, admin())

	w := doJSON(r, http.MethodPost, "/draws/execute", gin.H{"draw_date": "2025-06-04", "prize_structure_id": "ps-daily"})
	require.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, "/draws/rerun/decline", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "IDLE", decode(t, w)["state"])
	assert.Empty(t, backend.rerunIDs)
}

func TestExecuteDraw_BackendFailure(t *testing.T) {
	backend := &stubBackend{executeErr: &apperrors.ExecutionError{StatusCode: 500, Message: "upstream exploded"}}
	r, _ := newTestRouter(backend, admin())

	w := doJSON(r, http.MethodPost, "/draws/execute", gin.H{"draw_date": "2025-06-04", "prize_structure_id": "ps-daily"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upstream exploded", decode(t, w)["error"])
}

func TestGetWinners_Masking(t *testing.T) {
	backend := &stubBackend{winners: &models.DrawWinners{
		PrizeStructure: structure(),
		Winners: []models.WinnerRecord{
			{TierName: "Jackpot", Position: 1, MaskedMSISDN: "080***222", FullMSISDN: "08011112222"},
			{TierName: "Jackpot", Position: 1, IsRunnerUp: true, MaskedMSISDN: "080***666", FullMSISDN: "08055556666"},
			{TierName: "Retired", Position: 1, MaskedMSISDN: "070***000", FullMSISDN: "07000000000"},
		},
	}}

	r, _ := newTestRouter(backend, admin())
	w := doJSON(r, http.MethodGet, "/draws/d-1/winners", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `["080***222","080***666"]`)
	assert.Contains(t, w.Body.String(), `"unmatched"`)
	assert.NotContains(t, w.Body.String(), "08011112222")

	super := &models.Session{Subject: "root", Role: models.RoleSuperAdmin}
	r, _ = newTestRouter(backend, super)
	w = doJSON(r, http.MethodGet, "/draws/d-1/winners", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `["08011112222","08055556666"]`)
}

func TestListDrawsAndAudit(t *testing.T) {
	r, _ := newTestRouter(&stubBackend{}, admin())

	w := doJSON(r, http.MethodGet, "/draws", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Less(t, strings.Index(w.Body.String(), `"new"`), strings.Index(w.Body.String(), `"old"`))

	w = doJSON(r, http.MethodGet, "/draws/audit?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/draws/audit", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	w = doJSON(r, http.MethodPost, "/draws/execute", gin.H{"draw_date": "2025-06-04", "prize_structure_id": "ps-daily"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/draws/audit?date=2025-06-04", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var onDay []models.DrawAudit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &onDay))
	require.Len(t, onDay, 1)
	assert.Equal(t, "draw-1", onDay[0].DrawID)

	w = doJSON(r, http.MethodGet, "/draws/audit?date=2025-06-05", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	w = doJSON(r, http.MethodGet, "/draws/audit?date=June", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateEntries(t *testing.T) {
	r, _ := newTestRouter(&stubBackend{}, admin())

	w := doUpload(r, "/entries/validate", nil, "entries.csv", "MSISDN,Points\n08011112222,3\n,4\n")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["valid"])
	assert.Equal(t, float64(2), body["total_rows"])
	assert.Equal(t, float64(1), body["skipped"])

	w = doUpload(r, "/entries/validate", nil, "entries.csv", "MSISDN,Points\n")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doUpload(r, "/entries/validate", nil, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequiresSession(t *testing.T) {
	r, _ := newTestRouter(&stubBackend{}, nil)

	w := doJSON(r, http.MethodGet, "/draws/state", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
