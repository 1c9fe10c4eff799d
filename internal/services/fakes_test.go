package services

import (
	"context"
	"sync"
	"time"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
)

type rerunCall struct {
	existingID string
	req        models.DrawRequest
}

// fakeBackend records calls and replays canned responses.
type fakeBackend struct {
	mu sync.Mutex

	executeResults []*models.DrawResult
	executeErrs    []error
	rerunResult    *models.DrawResult
	rerunErr       error

	executeCalls []models.DrawRequest
	rerunCalls   []rerunCall
	sessions     []models.Session

	// block, when set, holds Execute until it is closed
	block   chan struct{}
	started chan struct{}

	structures     []models.PrizeStructure
	structureCalls int
	draws          []models.DrawSummary
	drawCalls      int
	// listBlock, when set, holds ListDraws after it has read draws
	listBlock   chan struct{}
	listStarted chan struct{}
	winners        *models.DrawWinners
	winnersErr     error
}

func (f *fakeBackend) Execute(ctx context.Context, session models.Session, req models.DrawRequest) (*models.DrawResult, error) {
	f.mu.Lock()
	n := len(f.executeCalls)
	f.executeCalls = append(f.executeCalls, req)
	f.sessions = append(f.sessions, session)
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var (
		res *models.DrawResult
		err error
	)
	if n < len(f.executeResults) {
		res = f.executeResults[n]
	}
	if n < len(f.executeErrs) {
		err = f.executeErrs[n]
	}
	return res, err
}

func (f *fakeBackend) Rerun(ctx context.Context, session models.Session, existingDrawID string, req models.DrawRequest) (*models.DrawResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rerunCalls = append(f.rerunCalls, rerunCall{existingID: existingDrawID, req: req})
	f.sessions = append(f.sessions, session)
	return f.rerunResult, f.rerunErr
}

func (f *fakeBackend) ListValidForDate(ctx context.Context, session models.Session, date time.Time) ([]models.PrizeStructure, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.structureCalls++
	var out []models.PrizeStructure
	for _, ps := range f.structures {
		if ps.ValidFor(date) {
			out = append(out, ps)
		}
	}
	return out, nil
}

func (f *fakeBackend) FetchByDrawID(ctx context.Context, session models.Session, drawID string) (*models.DrawWinners, error) {
	return f.winners, f.winnersErr
}

func (f *fakeBackend) ListDraws(ctx context.Context, session models.Session) ([]models.DrawSummary, error) {
	f.mu.Lock()
	f.drawCalls++
	out := make([]models.DrawSummary, len(f.draws))
	copy(out, f.draws)
	block, started := f.listBlock, f.listStarted
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return out, nil
}

func (f *fakeBackend) setDraws(draws []models.DrawSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draws = draws
	f.listBlock, f.listStarted = nil, nil
}

func (f *fakeBackend) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.executeCalls), len(f.rerunCalls)
}

func drawDate() time.Time {
	return time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
}

func sampleRequest() models.DrawRequest {
	return models.DrawRequest{
		DrawDate:         drawDate(),
		PrizeStructureID: "ps-daily",
		Entries: []models.ParticipantEntry{
			{MSISDN: "08011112222", Points: 3},
			{MSISDN: "08055556666", Points: 1},
		},
	}
}

func dailyStructure() models.PrizeStructure {
	return models.PrizeStructure{
		ID:               "ps-daily",
		Name:             "Daily",
		EffectiveDate:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EligibleWeekdays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		Tiers: []models.PrizeTier{
			{Name: "Jackpot", PrizeCount: 2, RunnerUpCountPerPrize: 1, OrderIndex: 0},
		},
	}
}
