package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/services"
	"github.com/ArowuTest/bridgetunes-draw-console/internal/utils"
)

func jackpotView() services.ReconciledView {
	structure := models.PrizeStructure{
		ID:               "ps-1",
		EligibleWeekdays: []time.Weekday{time.Wednesday},
		Tiers:            []models.PrizeTier{{Name: "Jackpot", PrizeCount: 1, RunnerUpCountPerPrize: 2}},
	}
	result := models.DrawResult{
		DrawID: "d-1",
		Winners: []models.WinnerRecord{
			{TierName: "Jackpot", Position: 1, MaskedMSISDN: "080***222", FullMSISDN: "08011112222"},
			{TierName: "Jackpot", Position: 1, IsRunnerUp: true, MaskedMSISDN: "080***666"},
			{TierName: "Bonus", Position: 1, MaskedMSISDN: "070***000"},
		},
	}
	return services.ReconcileWinners(result, structure)
}

func TestPrintView(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printView(&buf, jackpotView(), false))

	out := buf.String()
	assert.Contains(t, out, "Jackpot (1 prizes, 2 runner-ups each)")
	assert.Contains(t, out, "RUNNER-UP 2")
	assert.Contains(t, out, "080***222")
	assert.NotContains(t, out, "08011112222")
	assert.Contains(t, out, "Winners in tiers missing from the prize structure: Bonus/070***000")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, []string{"1", "080***222", "080***666", "-"}, strings.Fields(lines[2]))
}

func TestPrintView_Privileged(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printView(&buf, jackpotView(), true))
	assert.Contains(t, buf.String(), "08011112222")
}

func TestConfirmRerun(t *testing.T) {
	tests := []struct {
		name    string
		yes     bool
		noRerun bool
		input   string
		want    bool
	}{
		{name: "flag yes", yes: true, want: true},
		{name: "flag no", noRerun: true, input: "y\n", want: false},
		{name: "typed y", input: "y\n", want: true},
		{name: "typed yes", input: " YES \n", want: true},
		{name: "typed n", input: "n\n", want: false},
		{name: "empty answer", input: "\n", want: false},
		{name: "eof", input: "", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runYes, runNoRerun = tc.yes, tc.noRerun
			defer func() { runYes, runNoRerun = false, false }()

			var out bytes.Buffer
			got, err := confirmRerun(strings.NewReader(tc.input), &out, "abc")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// promoBackend fakes the promo API: the draw for 2025-06-04 already exists.
func promoBackend(t *testing.T, reruns *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/prize-structures":
			w.Write([]byte(`[{"ID":"ps-1","Name":"Daily","Effective":"2025-06-01",
				"EligibleDays":["Wednesday"],
				"Tiers":[{"TierName":"Jackpot","Quantity":1,"RunnerUpCount":1}]}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/draws/execute":
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"A draw already exists for 2025-06-04","rerun_eligible":true,"existing_draw_id":"abc"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/draws/abc/rerun":
			atomic.AddInt32(reruns, 1)
			w.Write([]byte(`{"drawId":"d-2","date":"2025-06-04","winners":[
				{"prizeTier":"Jackpot","position":1,"msisdn":"080***222"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupEnv(t *testing.T, srv *httptest.Server) {
	t.Helper()
	token, err := utils.GenerateJWT("ops", models.RoleAdmin, "backend-secret", time.Hour)
	require.NoError(t, err)

	t.Setenv("DRAWCONSOLE_CONFIG_DIR", t.TempDir())
	t.Setenv("DRAWCONSOLE_API_BASE_URL", srv.URL+"/api/v1")
	t.Setenv("DRAWCONSOLE_API_TOKEN", token)
	t.Setenv("DRAWCONSOLE_API_MAX_RETRIES", "0")
	t.Setenv("DRAWCONSOLE_DRAW_SPIN_DELAY_MS", "0")
	t.Setenv("DRAWCONSOLE_LOG_LEVEL", "error")
	t.Cleanup(resetFlags)
}

// resetFlags clears flag values and their changed state between runs of
// the shared command tree.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunCommand_RerunConfirmedAtPrompt(t *testing.T) {
	var reruns int32
	setupEnv(t, promoBackend(t, &reruns))

	out, err := execute(t, "y\n", "run", "--date", "2025-06-04", "--structure", "ps-1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "A draw already exists for 2025-06-04")
	assert.Contains(t, out, "Rerun draw abc?")
	assert.Contains(t, out, "Draw d-2 completed for 2025-06-04")
	assert.Contains(t, out, "080***222")
	assert.Equal(t, int32(1), atomic.LoadInt32(&reruns))
}

func TestRunCommand_RerunDeclined(t *testing.T) {
	var reruns int32
	setupEnv(t, promoBackend(t, &reruns))

	out, err := execute(t, "", "run", "--date", "2025-06-04", "--structure", "ps-1", "--no-rerun")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Rerun declined")
	assert.Zero(t, atomic.LoadInt32(&reruns))
}

func TestRunCommand_StructureNotValidForDate(t *testing.T) {
	var reruns int32
	setupEnv(t, promoBackend(t, &reruns))

	_, err := execute(t, "", "run", "--date", "2025-06-03", "--structure", "ps-1", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid for 2025-06-03")
}

func TestValidateCommand(t *testing.T) {
	var reruns int32
	setupEnv(t, promoBackend(t, &reruns))

	dir := t.TempDir()
	good := filepath.Join(dir, "entries.csv")
	require.NoError(t, os.WriteFile(good, []byte("MSISDN,Points\n08011112222,3\nbad,x\n"), 0o600))
	out, err := execute(t, "", "validate", "--file", good)
	require.NoError(t, err)
	assert.Contains(t, out, "Valid: 1")
	assert.Contains(t, out, "Skipped: 1")

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("MSISDN,Points\n"), 0o600))
	_, err = execute(t, "", "validate", "--file", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSV contains no valid msisdn & points rows.")
}

func TestStructuresCommand(t *testing.T) {
	var reruns int32
	setupEnv(t, promoBackend(t, &reruns))

	out, err := execute(t, "", "structures", "--date", "2025-06-04")
	require.NoError(t, err)
	assert.Contains(t, out, "ps-1")
	assert.Contains(t, out, "Daily")

	out, err = execute(t, "", "structures", "--date", "2025-06-05")
	require.NoError(t, err)
	assert.Contains(t, out, "No prize structures are valid for 2025-06-05")
}

func TestAuditCommand(t *testing.T) {
	var reruns int32
	setupEnv(t, promoBackend(t, &reruns))

	out, err := execute(t, "", "audit", "--date", "2025-06-04")
	require.NoError(t, err, out)
	assert.Contains(t, out, "OPERATOR")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)

	_, err = execute(t, "", "audit", "--date", "04/06/2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parse --date "04/06/2025"`)
}

func TestRootCommandWrapsLoggerError(t *testing.T) {
	var reruns int32
	setupEnv(t, promoBackend(t, &reruns))
	t.Setenv("DRAWCONSOLE_LOG_LEVEL", "loud")

	_, err := execute(t, "", "structures", "--date", "2025-06-04")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init logger")
	assert.Contains(t, err.Error(), "parse log level")
}
