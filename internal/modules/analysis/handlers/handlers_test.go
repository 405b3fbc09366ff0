package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/portfolio-sim/internal/modules/analysis"
	"github.com/aristath/portfolio-sim/internal/modules/charts"
	"github.com/aristath/portfolio-sim/internal/modules/dataset"
	testingpkg "github.com/aristath/portfolio-sim/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func setupRouter(t *testing.T) chi.Router {
	t.Helper()
	source := testingpkg.NewMockPriceSource(testingpkg.NewPriceFixtures())
	loader := dataset.NewBuilder(source, zerolog.Nop())
	service := analysis.NewService(loader,
		analysis.Defaults{Simulations: 100, Days: 10, Samples: 200, Workers: 2},
		analysis.Limits{MaxSimulations: 1000, MaxDays: 100, MaxSamples: 1000},
		zerolog.Nop())
	handler := NewHandler(service, charts.NewService(zerolog.Nop()), zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return r
}

func fixturePayload() RequestPayload {
	seed := uint64(42)
	return RequestPayload{
		Tickers:     []string{"AAA", "BBB", "CCC"},
		Investments: map[string]float64{"AAA": 5000, "BBB": 3000, "CCC": 2000},
		StartDate:   testingpkg.FixtureStart.Format("2006-01-02"),
		EndDate:     testingpkg.FixtureStart.AddDate(1, 0, 0).Format("2006-01-02"),
		Seed:        &seed,
	}
}

func post(t *testing.T, r http.Handler, path string, body interface{}, accept string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data     json.RawMessage        `json:"data"`
	Metadata map[string]interface{} `json:"metadata"`
}

func TestHandleRun(t *testing.T) {
	r := setupRouter(t)

	w := post(t, r, "/api/analysis/run", fixturePayload(), "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Contains(t, env.Metadata, "timestamp")

	var report struct {
		Seed            uint64    `json:"seed"`
		Tickers         []string  `json:"tickers"`
		TotalInvestment float64   `json:"total_investment"`
		Weights         []float64 `json:"weights"`
		MonteCarlo      struct {
			Values []float64 `json:"values"`
		} `json:"monte_carlo"`
		Optimization struct {
			Samples []json.RawMessage `json:"samples"`
		} `json:"optimization"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, uint64(42), report.Seed)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, report.Tickers)
	assert.Equal(t, 10000.0, report.TotalInvestment)
	assert.InDeltaSlice(t, []float64{0.5, 0.3, 0.2}, report.Weights, 1e-12)
	assert.Len(t, report.MonteCarlo.Values, 100)
	assert.Len(t, report.Optimization.Samples, 200)
}

func TestHandleBacktest(t *testing.T) {
	r := setupRouter(t)

	w := post(t, r, "/api/analysis/backtest", fixturePayload(), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var data struct {
		Tickers []string               `json:"tickers"`
		Series  []charts.ChartDataPoint `json:"series"`
		Summary map[string]interface{} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, data.Tickers)
	require.NotEmpty(t, data.Series)
	assert.Len(t, data.Series[0].Time, len("2006-01-02"))
	assert.Contains(t, data.Summary, "final_value")
}

func TestHandleMonteCarlo_Msgpack(t *testing.T) {
	r := setupRouter(t)

	w := post(t, r, "/api/analysis/montecarlo", fixturePayload(), "application/msgpack")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/msgpack", w.Header().Get("Content-Type"))

	var decoded map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Contains(t, decoded, "data")
	assert.Contains(t, decoded, "metadata")
}

func TestHandleOptimize(t *testing.T) {
	r := setupRouter(t)

	w := post(t, r, "/api/analysis/optimize", fixturePayload(), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var data struct {
		Tickers []string `json:"tickers"`
		Best    struct {
			Weights []float64 `json:"weights"`
		} `json:"best"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, data.Tickers)
	require.Len(t, data.Best.Weights, 3)
	sum := 0.0
	for _, weight := range data.Best.Weights {
		sum += weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestHandlers_Errors(t *testing.T) {
	r := setupRouter(t)

	unknown := fixturePayload()
	unknown.Tickers = []string{"AAA", "ZZZ"}
	unknown.Investments = map[string]float64{"AAA": 1000}

	noTickers := fixturePayload()
	noTickers.Tickers = nil

	badDate := fixturePayload()
	badDate.StartDate = "01/02/2023"

	reversed := fixturePayload()
	reversed.StartDate, reversed.EndDate = reversed.EndDate, reversed.StartDate

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		substr string
	}{
		{"malformed json", "/api/analysis/run", "{not json", http.StatusBadRequest, "body"},
		{"unknown field", "/api/analysis/run", `{"tickers":["AAA"],"bogus":1}`, http.StatusBadRequest, "body"},
		{"missing tickers", "/api/analysis/backtest", noTickers, http.StatusBadRequest, "tickers"},
		{"bad date", "/api/analysis/montecarlo", badDate, http.StatusBadRequest, "start_date"},
		{"reversed dates", "/api/analysis/optimize", reversed, http.StatusBadRequest, "start"},
		{"unknown ticker", "/api/analysis/run", unknown, http.StatusUnprocessableEntity, "ZZZ"},
		{"unknown chart", "/api/analysis/charts/pie", fixturePayload(), http.StatusBadRequest, "pie"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, r, tt.path, tt.body, "")
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var body errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body.Error, tt.substr)
		})
	}
}

func TestHandleChart(t *testing.T) {
	r := setupRouter(t)
	pngHeader := []byte{0x89, 'P', 'N', 'G'}

	for _, kind := range []string{"backtest", "montecarlo", "frontier"} {
		t.Run(kind, func(t *testing.T) {
			w := post(t, r, "/api/analysis/charts/"+kind, fixturePayload(), "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
			assert.True(t, bytes.HasPrefix(w.Body.Bytes(), pngHeader))
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, statusClientClosedRequest, statusFor(context.Canceled))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(charts.ErrNoData))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func dialStream(t *testing.T, srv *httptest.Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/analysis/stream"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func TestHandleStream(t *testing.T) {
	srv := httptest.NewServer(setupRouter(t))
	defer srv.Close()

	conn, ctx := dialStream(t, srv)
	require.NoError(t, wsjson.Write(ctx, conn, fixturePayload()))

	var stages []analysis.Stage
	var final StreamEvent
	for {
		var ev StreamEvent
		require.NoError(t, wsjson.Read(ctx, conn, &ev))
		if ev.Type != EventProgress {
			final = ev
			break
		}
		require.NotNil(t, ev.Progress)
		stages = append(stages, ev.Progress.Stage)
	}

	assert.Equal(t, []analysis.Stage{
		analysis.StageDownload,
		analysis.StageBacktest,
		analysis.StageMonteCarlo,
		analysis.StageOptimization,
		analysis.StageComplete,
	}, stages)
	require.Equal(t, EventReport, final.Type)
	require.NotNil(t, final.Report)
	assert.Equal(t, uint64(42), final.Report.Seed)
	assert.Len(t, final.Report.MonteCarlo.Values, 100)

	_, _, err := conn.Read(ctx)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}

func TestHandleStream_ValidationError(t *testing.T) {
	srv := httptest.NewServer(setupRouter(t))
	defer srv.Close()

	conn, ctx := dialStream(t, srv)
	payload := fixturePayload()
	payload.Tickers = nil
	require.NoError(t, wsjson.Write(ctx, conn, payload))

	var ev StreamEvent
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, http.StatusBadRequest, ev.Status)
	assert.Contains(t, ev.Error, "tickers")

	_, _, err := conn.Read(ctx)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}
