package handlers

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
	"github.com/aristath/portfolio-sim/internal/modules/analysis"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// RequestPayload is the wire form of an analysis request.
type RequestPayload struct {
	Tickers     []string           `json:"tickers"`
	Investments map[string]float64 `json:"investments"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	Simulations int                `json:"simulations,omitempty"`
	Days        int                `json:"days,omitempty"`
	Samples     int                `json:"samples,omitempty"`
	Seed        *uint64            `json:"seed,omitempty"`
	Refine      bool               `json:"refine,omitempty"`
}

// ToRequest parses dates and converts the payload.
func (p RequestPayload) ToRequest() (analysis.Request, error) {
	start, err := parseDate("start_date", p.StartDate)
	if err != nil {
		return analysis.Request{}, err
	}
	end, err := parseDate("end_date", p.EndDate)
	if err != nil {
		return analysis.Request{}, err
	}
	return analysis.Request{
		Tickers:     p.Tickers,
		Investments: domain.Investments(p.Investments),
		Start:       start,
		End:         end,
		Simulations: p.Simulations,
		Days:        p.Days,
		Samples:     p.Samples,
		Seed:        p.Seed,
		Refine:      p.Refine,
	}, nil
}

func parseDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, domain.NewValidationError(field, "is required (YYYY-MM-DD)")
	}
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "invalid date %q (expected YYYY-MM-DD)", value)
	}
	return t, nil
}

// decodeRequest reads a JSON payload from body.
func decodeRequest(body io.Reader) (analysis.Request, error) {
	var p RequestPayload
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return analysis.Request{}, domain.NewValidationError("body", "invalid JSON: %s", err)
	}
	return p.ToRequest()
}

// errorBody is the single-message error response.
type errorBody struct {
	Error string `json:"error" msgpack:"error"`
}
