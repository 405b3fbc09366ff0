package optimization

import "math"

// FrontierPoint is one point on the efficient frontier envelope.
type FrontierPoint struct {
	Risk   float64 `json:"risk" msgpack:"risk"`
	Return float64 `json:"return" msgpack:"return"`
	Sharpe float64 `json:"sharpe" msgpack:"sharpe"`
}

// Frontier approximates the efficient frontier from sampled portfolios.
// Samples are bucketed by risk; the highest-return sample of each bucket is
// kept when it beats every point at lower risk. Points are ordered by risk.
func Frontier(samples []Sample, bins int) []FrontierPoint {
	if len(samples) == 0 || bins <= 0 {
		return nil
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		lo = math.Min(lo, s.Risk)
		hi = math.Max(hi, s.Risk)
	}

	width := (hi - lo) / float64(bins)
	best := make([]int, bins)
	for i := range best {
		best[i] = -1
	}
	for i, s := range samples {
		b := 0
		if width > 0 {
			b = min(int((s.Risk-lo)/width), bins-1)
		}
		if best[b] < 0 || s.Return > samples[best[b]].Return {
			best[b] = i
		}
	}

	points := make([]FrontierPoint, 0, bins)
	top := math.Inf(-1)
	for _, i := range best {
		if i < 0 {
			continue
		}
		s := samples[i]
		if s.Return <= top {
			continue
		}
		top = s.Return
		points = append(points, FrontierPoint{Risk: s.Risk, Return: s.Return, Sharpe: s.Sharpe})
	}
	return points
}
