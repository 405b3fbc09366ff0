package analysis

// Stage names a step of a full analysis run.
type Stage string

const (
	StageDownload     Stage = "download"
	StageBacktest     Stage = "backtest"
	StageMonteCarlo   Stage = "montecarlo"
	StageOptimization Stage = "optimization"
	StageComplete     Stage = "complete"
)

// Percent is how far along the run is when the stage starts.
func (s Stage) Percent() int {
	switch s {
	case StageDownload:
		return 10
	case StageBacktest:
		return 30
	case StageMonteCarlo:
		return 50
	case StageOptimization:
		return 75
	case StageComplete:
		return 100
	}
	return 0
}

// Progress is one update emitted during Run.
type Progress struct {
	Stage   Stage  `json:"stage" msgpack:"stage"`
	Percent int    `json:"percent" msgpack:"percent"`
	Message string `json:"message" msgpack:"message"`
}

// ProgressFunc receives progress updates. It is called from the goroutine
// running the analysis.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(stage Stage, message string) {
	if f == nil {
		return
	}
	f(Progress{Stage: stage, Percent: stage.Percent(), Message: message})
}
