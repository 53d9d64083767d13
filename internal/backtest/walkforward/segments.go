package walkforward

import (
	"time"

	"github.com/rxtech-lab/argo-quant/internal/types"
)

// generateWindows slices the series' time span into consecutive
// (train, test) window pairs. Each test window begins exactly where its
// train window ends, and successive train windows start stepPeriod days
// apart, so windows overlap whenever step < train+test. Generation stops
// once a window pair would run past the last candle timestamp.
func generateWindows(candles []types.Candle, config types.WalkForwardConfig) []types.SegmentWindow {
	if len(candles) == 0 {
		return nil
	}

	train := daysToDuration(config.TrainPeriodDays)
	test := daysToDuration(config.TestPeriodDays)
	step := daysToDuration(config.StepPeriodDays)

	first := candles[0].Time
	last := candles[len(candles)-1].Time

	var windows []types.SegmentWindow

	for start := first; !start.Add(train + test).After(last); start = start.Add(step) {
		trainEnd := start.Add(train)

		windows = append(windows, types.SegmentWindow{
			TrainStart: start,
			TrainEnd:   trainEnd,
			TestStart:  trainEnd,
			TestEnd:    trainEnd.Add(test),
		})
	}

	return windows
}

func daysToDuration(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}
