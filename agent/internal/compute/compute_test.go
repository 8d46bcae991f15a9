package compute

import (
	"time"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

// baseTime is a fixed reference point so all test timings are deterministic.
// It sits 30 seconds into its minute.
var baseTime = time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC)

// endMinute is the minute containing baseTime.
var endMinute = MinuteKeyOf(baseTime)

// sample builds one history row.
func sample(target, status string, ts int64) types.Sample {
	return types.Sample{TargetID: target, Status: status, Timestamp: ts}
}

// upRun returns n UP samples for target, one per minute, covering the n
// minutes that end at end, newest first.
func upRun(target string, end MinuteKey, n int) []types.Sample {
	out := make([]types.Sample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, sample(target, "UP", int64(end-MinuteKey(i))*60+15))
	}
	return out
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }
