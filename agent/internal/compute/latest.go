package compute

import "github.com/chickenjockey/sitestatus/pkg/types"

// ReconcileLatest derives the current status of targetID from the latest
// feed, consulting history when the reading is INVALID.
//
// It returns nil when latest has no entry for the target. A reading that is
// not INVALID is used as-is. For an INVALID reading, policy decides:
//
//   - FallbackToHistory: the first history row (history is newest first) for
//     the target that is not INVALID stands in, carrying its own timestamp.
//     Without such a row the target is down with no metrics and the reading's
//     timestamp.
//   - TreatInvalidAsDown: down, no metrics, the reading's timestamp.
//   - TreatInvalidAsUp: up, with the reading's own metrics.
func ReconcileLatest(latest types.LatestPayload, targetID string, history []types.Sample, policy InvalidPolicy) *types.LatestStatus {
	raw, ok := latest[targetID]
	if !ok {
		return nil
	}

	if !isInvalid(raw.Status) {
		return fromSample(targetID, raw, isUp(raw.Status), types.OriginLatest, raw.Timestamp)
	}

	switch policy {
	case TreatInvalidAsUp:
		return fromSample(targetID, raw, true, types.OriginLatest, raw.Timestamp)
	case FallbackToHistory:
		for _, row := range history {
			if row.TargetID == targetID && !isInvalid(row.Status) {
				return fromSample(targetID, row, isUp(row.Status), types.OriginHistory, raw.Timestamp)
			}
		}
	}

	return &types.LatestStatus{
		TargetID:         targetID,
		Up:               false,
		Timestamp:        raw.Timestamp,
		Origin:           types.OriginNone,
		ReadingTimestamp: raw.Timestamp,
	}
}

func fromSample(targetID string, s types.Sample, up bool, origin string, readingTS int64) *types.LatestStatus {
	return &types.LatestStatus{
		TargetID:         targetID,
		Up:               up,
		LatencyMs:        s.LatencyMs,
		PlayersOnline:    s.PlayersOnline,
		PlayersMax:       s.PlayersMax,
		Timestamp:        s.Timestamp,
		Origin:           origin,
		ReadingTimestamp: readingTS,
	}
}
