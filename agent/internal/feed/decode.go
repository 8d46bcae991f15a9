package feed

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/chickenjockey/sitestatus/pkg/types"
)

// rawSample mirrors one feed row with loosely typed fields, so a row with an
// odd field still decodes and only the odd field is lost.
type rawSample struct {
	TargetID      any `json:"target_id"`
	Status        any `json:"status"`
	Timestamp     any `json:"timestamp"`
	LatencyMs     any `json:"latency_ms"`
	PlayersOnline any `json:"players_online"`
	PlayersMax    any `json:"players_max"`
}

// DecodeHistory decodes a history payload: a JSON array of sample objects.
// Rows that are not objects or whose target_id is not a non-empty string are
// skipped and counted. A payload that is not an array is an error.
func DecodeHistory(data []byte) ([]types.Sample, int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, 0, fmt.Errorf("feed: decode history: %w", err)
	}

	out := make([]types.Sample, 0, len(items))
	var skipped int
	for _, item := range items {
		s, ok := decodeSample(item, "")
		if !ok {
			skipped++
			continue
		}
		out = append(out, s)
	}
	return out, skipped, nil
}

// DecodeLatest decodes a latest payload: a JSON object keyed by target id.
// Rows are identified by their key; an inner target_id is ignored. Null and
// non-object entries are skipped and counted.
func DecodeLatest(data []byte) (types.LatestPayload, int, error) {
	var items map[string]json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, 0, fmt.Errorf("feed: decode latest: %w", err)
	}

	out := make(types.LatestPayload, len(items))
	var skipped int
	for key, item := range items {
		s, ok := decodeSample(item, key)
		if !ok {
			skipped++
			continue
		}
		out[key] = s
	}
	return out, skipped, nil
}

// decodeSample decodes one row. key is the latest-payload key, or empty for
// history rows, which must name their target with a JSON string.
func decodeSample(item json.RawMessage, key string) (types.Sample, bool) {
	trimmed := strings.TrimSpace(string(item))
	if !strings.HasPrefix(trimmed, "{") {
		return types.Sample{}, false
	}
	var r rawSample
	if err := json.Unmarshal(item, &r); err != nil {
		return types.Sample{}, false
	}

	s := types.Sample{TargetID: key, Status: asString(r.Status)}
	if key == "" {
		id, ok := r.TargetID.(string)
		if !ok || id == "" {
			return types.Sample{}, false
		}
		s.TargetID = id
	}

	if ts, ok := asFloat(r.Timestamp); ok {
		s.Timestamp = int64(math.Floor(ts))
	}
	if v, ok := asFloat(r.LatencyMs); ok {
		s.LatencyMs = &v
	}
	if v, ok := asFloat(r.PlayersOnline); ok {
		n := int(v)
		s.PlayersOnline = &n
	}
	if v, ok := asFloat(r.PlayersMax); ok {
		n := int(v)
		s.PlayersMax = &n
	}
	return s, true
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
