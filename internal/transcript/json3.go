package transcript

import (
	"encoding/json"
	"strings"

	"lingocast/internal/services"
)

type json3Payload struct {
	Events []json3Event `json:"events"`
}

type json3Event struct {
	TStartMs    int64       `json:"tStartMs"`
	DDurationMs *int64      `json:"dDurationMs"`
	Segs        []json3Segs `json:"segs"`
}

type json3Segs struct {
	UTF8 string `json:"utf8"`
}

func parseJSON3(raw []byte) ([]Entry, error) {
	var payload json3Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, services.Wrap(services.ErrParse, "transcript", "json3", "decode events", err)
	}
	entries := make([]Entry, 0, len(payload.Events))
	for _, event := range payload.Events {
		if len(event.Segs) == 0 {
			continue
		}
		var b strings.Builder
		for _, seg := range event.Segs {
			b.WriteString(seg.UTF8)
		}
		text := strings.Join(strings.Fields(b.String()), " ")
		if text == "" {
			continue
		}
		var duration float64
		if event.DDurationMs != nil {
			duration = clampDuration(float64(*event.DDurationMs) / 1000)
		}
		start := float64(event.TStartMs) / 1000
		if start < 0 {
			start = 0
		}
		entries = append(entries, Entry{Text: text, Start: start, Duration: duration})
	}
	return entries, nil
}
