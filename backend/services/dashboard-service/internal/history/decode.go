package history

import (
	"encoding/json"
	"fmt"

	"wastelog/backend/services/dashboard-service/internal/domain"
)

// DecodeRecords decodes a history payload one element at a time, so a single
// malformed object only drops itself. It fails only when the payload is not a
// JSON array. The second return value counts the dropped elements.
func DecodeRecords(raw []byte) ([]domain.ActivityLogRecord, int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, 0, fmt.Errorf("history: decode payload: %w", err)
	}

	records := make([]domain.ActivityLogRecord, 0, len(items))
	skipped := 0
	for _, item := range items {
		var rec domain.ActivityLogRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}
