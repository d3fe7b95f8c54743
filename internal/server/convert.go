package server

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pallet-scanner/internal/entity"
)

func recordToMap(r entity.PalletRecord) map[string]any {
	return map[string]any{
		"id":            r.ID.String(),
		"pallet_id":     r.PalletID,
		"document_name": r.DocumentName,
		"page_number":   r.PageNumber,
		"run_id":        r.RunID.String(),
		"strategy":      r.Strategy,
		"created_at":    r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func recordsToList(recs []entity.PalletRecord) []any {
	out := make([]any, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordToMap(r))
	}
	return out
}

func failuresToList(fs []entity.Failure) []any {
	out := make([]any, 0, len(fs))
	for _, f := range fs {
		out = append(out, map[string]any{
			"document": f.Document,
			"page":     f.Page,
			"stage":    f.Stage,
			"error":    f.Error,
		})
	}
	return out
}

// recordFromMap reads a record in the shape produced by recordToMap. Only
// pallet_id, document_name and page_number are required.
func recordFromMap(m map[string]any) (entity.PalletRecord, error) {
	var (
		r   entity.PalletRecord
		err error
	)
	if r.PalletID, err = stringField(m, "pallet_id", true); err != nil {
		return r, err
	}
	if r.DocumentName, err = stringField(m, "document_name", true); err != nil {
		return r, err
	}
	if r.PageNumber, err = intField(m, "page_number"); err != nil {
		return r, err
	}
	if r.Strategy, err = stringField(m, "strategy", false); err != nil {
		return r, err
	}
	if r.ID, err = uuidField(m, "id"); err != nil {
		return r, err
	}
	if r.RunID, err = uuidField(m, "run_id"); err != nil {
		return r, err
	}
	ts, err := stringField(m, "created_at", false)
	if err != nil {
		return r, err
	}
	if ts != "" {
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return r, fmt.Errorf("created_at: %w", err)
		}
	}
	return r, nil
}

func failureFromMap(m map[string]any) entity.Failure {
	f := entity.Failure{}
	f.Document, _ = m["document"].(string)
	f.Stage, _ = m["stage"].(string)
	f.Error, _ = m["error"].(string)
	if p, ok := m["page"].(float64); ok {
		f.Page = int(p)
	}
	return f
}

func stringField(m map[string]any, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("%s is required", key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s, nil
}

// intField accepts JSON numbers that hold whole values.
func intField(m map[string]any, key string) (int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%s is required", key)
	}
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return int(f), nil
}

func uuidField(m map[string]any, key string) (uuid.UUID, error) {
	s, err := stringField(m, key, false)
	if err != nil || s == "" {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a UUID", key)
	}
	return id, nil
}

func stringList(s *structpb.Struct, key string) ([]string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil, nil
	}
	lv := v.GetListValue()
	if lv == nil {
		return nil, fmt.Errorf("%s must be a list", key)
	}
	out := make([]string, 0, len(lv.GetValues()))
	for i, item := range lv.GetValues() {
		sv, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", key, i)
		}
		out = append(out, sv.StringValue)
	}
	return out, nil
}

func mapList(v any, key string) ([]map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a list", key)
	}
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be an object", key, i)
		}
		out = append(out, m)
	}
	return out, nil
}
