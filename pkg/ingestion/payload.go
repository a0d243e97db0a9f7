package ingestion

import (
	"encoding/json"

	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// decodePayload round-trips a jobqueue.Job's map[string]any payload through
// JSON into a concrete struct, since ent's JSON column type loses the
// original Go type on the way back out of Postgres.
func decodePayload[T any](raw map[string]any) (T, error) {
	var out T
	b, err := json.Marshal(raw)
	if err != nil {
		return out, apperrors.Wrap(apperrors.Validation, "ingestion", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, apperrors.Wrap(apperrors.Validation, "ingestion", err)
	}
	return out, nil
}
