package repository

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// uuidArray adapts IDs for `= ANY($n)` parameters.
func uuidArray(ids []uuid.UUID) interface{} {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return pq.Array(out)
}
