package store

import (
	"errors"

	"github.com/lib/pq"
)

// postgres error code for unique_violation, see
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const pqUniqueViolation = "23505"

func isPQUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}
