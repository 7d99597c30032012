package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/flowhq/flow/internal/domain/entities"
)

// jsonColumn stores an embedded value in a JSONB column.
type jsonColumn[T any] struct {
	V T
}

func (j jsonColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return b, nil
}

func (j *jsonColumn[T]) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		var zero T
		j.V = zero
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	return json.Unmarshal(b, &j.V)
}

const uniqueViolation = "23505"

// uniqueConstraint returns the constraint name when err is a unique violation.
func uniqueConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

func mapUniqueViolation(err error) error {
	name, ok := uniqueConstraint(err)
	if !ok {
		return err
	}
	switch name {
	case "users_email_key":
		return entities.ErrEmailTaken
	case "projects_key_key":
		return entities.ErrProjectKeyTaken
	}
	return err
}
