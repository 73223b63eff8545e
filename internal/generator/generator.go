package generator

import (
	"github.com/google/uuid"
)

// Generator produces values of type T on demand. The bot uses string
// generators to mint ids, and tests swap in deterministic ones.
type Generator[T any] interface {
	Next() (T, error)
}

// UUIDV4Generator mints random UUIDv4 strings.
type UUIDV4Generator struct{}

func (g UUIDV4Generator) Next() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var _ Generator[string] = UUIDV4Generator{}
