package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// Impact is the ordinal consequence of a risk on the works, 1 (negligible) to 5 (catastrophic)
type Impact int

// Validate checks if the Impact is within the matrix scale
func (i Impact) Validate() error {
	if i < MinScore || i > MaxScore {
		return goerr.New("impact must be between 1 and 5", goerr.V("impact", int(i)))
	}
	return nil
}

// Int returns the score as int
func (i Impact) Int() int {
	return int(i)
}
