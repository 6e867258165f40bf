package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// MinScore and MaxScore bound both axes of the risk matrix
const (
	MinScore = 1
	MaxScore = 5
)

// Probability is the ordinal likelihood of a risk materialising, 1 (rare) to 5 (almost certain)
type Probability int

// Validate checks if the Probability is within the matrix scale
func (p Probability) Validate() error {
	if p < MinScore || p > MaxScore {
		return goerr.New("probability must be between 1 and 5", goerr.V("probability", int(p)))
	}
	return nil
}

// Int returns the score as int
func (p Probability) Int() int {
	return int(p)
}
