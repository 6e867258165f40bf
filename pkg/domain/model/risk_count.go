package model

import "strconv"

// RiskCountPlaceholder is displayed when the count could not be read
const RiskCountPlaceholder = "Carregando..."

// RiskCount is the outcome of counting the registered risk entries.
// A zero Value with nil Err means no risk is registered; a non-nil Err means the service failed.
type RiskCount struct {
	Value int
	Err   error
}

// Available reports whether the count was read successfully
func (c RiskCount) Available() bool {
	return c.Err == nil
}

// Display returns the text shown on the page
func (c RiskCount) Display() string {
	if c.Err != nil {
		return RiskCountPlaceholder
	}
	return strconv.Itoa(c.Value)
}
