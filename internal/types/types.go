// Package types defines the data structures shared across commizard packages.
package types

// Status codes returned with every user-facing message. Any other non-zero
// value is a raw HTTP status and also means failure.
const (
	StatusSuccess = 0
	StatusFailure = 1
)

// ModelInfo describes one model installed on the inference server.
type ModelInfo struct {
	Name          string `json:"name"`
	ParameterSize string `json:"parameter_size"`
}
