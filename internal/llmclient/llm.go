package llmclient

import "errors"

var (
	ErrNotConfigured = errors.New("llmclient: client is not configured")
	ErrEmptyResponse = errors.New("llmclient: empty response from model")
)

// Disabled returns a collaborator whose Open always fails with
// ErrNotConfigured. Used when no API key is present so the rest of the
// board still works.
func Disabled() *GeminiCollaborator {
	return nil
}
