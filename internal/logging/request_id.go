package logging

import "github.com/google/uuid"

// GenerateRequestID generates a unique request ID for a connection.
func GenerateRequestID() string {
	return uuid.NewString()
}
