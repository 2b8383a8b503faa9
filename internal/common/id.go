package common

import (
	"os"

	"github.com/google/uuid"
)

// NewFireInstanceID generates a unique id for one firing of a trigger.
// Format: fire_<uuid>
func NewFireInstanceID() string {
	return "fire_" + uuid.New().String()
}

// NewInstanceID generates a scheduler node id from the hostname and a
// random suffix, for deployments that do not configure one explicitly.
func NewInstanceID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "tempo"
	}
	return hostname + "-" + uuid.New().String()
}
