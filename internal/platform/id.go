package platform

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

const credentialAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const credentialLength = 16

func NewID() string {
	return uuid.New().String()
}

// NewCredential generates a random admin credential for a freshly
// provisioned instance.
func NewCredential() (string, error) {
	b := make([]byte, credentialLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i := range b {
		b[i] = credentialAlphabet[b[i]%byte(len(credentialAlphabet))]
	}
	return string(b), nil
}

// ContainerName derives the globally unique container name for an instance.
// Deterministic from the owning tenant's subdomain and the instance name, so
// a container found in the runtime can always be traced back to its record.
func ContainerName(subdomain, instanceName string) string {
	return fmt.Sprintf("orchard_%s_%s", subdomain, instanceName)
}
