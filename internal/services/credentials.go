package services

import (
	"log"
	"sync"
)

// CredentialState tracks whether the configured provider credential is still
// believed to be valid. Generation flows read it before submitting work and
// reset it when a provider reports the credential gone mid-flight, so the
// operator re-verifies instead of burning requests on a dead key.
type CredentialState struct {
	mu       sync.RWMutex
	selected bool
}

func NewCredentialState() *CredentialState {
	return &CredentialState{selected: true}
}

// Selected reports whether the credential is currently considered usable.
func (c *CredentialState) Selected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// Invalidate marks the credential unusable. Idempotent.
func (c *CredentialState) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected {
		log.Printf("[Credentials] Provider credential invalidated; reselection required")
	}
	c.selected = false
}

// Restore marks the credential usable again after reselection.
func (c *CredentialState) Restore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = true
}
