// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package relation

import (
	"fmt"
	"sync"
)

// Status-slot keys are exact, per relation: one slot for errors observed
// from the provider side, one for errors observed from the requirer
// side. Slots are cleared only by their exact key, never by prefix or
// substring scan.
func providerErrorSlot(rel int) string { return fmt.Sprintf("error_from_provider-%d", rel) }
func requirerErrorSlot(rel int) string { return fmt.Sprintf("error_from_requirer-%d", rel) }

// StatusSlots tracks per-relation error messages for the app status
// publisher. The first remaining slot (lowest relation id wins is not
// guaranteed; any remaining slot blocks) determines whether the app can
// publish ACTIVE.
type StatusSlots struct {
	mu    sync.Mutex
	slots map[string]string
}

// NewStatusSlots returns an empty slot registry.
func NewStatusSlots() *StatusSlots {
	return &StatusSlots{slots: make(map[string]string)}
}

// SetProviderError records an error message observed from the provider on
// relation rel, replacing any previous message in that exact slot.
func (s *StatusSlots) SetProviderError(rel int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[providerErrorSlot(rel)] = message
}

// SetRequirerError records an error message observed from the requirer on
// relation rel.
func (s *StatusSlots) SetRequirerError(rel int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[requirerErrorSlot(rel)] = message
}

// ClearProviderError removes the provider-error slot for rel, by exact
// key only.
func (s *StatusSlots) ClearProviderError(rel int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, providerErrorSlot(rel))
}

// ClearRequirerError removes the requirer-error slot for rel.
func (s *StatusSlots) ClearRequirerError(rel int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, requirerErrorSlot(rel))
}

// Blocking returns the messages of every occupied slot. An empty result
// means no relation currently blocks the app status.
func (s *StatusSlots) Blocking() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.slots))
	for _, msg := range s.slots {
		out = append(out, msg)
	}
	return out
}
