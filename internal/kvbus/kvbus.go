// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package kvbus defines the typed key/value bus boundary: the
// deployment substrate's relation/secret primitives, treated as an
// external collaborator and consumed only through this interface.
// Nothing in this module talks to the substrate directly; every other
// component is built against Bus.
package kvbus

import (
	"fmt"
	"sync"
)

// SecretRef is an opaque identifier for a secret held in the bus. It is
// never the secret value itself -- callers must Peek or Grant+fetch to
// read content; the ref itself is safe to embed in relation payloads.
type SecretRef string

// RelationID identifies one established relation instance between two
// applications.
type RelationID int

// NoRelation is the -1 sentinel for "no relation set".
const NoRelation RelationID = -1

// Bus is the key/value bus contract. Implementations are provided by
// the deployment substrate; internal/kvbus also ships an in-memory Fake
// for tests.
type Bus interface {
	// PutSecret stores content under a new SecretRef scoped to owner,
	// returning the ref to embed in relation payloads.
	PutSecret(owner string, content map[string]string) (SecretRef, error)

	// UpdateSecret replaces the content behind an existing ref.
	UpdateSecret(ref SecretRef, content map[string]string) error

	// GrantSecret authorizes relation to read ref's content. Every
	// SecretRef embedded in a relation payload must be granted to that
	// relation before the payload is written.
	GrantSecret(ref SecretRef, relation RelationID) error

	// PeekSecret reads a secret's content without requiring a prior
	// Grant, for use by the owning app itself.
	PeekSecret(ref SecretRef) (map[string]string, error)

	// GetSecret reads a secret's content as a granted relation peer.
	GetSecret(ref SecretRef, relation RelationID) (map[string]string, error)

	// WriteRelationData sets key/value pairs in this app's databag on the
	// given relation, visible to the other side once committed.
	WriteRelationData(relation RelationID, data map[string]string) error

	// ReadRelationData reads the other side's databag for the given
	// relation.
	ReadRelationData(relation RelationID) (map[string]string, error)

	// RelatedUnits returns the remote unit names currently related on
	// relation, used to detect relation-departed-with-zero-units.
	RelatedUnits(relation RelationID) ([]string, error)

	// IsLeader reports whether the calling unit is the application leader;
	// only the leader is permitted to mutate shared relation state.
	IsLeader() (bool, error)
}

// ErrSecretNotFound is returned by Fake (and expected of real
// implementations) when a SecretRef has no backing content.
type ErrSecretNotFound struct{ Ref SecretRef }

func (e *ErrSecretNotFound) Error() string {
	return fmt.Sprintf("kvbus: secret %q not found", e.Ref)
}

// ErrNotGranted is returned when a relation reads a secret it has not
// been granted.
type ErrNotGranted struct {
	Ref      SecretRef
	Relation RelationID
}

func (e *ErrNotGranted) Error() string {
	return fmt.Sprintf("kvbus: secret %q not granted to relation %d", e.Ref, e.Relation)
}

// Fake is an in-memory Bus for unit tests.
type Fake struct {
	mu        sync.Mutex
	nextID    int
	secrets   map[SecretRef]map[string]string
	grants    map[SecretRef]map[RelationID]bool
	relations map[RelationID]map[string]string
	units     map[RelationID][]string
	leader    bool
}

// NewFake returns an empty Fake bus. leader sets the value IsLeader
// reports.
func NewFake(leader bool) *Fake {
	return &Fake{
		secrets:   make(map[SecretRef]map[string]string),
		grants:    make(map[SecretRef]map[RelationID]bool),
		relations: make(map[RelationID]map[string]string),
		units:     make(map[RelationID][]string),
		leader:    leader,
	}
}

func (f *Fake) PutSecret(owner string, content map[string]string) (SecretRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ref := SecretRef(fmt.Sprintf("secret:%s:%d", owner, f.nextID))
	f.secrets[ref] = cloneMap(content)
	f.grants[ref] = make(map[RelationID]bool)
	return ref, nil
}

func (f *Fake) UpdateSecret(ref SecretRef, content map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.secrets[ref]; !ok {
		return &ErrSecretNotFound{Ref: ref}
	}
	f.secrets[ref] = cloneMap(content)
	return nil
}

func (f *Fake) GrantSecret(ref SecretRef, relation RelationID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.secrets[ref]; !ok {
		return &ErrSecretNotFound{Ref: ref}
	}
	f.grants[ref][relation] = true
	return nil
}

func (f *Fake) PeekSecret(ref SecretRef) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.secrets[ref]
	if !ok {
		return nil, &ErrSecretNotFound{Ref: ref}
	}
	return cloneMap(content), nil
}

func (f *Fake) GetSecret(ref SecretRef, relation RelationID) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.secrets[ref]
	if !ok {
		return nil, &ErrSecretNotFound{Ref: ref}
	}
	if !f.grants[ref][relation] {
		return nil, &ErrNotGranted{Ref: ref, Relation: relation}
	}
	return cloneMap(content), nil
}

func (f *Fake) WriteRelationData(relation RelationID, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relations[relation] = cloneMap(data)
	return nil
}

func (f *Fake) ReadRelationData(relation RelationID) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneMap(f.relations[relation]), nil
}

func (f *Fake) RelatedUnits(relation RelationID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.units[relation]))
	copy(out, f.units[relation])
	return out, nil
}

// SetRelatedUnits is a test helper to simulate units joining/departing a
// relation.
func (f *Fake) SetRelatedUnits(relation RelationID, units []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units[relation] = append([]string(nil), units...)
}

func (f *Fake) IsLeader() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leader, nil
}

// SetLeader is a test helper to flip leadership mid-test (e.g. to exercise
// leader-only write paths).
func (f *Fake) SetLeader(leader bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leader = leader
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
