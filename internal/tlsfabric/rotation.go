// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package tlsfabric

import "fmt"

// TrustStore models the on-disk ca.p12 aliases "ca" and, optionally,
// "old-ca". The "s3-snapshots-gateway" alias is not tracked here
// (internal/backup's GatewayTrustStore covers it). The
// backing PKCS12 file I/O is the caller's responsibility (internal/
// keystore writes the actual bytes); this type tracks the alias identity
// transitions the two-phase rotation protocol requires.
type TrustStore struct {
	CA    []byte
	OldCA []byte
}

// RotationPhase is where a unit is in the two-phase CA-rotation
// protocol.
type RotationPhase string

const (
	PhaseNone       RotationPhase = "none"
	PhaseAddingNew  RotationPhase = "adding_new"
	PhaseFinishing  RotationPhase = "finishing"
)

// BeginRotation implements phase one ("add new"): idempotently
// renames the existing ca alias to old-ca and imports newCA under alias
// ca. Returns the updated TrustStore and whether a restart must be
// emitted (true whenever the CA actually changed).
func BeginRotation(store TrustStore, newCA []byte) (TrustStore, bool) {
	if PEMSetsEqual(store.CA, newCA) {
		return store, false
	}
	return TrustStore{CA: newCA, OldCA: store.CA}, true
}

// FinishRotation implements Phase 2's truststore cleanup: once every unit
// in every relevant relation has reported tls_ca_renewed=true and
// tls_configured=true and no peer is still tls_ca_renewing, delete the
// old-ca alias.
//
// allRenewed must already reflect that fleet-wide condition; this
// function makes no network calls of its own.
func FinishRotation(store TrustStore, allRenewed bool) TrustStore {
	if !allRenewed {
		return store
	}
	return TrustStore{CA: store.CA, OldCA: nil}
}

// AppendToChain adds newCA to the client HTTP bundle (chain.pem) unless
// an identical normalized block is already present, returning the
// updated bundle. Used during Phase 1. FinishRotation clears only
// TrustStore.OldCA; nothing in this package removes the old CA from the
// bundle.
func AppendToChain(chainPEM, newCA []byte) []byte {
	existing := NormalizePEMSet(chainPEM)
	for block := range NormalizePEMSet(newCA) {
		if existing[block] {
			return chainPEM
		}
	}
	out := append([]byte{}, chainPEM...)
	out = append(out, '\n')
	out = append(out, newCA...)
	return out
}

// RotationAlias names the on-disk alias a PKCS12 writer should use for
// the given phase/slot, centralizing the "ca"/"old-ca" naming so callers
// never hand-string these.
func RotationAlias(old bool) string {
	if old {
		return "old-ca"
	}
	return "ca"
}

func (s TrustStore) String() string {
	return fmt.Sprintf("TrustStore{ca=%dB, old-ca=%dB}", len(s.CA), len(s.OldCA))
}
