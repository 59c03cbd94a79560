// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package backup

import (
	"context"
	"fmt"

	"github.com/opensearch-operator/cluster-operator/internal/backup/azurebackend"
	"github.com/opensearch-operator/cluster-operator/internal/backup/gcsbackend"
	"github.com/opensearch-operator/cluster-operator/internal/backup/s3backend"
	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/tlsfabric"
)

// ValidateBackendCredentials probes the object store directly with the
// supplied credentials before any keystore entry is written. A probe
// failure surfaces as ErrBackupCredentialIncorrect with the backend's
// diagnostic attached.
func ValidateBackendCredentials(ctx context.Context, creds model.SnapshotCredentials) error {
	var err error
	switch creds.Backend {
	case model.BackendS3:
		err = s3backend.ValidateCredentials(creds.S3)
	case model.BackendAzure:
		err = azurebackend.ValidateCredentials(ctx, creds.Azure)
	case model.BackendGCS:
		err = gcsbackend.ValidateCredentials(ctx, creds.GCS)
	default:
		return fmt.Errorf("backup: unknown backend %q", creds.Backend)
	}
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBackupCredentialIncorrect, err)
	}
	return nil
}

// GatewayAlias is the truststore alias family under which the S3
// endpoint's private CA chain is stored.
const GatewayAlias = "s3-snapshots-gateway"

// GatewayTrustStore tracks the s3-snapshots-gateway alias family in the
// unit's cacerts truststore. The whole family is deleted before a
// reimport so an alias-already-exists error can never occur.
type GatewayTrustStore struct {
	// Chain is the currently stored PEM bundle, empty when no gateway CA
	// is imported.
	Chain []byte
}

// NeedsImport reports whether newChain differs from the stored chain
// under the order-independent PEM-set equality rule: a chain with the
// same certs in a different order is the same chain.
func (g GatewayTrustStore) NeedsImport(newChain []byte) bool {
	if len(newChain) == 0 {
		return false
	}
	return !tlsfabric.PEMSetsEqual(g.Chain, newChain)
}

// Import replaces the alias family with newChain: the existing family is
// dropped wholesale, then the new bundle is imported under GatewayAlias.
// Returns the updated store and whether anything changed.
func (g GatewayTrustStore) Import(newChain []byte) (GatewayTrustStore, bool) {
	if !g.NeedsImport(newChain) {
		return g, false
	}
	return GatewayTrustStore{Chain: append([]byte(nil), newChain...)}, true
}

// Remove drops the alias family entirely, for the credentials-gone path.
// Removing an empty store is a no-op.
func (g GatewayTrustStore) Remove() (GatewayTrustStore, bool) {
	if len(g.Chain) == 0 {
		return g, false
	}
	return GatewayTrustStore{}, true
}
