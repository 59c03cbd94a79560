// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package gcsbackend is the GCS counterpart of s3backend/azurebackend.
// GCS support is declared but not implemented (see DESIGN.md): it is
// intentionally unimplemented: the constructor exists so callers can
// wire a GCS branch without a panic, but ValidateCredentials always
// returns an error, and cloud.google.com/go/storage is
// imported only to type the never-called client.
package gcsbackend

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/opensearch-operator/cluster-operator/internal/model"
)

// ValidateCredentials always fails: GCS credential propagation is not
// implemented.
func ValidateCredentials(ctx context.Context, creds *model.GCSCredentials) error {
	if creds == nil {
		return fmt.Errorf("gcsbackend: no credentials supplied")
	}
	return fmt.Errorf("gcsbackend: gcs credential propagation is not implemented")
}

// newClient is never called in production; it exists so the
// cloud.google.com/go/storage import reflects the dependency this
// backend would need once implemented, rather than being silently
// dropped from go.mod.
func newClient(ctx context.Context) (*storage.Client, error) {
	return storage.NewClient(ctx)
}
