// Copyright (C) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package model

import "fmt"

// Backend identifies the object-storage provider backing a snapshot
// repository.
type Backend string

const (
	BackendS3    Backend = "s3"
	BackendAzure Backend = "azure"
	BackendGCS   Backend = "gcs"
)

// SnapshotCredentials is a sum type tagged by Backend. Exactly one of
// S3, Azure, or GCS is populated, matching the tag; Validate returns an
// error if none or more than one backend's configuration is supplied.
type SnapshotCredentials struct {
	Backend Backend          `json:"backend"`
	S3      *S3Credentials   `json:"s3,omitempty"`
	Azure   *AzureCredentials `json:"azure,omitempty"`
	GCS     *GCSCredentials  `json:"gcs,omitempty"`
}

// S3Credentials configures an S3-compatible snapshot repository. TLSCAChain
// is optional PEM-encoded CA material for endpoints using a private CA
//.
type S3Credentials struct {
	AccessKey    string `json:"access_key"`
	SecretKey    string `json:"secret_key"`
	Region       string `json:"region,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	Bucket       string `json:"bucket"`
	BasePath     string `json:"base_path,omitempty"`
	TLSCAChain   string `json:"tls_ca_chain,omitempty"`
}

// AzureCredentials configures an Azure Blob Storage snapshot repository.
type AzureCredentials struct {
	AccountName string `json:"account_name"`
	AccountKey  string `json:"account_key"`
	Container   string `json:"container"`
	BasePath    string `json:"base_path,omitempty"`
}

// GCSCredentials configures a Google Cloud Storage snapshot repository.
// GCS support is declared but not implemented: the type exists so the
// tagged union is complete, but internal/backup/gcsbackend never calls
// out to it (see DESIGN.md).
type GCSCredentials struct {
	Bucket          string `json:"bucket"`
	BasePath        string `json:"base_path,omitempty"`
	ServiceAccountJSON string `json:"service_account_json"`
}

// Validate reports whether exactly one backend's credential struct is set
// and matches Backend.
func (c SnapshotCredentials) Validate() error {
	set := 0
	if c.S3 != nil {
		set++
	}
	if c.Azure != nil {
		set++
	}
	if c.GCS != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one backend credential must be set, got %d", set)
	}
	switch c.Backend {
	case BackendS3:
		if c.S3 == nil {
			return fmt.Errorf("backend %q declared but s3 credentials missing", c.Backend)
		}
	case BackendAzure:
		if c.Azure == nil {
			return fmt.Errorf("backend %q declared but azure credentials missing", c.Backend)
		}
	case BackendGCS:
		if c.GCS == nil {
			return fmt.Errorf("backend %q declared but gcs credentials missing", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}
