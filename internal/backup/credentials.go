// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package backup

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/retry"
	"github.com/opensearch-operator/cluster-operator/internal/tlsfabric"
)

// keystoreKeys returns the secure-keystore key/value pairs a backend's
// credentials populate. GCS is intentionally absent: propagation
// is unimplemented (see DESIGN.md).
func keystoreKeys(creds model.SnapshotCredentials) (map[string]string, error) {
	switch creds.Backend {
	case model.BackendS3:
		if creds.S3 == nil {
			return nil, fmt.Errorf("backup: s3 backend declared without credentials")
		}
		return map[string]string{
			"s3.client.default.access_key": creds.S3.AccessKey,
			"s3.client.default.secret_key": creds.S3.SecretKey,
		}, nil
	case model.BackendAzure:
		if creds.Azure == nil {
			return nil, fmt.Errorf("backup: azure backend declared without credentials")
		}
		return map[string]string{
			"azure.client.default.account": creds.Azure.AccountName,
			"azure.client.default.key":     creds.Azure.AccountKey,
		}, nil
	case model.BackendGCS:
		return nil, ErrBackendNotImplemented
	default:
		return nil, fmt.Errorf("backup: unknown backend %q", creds.Backend)
	}
}

// ApplyCredentials runs the per-unit half of the credential lifecycle:
// every unit writes the keystore entries and reloads secure settings, whatever
// its leadership status, because OpenSearch keystores are per-node.
// caBundle is the backend's optional CA chain; when non-empty
// it is compared against currentCABundle with tlsfabric.PEMSetsEqual
// and only appended/written when it actually changed.
func (c *Coordinator) ApplyCredentials(ctx context.Context, creds model.SnapshotCredentials, caBundle, currentCABundle []byte, writeCABundle func([]byte) error) error {
	if err := creds.Validate(); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	if c.validate != nil {
		if err := c.validate(ctx, creds); err != nil {
			return err
		}
	}
	keys, err := keystoreKeys(creds)
	if err != nil {
		return err
	}
	for key, value := range keys {
		if err := c.keystore.SetKeystoreEntry(ctx, key, value); err != nil {
			return fmt.Errorf("%w: %s", ErrBackupCredentialIncorrect, err)
		}
	}

	if len(caBundle) > 0 && !tlsfabric.PEMSetsEqual(caBundle, currentCABundle) {
		if writeCABundle == nil {
			return fmt.Errorf("backup: ca bundle changed but no writer was supplied")
		}
		if err := writeCABundle(caBundle); err != nil {
			return fmt.Errorf("backup: writing s3 ca bundle: %w", err)
		}
	}

	if err := c.keystore.ReloadKeystore(ctx, nil); err != nil {
		return fmt.Errorf("backup: reloading keystore: %w", err)
	}
	return nil
}

// RemoveCredentials runs the credentials-gone path:
// keystore entries are removed (idempotent on 404) and the repository is
// deleted (idempotent on repository_missing_exception).
func (c *Coordinator) RemoveCredentials(ctx context.Context, repo string, creds model.SnapshotCredentials) error {
	keys, err := keystoreKeys(creds)
	if err != nil && err != ErrBackendNotImplemented {
		return err
	}
	for key := range keys {
		if err := c.keystore.RemoveKeystoreEntry(ctx, key); err != nil {
			return fmt.Errorf("backup: removing keystore entry %s: %w", key, err)
		}
	}
	if err := c.keystore.ReloadKeystore(ctx, nil); err != nil {
		return fmt.Errorf("backup: reloading keystore after removal: %w", err)
	}
	return c.DeleteRepository(ctx, repo)
}

// credentialsHash computes the SHA-1 digest units compare for parity: the
// JSON-canonical form of the non-secret-bearing fields callers choose to
// publish (the census payload itself, not the raw keys) so units can
// confirm parity without re-transmitting secrets.
func credentialsHash(fingerprint map[string]string) (string, error) {
	raw, err := json.Marshal(fingerprint)
	if err != nil {
		return "", fmt.Errorf("backup: marshaling credential fingerprint: %w", err)
	}
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:]), nil
}

// CredentialFingerprint derives the parity-comparison payload for one backend
// configuration: enough to detect divergence (bucket/container, base
// path, CA presence) without exposing secret material in the relation
// databag.
func CredentialFingerprint(creds model.SnapshotCredentials) (map[string]string, error) {
	switch creds.Backend {
	case model.BackendS3:
		if creds.S3 == nil {
			return nil, fmt.Errorf("backup: s3 backend declared without credentials")
		}
		return map[string]string{
			"backend":    string(model.BackendS3),
			"bucket":     creds.S3.Bucket,
			"base_path":  creds.S3.BasePath,
			"region":     creds.S3.Region,
			"endpoint":   creds.S3.Endpoint,
			"ca_present": fmt.Sprint(creds.S3.TLSCAChain != ""),
		}, nil
	case model.BackendAzure:
		if creds.Azure == nil {
			return nil, fmt.Errorf("backup: azure backend declared without credentials")
		}
		return map[string]string{
			"backend":   string(model.BackendAzure),
			"container": creds.Azure.Container,
			"base_path": creds.Azure.BasePath,
		}, nil
	case model.BackendGCS:
		if creds.GCS == nil {
			return nil, fmt.Errorf("backup: gcs backend declared without credentials")
		}
		return map[string]string{
			"backend":   string(model.BackendGCS),
			"bucket":    creds.GCS.Bucket,
			"base_path": creds.GCS.BasePath,
		}, nil
	default:
		return nil, fmt.Errorf("backup: unknown backend %q", creds.Backend)
	}
}

// VerifyCredentialParity requires every unit's credential hash to
// agree before the coordinator proceeds with a repository mutation.
// reported maps unit name to the hash it last published; mine is this
// unit's own current fingerprint. The returned bool is false, with the
// list of disagreeing units, when any hash differs from mine.
func VerifyCredentialParity(mine model.SnapshotCredentials, reported map[string]string) (bool, []string, error) {
	fp, err := CredentialFingerprint(mine)
	if err != nil {
		return false, nil, err
	}
	myHash, err := credentialsHash(fp)
	if err != nil {
		return false, nil, err
	}
	var dissenting []string
	for unit, hash := range reported {
		if hash != myHash {
			dissenting = append(dissenting, unit)
		}
	}
	return len(dissenting) == 0, dissenting, nil
}

// PollCredentialParity retries VerifyCredentialParity against a reported
// map the caller refreshes on each attempt (e.g. by re-reading the
// relation databag), using the cluster-admin-call retry policy so a
// momentarily stale peer doesn't fail the whole operation immediately.
func (c *Coordinator) PollCredentialParity(ctx context.Context, mine model.SnapshotCredentials, fetchReported func() (map[string]string, error)) error {
	return retry.Do(ctx, retry.ClusterAdminCall, c.log, func() error {
		reported, err := fetchReported()
		if err != nil {
			return err
		}
		ok, dissenting, err := VerifyCredentialParity(mine, reported)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("backup: credential parity mismatch, dissenting units: %v", dissenting)
		}
		return nil
	})
}
