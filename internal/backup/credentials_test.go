// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensearch-operator/cluster-operator/internal/model"
)

func s3Creds() model.SnapshotCredentials {
	return model.SnapshotCredentials{
		Backend: model.BackendS3,
		S3: &model.S3Credentials{
			AccessKey: "AKIA...",
			SecretKey: "shh",
			Bucket:    "opensearch-backups",
			Region:    "us-east-1",
		},
	}
}

func TestCredentialFingerprintExcludesSecrets(t *testing.T) {
	fp, err := CredentialFingerprint(s3Creds())
	require.NoError(t, err)
	assert.Equal(t, "opensearch-backups", fp["bucket"])
	for _, v := range fp {
		assert.NotContains(t, v, "shh")
	}
}

func TestVerifyCredentialParityAgrees(t *testing.T) {
	mine := s3Creds()
	fp, err := CredentialFingerprint(mine)
	require.NoError(t, err)
	hash, err := credentialsHash(fp)
	require.NoError(t, err)

	ok, dissenting, err := VerifyCredentialParity(mine, map[string]string{
		"opensearch/0": hash,
		"opensearch/1": hash,
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, dissenting)
}

func TestVerifyCredentialParityDetectsDivergence(t *testing.T) {
	mine := s3Creds()
	ok, dissenting, err := VerifyCredentialParity(mine, map[string]string{
		"opensearch/0": "stale-hash",
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"opensearch/0"}, dissenting)
}

func TestKeystoreKeysS3(t *testing.T) {
	keys, err := keystoreKeys(s3Creds())
	require.NoError(t, err)
	assert.Equal(t, "AKIA...", keys["s3.client.default.access_key"])
	assert.Equal(t, "shh", keys["s3.client.default.secret_key"])
}

func TestKeystoreKeysGCSUnimplemented(t *testing.T) {
	_, err := keystoreKeys(model.SnapshotCredentials{Backend: model.BackendGCS, GCS: &model.GCSCredentials{Bucket: "b"}})
	assert.ErrorIs(t, err, ErrBackendNotImplemented)
}
