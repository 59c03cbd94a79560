// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package azurebackend validates Azure Blob Storage snapshot-repository
// credentials before they reach OpenSearch's repository-azure plugin,
// mirroring internal/backup/s3backend's probe-before-write discipline.
package azurebackend

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/opensearch-operator/cluster-operator/internal/model"
)

// ValidateCredentials issues a container GetProperties call, the
// cheapest probe confirming the account key and container name are
// usable without mutating blob data.
func ValidateCredentials(ctx context.Context, creds *model.AzureCredentials) error {
	if creds == nil {
		return fmt.Errorf("azurebackend: no credentials supplied")
	}
	cred, err := azblob.NewSharedKeyCredential(creds.AccountName, creds.AccountKey)
	if err != nil {
		return fmt.Errorf("azurebackend: building shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", creds.AccountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return fmt.Errorf("azurebackend: building client: %w", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	containerClient := client.ServiceClient().NewContainerClient(creds.Container)
	if _, err := containerClient.GetProperties(probeCtx, &container.GetPropertiesOptions{}); err != nil {
		return fmt.Errorf("azurebackend: container %q rejected credentials: %w", creds.Container, err)
	}
	return nil
}
