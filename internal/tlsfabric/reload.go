// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package tlsfabric

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opensearch-operator/cluster-operator/internal/ossvc"
)

// ReloadLayer selects which TLS layer a live reload targets.
type ReloadLayer string

const (
	ReloadHTTP      ReloadLayer = "http"
	ReloadTransport ReloadLayer = "transport"
)

// ReloadResult reports how a leaf renewal was applied.
type ReloadResult struct {
	Reloaded        []ReloadLayer
	RestartRequired bool
}

// ReloadCerts applies a leaf-only certificate renewal (CA unchanged)
// without a restart, via the security plugin's reloadcerts endpoint,
// authenticated with the app-admin cert carried by client. When any
// layer's reload fails the unit falls back to a full restart, signalled
// through RestartRequired.
func ReloadCerts(ctx context.Context, client *ossvc.Client, layers []ReloadLayer, log *zap.SugaredLogger) ReloadResult {
	result := ReloadResult{}
	for _, layer := range layers {
		path := "/_plugins/_security/api/ssl/" + string(layer) + "/reloadcerts"
		if err := client.Request(ctx, "PUT", path, nil, 1, 10*time.Second, nil, nil); err != nil {
			if log != nil {
				log.Warnw("live cert reload failed, restart required", "layer", layer, "error", err)
			}
			result.RestartRequired = true
			continue
		}
		result.Reloaded = append(result.Reloaded, layer)
	}
	return result
}
