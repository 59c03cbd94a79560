// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package keystore implements the keystore and node-config manager:
// writing opensearch.yml fragments, mutating the secure keystore, and
// triggering a keystore reload through the OpenSearch client.
package keystore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/ossvc"
	"github.com/opensearch-operator/cluster-operator/internal/retry"
)

// NodeYAML is the subset of opensearch.yml this operator owns:
// roles, seed cluster-manager hosts, and TLS settings. WriteNodeConfig
// overwrites the full file from this struct; keys already present on
// disk that the struct does not carry are not preserved.
type NodeYAML struct {
	NodeName                   string   `yaml:"node.name,omitempty"`
	ClusterName                string   `yaml:"cluster.name,omitempty"`
	NodeRoles                  []string `yaml:"node.roles,omitempty"`
	ClusterInitialClusterMgrs  []string `yaml:"cluster.initial_cluster_manager_nodes,omitempty"`
	DiscoverySeedHosts         []string `yaml:"discovery.seed_hosts,omitempty"`
	PluginsSecuritySSLEnabled  bool     `yaml:"plugins.security.ssl.http.enabled,omitempty"`
}

// Manager writes node configuration for one unit and mutates its secure
// keystore through the OpenSearch admin API.
type Manager struct {
	confDir string
	client  *ossvc.Client
}

// New builds a Manager writing opensearch.yml fragments under confDir and
// issuing reload calls through client.
func New(confDir string, client *ossvc.Client) *Manager {
	return &Manager{confDir: confDir, client: client}
}

// WriteNodeConfig renders cfg to <confDir>/opensearch.yml.
func (m *Manager) WriteNodeConfig(cfg NodeYAML) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("keystore: marshaling node config: %w", err)
	}
	path := filepath.Join(m.confDir, "opensearch.yml")
	if err := os.WriteFile(path, raw, 0o640); err != nil {
		return fmt.Errorf("keystore: writing %s: %w", path, err)
	}
	return nil
}

// FlushBootstrapConf removes cluster.initial_cluster_manager_nodes once
// the cluster has formed, per lifecycle step 9.
func (m *Manager) FlushBootstrapConf(cfg NodeYAML) (NodeYAML, error) {
	cfg.ClusterInitialClusterMgrs = nil
	return cfg, m.WriteNodeConfig(cfg)
}

// SetKeystoreEntry writes one secure-keystore entry (e.g.
// "s3.client.default.access_key"). Transport-level retry (6 attempts) is
// handled by the client itself; a non-2xx response is never retried.
func (m *Manager) SetKeystoreEntry(ctx context.Context, key, value string) error {
	body := map[string]string{"key": key, "value": value}
	return m.client.Request(ctx, "PUT", "/_plugins/_security/api/keystore", body, retry.ClusterAdminCall.Attempts(), 10*time.Second, nil, nil)
}

// RemoveKeystoreEntry removes a secure-keystore entry. "Does not exist" is
// treated as success.
func (m *Manager) RemoveKeystoreEntry(ctx context.Context, key string) error {
	err := m.client.Request(ctx, "DELETE", "/_plugins/_security/api/keystore/"+key, nil, retry.ClusterAdminCall.Attempts(), 10*time.Second, nil, nil)
	var statusErr *ossvc.StatusError
	if err != nil && asStatusError(err, &statusErr) && statusErr.StatusCode == 404 {
		return nil
	}
	return err
}

// ReloadKeystore triggers the secure-settings reload (backup-hook's
// ReloadOpensearchSecureSettings) so freshly written/removed keystore
// entries take effect without a restart.
func (m *Manager) ReloadKeystore(ctx context.Context, nodes []model.Node) error {
	return m.client.Request(ctx, "POST", "/_nodes/reload_secure_settings", nil, retry.ClusterAdminCall.Attempts(), 10*time.Second, nil, nil)
}

func asStatusError(err error, target **ossvc.StatusError) bool {
	se, ok := err.(*ossvc.StatusError)
	if !ok {
		return false
	}
	*target = se
	return true
}
