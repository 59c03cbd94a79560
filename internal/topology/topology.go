// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package topology implements the cluster topology reader: queries
// against the OpenSearch admin API that enumerate nodes, index state,
// and cluster health.
package topology

import (
	"context"
	"fmt"
	"time"

	"github.com/opensearch-operator/cluster-operator/internal/model"
	"github.com/opensearch-operator/cluster-operator/internal/ossvc"
	"github.com/opensearch-operator/cluster-operator/internal/retry"
)

// IndexState is the open/closed/red classification of one index.
type IndexState string

const (
	IndexOpen   IndexState = "open"
	IndexClosed IndexState = "closed"
	IndexRed    IndexState = "red"
)

// IndexStatus describes one index as reported by _cat/indices.
type IndexStatus struct {
	Name  string     `json:"index"`
	State IndexState `json:"state"`
	Health string    `json:"health"`
}

type catNodeEntry struct {
	Name  string `json:"name"`
	IP    string `json:"ip"`
	Roles string `json:"node.role"`
}

type catIndexEntry struct {
	Index  string `json:"index"`
	Status string `json:"status"`
	Health string `json:"health"`
}

type clusterHealthResponse struct {
	Status string `json:"status"`
}

// Reader queries an OpenSearch cluster for its current topology.
type Reader struct {
	client *ossvc.Client
	app    model.App
}

// New builds a Reader against an already-constructed OpenSearch client.
func New(client *ossvc.Client, app model.App) *Reader {
	return &Reader{client: client, app: app}
}

// Nodes enumerates every node currently in the cluster via
// GET /_cat/nodes, tagging each with the Reader's App identity.
func (r *Reader) Nodes(ctx context.Context) ([]model.Node, error) {
	var entries []catNodeEntry
	err := retry.Do(ctx, retry.ClusterAdminCall, nil, func() error {
		return r.client.Request(ctx, "GET", "/_cat/nodes?format=json&h=name,ip,node.role", nil, 1, 10*time.Second, nil, &entries)
	})
	if err != nil {
		return nil, fmt.Errorf("topology: listing nodes: %w", err)
	}

	nodes := make([]model.Node, 0, len(entries))
	for _, e := range entries {
		nodes = append(nodes, model.Node{
			Name:  e.Name,
			IP:    e.IP,
			Roles: parseRoleMask(e.Roles),
			App:   r.app,
		})
	}
	return nodes, nil
}

// Indices enumerates every index's open/closed/red state via
// GET /_cat/indices.
func (r *Reader) Indices(ctx context.Context) ([]IndexStatus, error) {
	var entries []catIndexEntry
	err := retry.Do(ctx, retry.ClusterAdminCall, nil, func() error {
		return r.client.Request(ctx, "GET", "/_cat/indices?format=json&h=index,status,health", nil, 1, 10*time.Second, nil, &entries)
	})
	if err != nil {
		return nil, fmt.Errorf("topology: listing indices: %w", err)
	}

	statuses := make([]IndexStatus, 0, len(entries))
	for _, e := range entries {
		state := IndexOpen
		if e.Status == "close" {
			state = IndexClosed
		} else if e.Health == "red" {
			state = IndexRed
		}
		statuses = append(statuses, IndexStatus{Name: e.Index, State: state, Health: e.Health})
	}
	return statuses, nil
}

// Health returns the cluster health color via GET /_cluster/health,
// mapping the raw OpenSearch color only. It never returns
// model.HealthYellowTemp: a raw "yellow" is always HealthYellow, and this
// package takes no input on which indices are intentionally offline
// cold/frozen tiers.
func (r *Reader) Health(ctx context.Context) (model.HealthColor, error) {
	var resp clusterHealthResponse
	err := retry.Do(ctx, retry.ClusterAdminCall, nil, func() error {
		return r.client.Request(ctx, "GET", "/_cluster/health", nil, 1, 10*time.Second, nil, &resp)
	})
	if err != nil {
		return model.HealthUnreachable, fmt.Errorf("topology: cluster health: %w", err)
	}
	switch resp.Status {
	case "green":
		return model.HealthGreen, nil
	case "yellow":
		return model.HealthYellow, nil
	case "red":
		return model.HealthRed, nil
	default:
		return model.HealthUnknown, nil
	}
}

// parseRoleMask turns OpenSearch's single-letter node.role column (e.g.
// "dimr") into the explicit Role set this module works with.
func parseRoleMask(mask string) []model.Role {
	var roles []model.Role
	for _, c := range mask {
		switch c {
		case 'd':
			roles = append(roles, model.RoleData)
		case 'm':
			roles = append(roles, model.RoleClusterManager)
		case 'i':
			roles = append(roles, model.RoleIngest)
		case 'l':
			roles = append(roles, model.RoleML)
		case 'v':
			roles = append(roles, model.RoleVotingOnly)
		case 'r':
			roles = append(roles, model.RoleCoordinating)
		}
	}
	normalized, _ := model.NormalizeRoles(roles)
	return normalized
}
