// Copyright (C) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package model

// Directive is a pending work item the PCM emits for the lifecycle
// controller and the status publisher to consume.
type Directive string

const (
	DirectiveNone                       Directive = "none"
	DirectiveShowStatus                 Directive = "show_status"
	DirectiveWaitForPeerClusterRelation Directive = "wait_for_peer_cluster_relation"
	DirectiveInheritClusterName         Directive = "inherit_cluster_name"
	DirectiveValidateClusterName        Directive = "validate_cluster_name"
	DirectiveReconfigure                Directive = "reconfigure"
)

// blockingDirectives are directives whose presence in PendingDirectives
// prevents a start.
var blockingDirectives = map[Directive]bool{
	DirectiveWaitForPeerClusterRelation: true,
	DirectiveReconfigure:                true,
	DirectiveValidateClusterName:        true,
	DirectiveInheritClusterName:         true,
}

// IsBlocking reports whether d prevents a start while pending.
func (d Directive) IsBlocking() bool {
	return blockingDirectives[d]
}

// ContainsDirective reports whether list already has d (directives are
// queued at most once).
func ContainsDirective(list []Directive, d Directive) bool {
	for _, existing := range list {
		if existing == d {
			return true
		}
	}
	return false
}

// RemoveDirective returns list with every occurrence of d removed.
func RemoveDirective(list []Directive, d Directive) []Directive {
	out := list[:0:0]
	for _, existing := range list {
		if existing != d {
			out = append(out, existing)
		}
	}
	return out
}

// AppendDirective appends d to list iff it is not already queued.
func AppendDirective(list []Directive, d Directive) []Directive {
	if ContainsDirective(list, d) {
		return list
	}
	return append(list, d)
}
