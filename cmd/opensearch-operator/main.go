// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Command opensearch-operator is the per-unit CLI front-end: one
// invocation evaluates or drives one
// aspect of the operator core (peer-cluster orchestration, lifecycle,
// snapshots, TLS rotation) and exits, the way the deployment substrate's
// own supervisor expects a hook to behave.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/opensearch-operator/cluster-operator/cmd/opensearch-operator/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
