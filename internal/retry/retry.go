// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package retry provides the two named, bounded fixed-wait retry
// policies used around cluster-admin and repository calls, built on
// avast/retry-go/v4.
package retry

import (
	"context"
	"time"

	retrygo "github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Policy is a named, bounded retry schedule.
type Policy struct {
	name     string
	attempts uint
	delay    time.Duration
}

// RepositoryMutation is used around snapshot-repository register/verify
// calls: 3 attempts, 3 second fixed delay.
var RepositoryMutation = Policy{name: "repository_mutation", attempts: 3, delay: 3 * time.Second}

// ClusterAdminCall is used around OpenSearch cluster-admin HTTP calls:
// 6 attempts, 10 second fixed delay.
var ClusterAdminCall = Policy{name: "cluster_admin_call", attempts: 6, delay: 10 * time.Second}

// Attempts exposes the policy's attempt count, for callers (e.g.
// internal/ossvc.Client.Request) that take a raw retry count rather than
// running the full Do wrapper themselves.
func (p Policy) Attempts() int { return int(p.attempts) }

// Do runs fn under p's schedule, logging each retry at Warn via log (which
// may be nil to suppress logging). It returns the last error if every
// attempt fails.
func Do(ctx context.Context, p Policy, log *zap.SugaredLogger, fn func() error) error {
	err := retrygo.Do(
		fn,
		retrygo.Context(ctx),
		retrygo.Attempts(p.attempts),
		retrygo.Delay(p.delay),
		retrygo.DelayType(retrygo.FixedDelay),
		retrygo.LastErrorOnly(true),
		retrygo.OnRetry(func(n uint, err error) {
			if log == nil {
				return
			}
			log.Warnw("retrying after failure",
				"policy", p.name, "attempt", n+1, "max_attempts", p.attempts, "error", err)
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "retry: %s exhausted after %d attempts", p.name, p.attempts)
	}
	return nil
}
