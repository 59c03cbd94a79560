// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package cmd

import "time"

// nowSeconds and nowUTC are the only two places this binary calls the
// wall clock directly; every internal/ package takes a Clock interface
// instead so tests never depend on real time.
func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
