// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

package ossvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestDecodesJSONOn200(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cluster_name":"prod"}`))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "https://")
	client := New(host, BasicAuth{Username: "admin", Password: "admin"}, srv.Client().Transport.(*http.Transport).TLSClientConfig, nil)

	var out struct {
		ClusterName string `json:"cluster_name"`
	}
	err := client.Request(context.Background(), "GET", "/", nil, 1, 2*time.Second, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "prod", out.ClusterName)
}

func TestRequestReturnsStatusErrorWithoutRetrying(t *testing.T) {
	attempts := 0
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "https://")
	client := New(host, BasicAuth{}, srv.Client().Transport.(*http.Transport).TLSClientConfig, nil)

	err := client.Request(context.Background(), "GET", "/", nil, 3, 2*time.Second, nil, nil)
	require.Error(t, err)
	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 1, attempts, "status errors must not be retried by the client layer")
}

func TestRequestFallsBackToAltHostOnTransportFailure(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cluster_name":"prod"}`))
	}))
	defer srv.Close()

	goodHost := strings.TrimPrefix(srv.URL, "https://")
	client := New("127.0.0.1:1", BasicAuth{}, srv.Client().Transport.(*http.Transport).TLSClientConfig, nil)

	var out struct {
		ClusterName string `json:"cluster_name"`
	}
	err := client.Request(context.Background(), "GET", "/", nil, 1, 2*time.Second, []string{goodHost}, &out)
	require.NoError(t, err)
	assert.Equal(t, "prod", out.ClusterName)
}
