// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package tlsfabric implements the TLS manager: CSR generation,
// CA/per-unit truststore maintenance, and the two-phase CA-rotation
// protocol. The on-disk material itself is plain PEM, with robfig/cron
// driving the periodic expiry sweep from
// cmd/opensearch-operator/cmd/rotatecca.go.
package tlsfabric

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"net"
	"time"
)

// csrMarkerOID is the fixed SAN-adjacent extension OID every CSR carries
// regardless of scope.
var csrMarkerOID = asn1.ObjectIdentifier{1, 2, 3, 4, 5, 5}

// Scope is one of the three certificate scopes.
type Scope string

const (
	ScopeAppAdmin      Scope = "app_admin"
	ScopeUnitTransport Scope = "unit_transport"
	ScopeUnitHTTP      Scope = "unit_http"
)

// CSRRequest describes one certificate-signing request to submit to the
// external certificate provider.
type CSRRequest struct {
	Scope        Scope
	ClusterName  string
	UnitIPs      []net.IP
	UnitHostname string
	PublicIP     net.IP // unit_http scope only, if known
	PrivateKey   *rsa.PrivateKey
	DER          []byte
}

// GenerateCSR builds an RSA key and CSR: CN="admin" for
// APP_ADMIN, else CN=unit_ip; organization=clusterName; the fixed OID SAN
// plus scope-appropriate IPs/hostnames.
func GenerateCSR(scope Scope, clusterName string, unitIP net.IP, unitHostname string, publicIP net.IP) (*CSRRequest, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("tlsfabric: generating key: %w", err)
	}

	cn := unitIP.String()
	if scope == ScopeAppAdmin {
		cn = "admin"
	}

	template := x509.CertificateRequest{
		Subject: pkix.Name{
			CommonName:   cn,
			Organization: []string{clusterName},
		},
		ExtraExtensions: []pkix.Extension{sanPlaceholderExtension()},
	}

	ips := []net.IP{unitIP}
	dnsNames := []string{unitHostname}
	if scope == ScopeUnitHTTP && publicIP != nil {
		ips = append(ips, publicIP)
	}
	template.IPAddresses = ips
	template.DNSNames = dnsNames

	der, err := x509.CreateCertificateRequest(rand.Reader, &template, key)
	if err != nil {
		return nil, fmt.Errorf("tlsfabric: creating CSR: %w", err)
	}

	return &CSRRequest{
		Scope:        scope,
		ClusterName:  clusterName,
		UnitIPs:      ips,
		UnitHostname: unitHostname,
		PublicIP:     publicIP,
		PrivateKey:   key,
		DER:          der,
	}, nil
}

// sanPlaceholderExtension reserves the fixed OID every CSR must carry
//. The actual SAN encoding (IPs/DNS names) is handled through
// x509.CertificateRequest's IPAddresses/DNSNames fields; this extension
// marks the request as belonging to this operator's certificate fabric.
func sanPlaceholderExtension() pkix.Extension {
	value, _ := asn1.Marshal(asn1.RawValue{Tag: asn1.TagNull})
	return pkix.Extension{
		Id:    csrMarkerOID,
		Value: value,
	}
}

// IssuedCert is the provider's response to a CSR submission.
type IssuedCert struct {
	Cert  []byte // PEM leaf certificate
	CA    []byte // PEM CA certificate currently in force
	Chain []byte // PEM chain bundle
}

// EncodeCertPEM wraps a DER certificate in a PEM block.
func EncodeCertPEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// Issuer returns the string-matched Issuer field of a PEM certificate, as
// used by the trust-store consistency check: a unit considers
// TLS configured iff issuer(cert) == issuer(current CA).
func Issuer(certPEM []byte) (string, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return "", fmt.Errorf("tlsfabric: no PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("tlsfabric: parsing certificate: %w", err)
	}
	return cert.Issuer.String(), nil
}

// FullyConfigured reports whether TLS is usable: true iff, for every scope whose
// keystore is present, the leaf cert's issuer matches the current CA's
// issuer.
func FullyConfigured(leafIssuers map[Scope]string, caIssuer string) bool {
	if len(leafIssuers) == 0 {
		return false
	}
	for _, issuer := range leafIssuers {
		if issuer != caIssuer {
			return false
		}
	}
	return true
}

// NormalizePEMSet splits a PEM bundle into a set of whitespace-collapsed,
// trailing-newline-normalized blocks, for the CA-chain equality
// discipline shared with the Backup Coordinator.
func NormalizePEMSet(bundle []byte) map[string]bool {
	set := make(map[string]bool)
	rest := bundle
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		set[normalizeBlock(block)] = true
	}
	return set
}

func normalizeBlock(block *pem.Block) string {
	raw := pem.EncodeToMemory(block)
	return string(bytes.TrimSpace(raw))
}

// PEMSetsEqual reports whether two PEM bundles contain the same set of
// normalized blocks regardless of order.
func PEMSetsEqual(a, b []byte) bool {
	setA := NormalizePEMSet(a)
	setB := NormalizePEMSet(b)
	if len(setA) != len(setB) {
		return false
	}
	for k := range setA {
		if !setB[k] {
			return false
		}
	}
	return true
}

// ExpiryCheck is one certificate's standing against the periodic
// maintenance sweep: how close it is to NotAfter, and whether
// that crosses the configured rotation-warning threshold.
type ExpiryCheck struct {
	Subject  string
	NotAfter time.Time
	NearExpiry bool
}

// CheckExpiry parses a PEM certificate and reports whether it falls
// within within of its NotAfter, for the trust-store maintenance sweep
// a supervisor schedules alongside BeginRotation/FinishRotation.
func CheckExpiry(certPEM []byte, now time.Time, within time.Duration) (ExpiryCheck, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return ExpiryCheck{}, fmt.Errorf("tlsfabric: no PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return ExpiryCheck{}, fmt.Errorf("tlsfabric: parsing certificate: %w", err)
	}
	return ExpiryCheck{
		Subject:    cert.Subject.String(),
		NotAfter:   cert.NotAfter,
		NearExpiry: !cert.NotAfter.After(now.Add(within)),
	}, nil
}
