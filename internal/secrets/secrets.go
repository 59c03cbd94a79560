// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package secrets generates the passwords the operator owns: the admin/
// kibana/monitor OpenSearch users and the per-unit PKCS12 keystore/
// truststore passwords. Plain alphanumeric passwords come from raw
// entropy; keystore passwords use sethvargo/go-password for the digit
// and symbol floor PKCS12 tooling expects.
package secrets

import (
	"crypto/rand"
	b64 "encoding/base64"
	"fmt"
	"regexp"

	gopassword "github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/bcrypt"
)

// GenerateUserPassword produces a plain alphanumeric password of the given
// length, used for the OpenSearch admin/kibana/monitor users.
func GenerateUserPassword(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("cannot create password of length %d", length)
	}
	b := make([]byte, length*3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	pw, err := stripNonAlphaNumeric(b64.StdEncoding.EncodeToString(b))
	if err != nil {
		return "", err
	}
	if len(pw) < length {
		return "", fmt.Errorf("insufficient entropy to build a %d character password", length)
	}
	return pw[:length], nil
}

// GenerateKeystorePassword produces a password suitable for a PKCS12
// keystore/truststore: length characters, at least 2 digits and 2 symbols,
// no repeated runs.
func GenerateKeystorePassword(length int) (string, error) {
	digits := length / 8
	if digits < 2 {
		digits = 2
	}
	symbols := digits
	return gopassword.Generate(length, digits, symbols, false, false)
}

// HashPassword bcrypt-hashes a credential so its drift can be detected
// without retaining the plaintext.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("secrets: hashing password: %w", err)
	}
	return string(hashed), nil
}

// PasswordMatchesHash reports whether password is the plaintext behind a
// hash previously produced by HashPassword.
func PasswordMatchesHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func stripNonAlphaNumeric(input string) (string, error) {
	reg, err := regexp.Compile("[^a-zA-Z0-9]+")
	if err != nil {
		return "", err
	}
	return reg.ReplaceAllString(input, ""), nil
}
