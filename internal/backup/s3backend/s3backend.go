// Copyright (c) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package s3backend validates S3 snapshot-repository credentials before
// they are handed to OpenSearch's repository-s3 plugin, with the one
// aws-sdk-go call cheap enough to run on every credential change.
package s3backend

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/opensearch-operator/cluster-operator/internal/model"
)

// ValidateCredentials issues a HeadBucket call against creds, the
// cheapest probe that confirms both the credentials and the bucket are
// usable without mutating anything. A nil error means OpenSearch's own
// repository-s3 plugin should accept the same credentials.
func ValidateCredentials(creds *model.S3Credentials) error {
	if creds == nil {
		return fmt.Errorf("s3backend: no credentials supplied")
	}
	cfg := aws.NewConfig().
		WithCredentials(credentials.NewStaticCredentials(creds.AccessKey, creds.SecretKey, "")).
		WithS3ForcePathStyle(true)
	if creds.Region != "" {
		cfg = cfg.WithRegion(creds.Region)
	} else {
		cfg = cfg.WithRegion("us-east-1")
	}
	if creds.Endpoint != "" {
		cfg = cfg.WithEndpoint(creds.Endpoint)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return fmt.Errorf("s3backend: building session: %w", err)
	}
	svc := s3.New(sess)
	_, err = svc.HeadBucket(&s3.HeadBucketInput{Bucket: aws.String(creds.Bucket)})
	if err == nil {
		return nil
	}
	if aerr, ok := err.(awserr.Error); ok {
		return fmt.Errorf("s3backend: bucket %q rejected credentials: %s", creds.Bucket, aerr.Code())
	}
	return fmt.Errorf("s3backend: probing bucket %q: %w", creds.Bucket, err)
}
