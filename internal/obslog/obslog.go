// Copyright (C) 2022, Oracle and/or its affiliates.
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl.

// Package obslog builds the structured zap loggers threaded through every
// component of the operator.
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	timeFormat = "2006-01-02T15:04:05.000Z"
	timeKey    = "@timestamp"
	messageKey = "message"
	callerKey  = "caller"
)

// Field names shared across components, so two log lines about the same
// entity always use the same key.
const (
	FieldApp          = "app_id"
	FieldUnit         = "unit_number"
	FieldComponent    = "component"
	FieldRelationID   = "relation_id"
	FieldSnapshotID   = "snapshot_id"
	FieldBackend      = "backend"
	FieldDirective    = "directive"
)

// New builds a production zap SugaredLogger with the operator's field
// conventions, scoped to a named component (e.g. "pcm", "lifecycle").
func New(component string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.Level.SetLevel(zapcore.InfoLevel)
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	config.EncoderConfig.TimeKey = timeKey
	config.EncoderConfig.MessageKey = messageKey
	config.EncoderConfig.CallerKey = callerKey

	logger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return logger.Sugar().With(FieldComponent, component), nil
}

// NewDevelopment builds a development logger (human-readable, debug level),
// used by the CLI entrypoint when run interactively.
func NewDevelopment(component string) (*zap.SugaredLogger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	config.EncoderConfig.TimeKey = timeKey
	config.EncoderConfig.MessageKey = messageKey
	config.EncoderConfig.CallerKey = callerKey

	logger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return logger.Sugar().With(FieldComponent, component), nil
}
