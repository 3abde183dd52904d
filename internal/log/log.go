/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package log sets up process-wide structured logging and carries a
// logger on a context.Context, mirroring the driver's host-framework
// logging conventions.
package log

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

// SetUp configures the global logrus logger used by the driver.
func SetUp(logLevel string, logToStdout bool, logFile string) error {
	lvl, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)

	if logToStdout || logFile == "" {
		logrus.SetOutput(os.Stdout)
	} else {
		f, err := os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrapf(err, "open log file %s", logFile)
		}
		logrus.SetOutput(f)
	}

	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000000000Z07:00",
		FullTimestamp:   true,
	})
	return nil
}

// WithContext attaches the package-level logger to a background context.
func WithContext() context.Context {
	return WithLogger(context.Background(), logrus.NewEntry(logrus.StandardLogger()))
}

// WithLogger returns a new context derived from ctx with entry attached.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry)
}

// G extracts the logger from ctx, falling back to the standard logger.
func G(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
