/*
 * Copyright (c) 2020. Ant Group. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package config holds driver-tunable knobs that sit outside the
// OpenPGP card protocol itself: which PC/SC reader to open, fallback
// buffer sizing, and ATR-table overrides for unlisted card clones.
package config

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Config is the top-level driver configuration.
type Config struct {
	// ReaderFilter is a substring match against PC/SC reader names;
	// empty means the first reader PC/SC lists, whether or not a card
	// is present in it.
	ReaderFilter string `toml:"reader_filter"`
	// LogLevel is a logrus level name.
	LogLevel string `toml:"log_level"`
	// LogToStdout routes logs to stdout instead of LogFile.
	LogToStdout bool `toml:"log_to_stdout"`
	// LogFile is used when LogToStdout is false.
	LogFile string `toml:"log_file"`
	// FallbackGetDataBufferSize is a lazy-load buffer size for cards
	// without extended APDU capability. Defaults to 256. It is decoded
	// but not read by the driver: pkg/blob's Loader always uses 256
	// bytes, or 2048 when the card advertises extended APDUs.
	FallbackGetDataBufferSize int `toml:"fallback_get_data_buffer_size"`
	// ATRTableOverridePath names an extra ATR table file, for
	// CryptoStick/Gnuk clones with unlisted ATRs. It is decoded but the
	// file is not loaded: card.Init matches only against atr.Table.
	ATRTableOverridePath string `toml:"atr_table_override_path"`
}

// Default returns the driver's default configuration.
func Default() *Config {
	return &Config{
		LogLevel:                  "info",
		FallbackGetDataBufferSize: 256,
	}
}

// LoadFile decodes a TOML configuration file, starting from Default()
// so unset fields keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}
	return cfg, nil
}
