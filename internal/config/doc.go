// Package config provides configuration structures and utilities for blockphrase.
// It defines the matching thresholds, the embedding provider and storage
// backend selection, page loading settings and report preferences.
package config
