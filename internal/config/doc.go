// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package config provides layered configuration loading for Coterie using
// koanf v2: built-in defaults, then an optional YAML config file, then
// COTERIE_* environment variables.
//
// All capacity-engine tunables (scoring weights, tier thresholds and target
// ratios, rotation timers, highlight knobs) are configuration, never code
// constants. Validate rejects broken deployments at startup: a non-positive
// ceiling, tier ratios that do not sum to 100 points, inverted thresholds, or
// a warning period that is not shorter than the grace period all abort the
// process before any data is touched.
package config
