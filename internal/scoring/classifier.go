// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package scoring

import (
	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/models"
)

// Classify maps an overall health score onto a capacity tier. The thresholds
// are operator configuration, never constants, so tiers can be retuned
// without redeploying. Lower tier boundaries are inclusive: a score exactly
// at the watch threshold classifies as watch, not risk.
func Classify(overallHealthScore float64, cfg *config.TiersConfig) models.Tier {
	switch {
	case overallHealthScore >= cfg.ActiveThreshold:
		return models.TierActive
	case overallHealthScore >= cfg.WatchThreshold:
		return models.TierWatch
	default:
		return models.TierRisk
	}
}
