// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package models contains the domain types shared across Coterie: members and
// their capacity tiers, activity counters and derived scores, waitlist entries,
// community snapshots, the rotation audit log, and highlight records.
//
// Types here carry no behavior beyond small helpers; all mutation happens
// through the database and community packages.
package models
