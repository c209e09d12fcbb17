// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package services

import (
	"context"
	"fmt"
)

// SchedulerManager matches the scheduler's Start/Stop lifecycle. Satisfied
// by *scheduler.Scheduler.
type SchedulerManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService wraps the control-loop scheduler as a supervised service,
// adapting Start/Stop to suture's Serve pattern: Start begins the loops,
// Serve blocks until the context is canceled, Stop drains them.
type SchedulerService struct {
	manager SchedulerManager
	name    string
}

// NewSchedulerService creates a new scheduler service wrapper.
func NewSchedulerService(manager SchedulerManager) *SchedulerService {
	return &SchedulerService{
		manager: manager,
		name:    "scheduler",
	}
}

// Serve implements suture.Service. If Start fails the error is returned
// immediately and suture restarts per its backoff policy.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("scheduler stop failed: %w", err)
	}

	return ctx.Err()
}

// String implements fmt.Stringer so suture can name the service in logs.
func (s *SchedulerService) String() string {
	return s.name
}
