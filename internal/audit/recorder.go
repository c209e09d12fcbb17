// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package audit buffers rotation-log writes that happen outside a database
// transaction, such as tier changes and warnings. Eviction and reactivation
// entries are written inside their transactions and never pass through here.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/coterie/internal/models"
)

// writeTimeout bounds each store write by the async worker.
const writeTimeout = 5 * time.Second

// DefaultBufferSize is the event buffer capacity when none is configured.
const DefaultBufferSize = 1000

// Store persists rotation log entries.
type Store interface {
	AppendRotationLog(ctx context.Context, e *models.RotationLogEntry) error
}

// Recorder accepts rotation-log entries without blocking the caller and
// writes them from a background worker. Entries may be dropped when the
// buffer is full; audit writes never stall a scoring or rotation pass.
type Recorder struct {
	store     Store
	eventChan chan *models.RotationLogEntry
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	logger    zerolog.Logger
}

// NewRecorder creates and starts a recorder.
func NewRecorder(store Store, bufferSize int, logger zerolog.Logger) *Recorder {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	r := &Recorder{
		store:     store,
		eventChan: make(chan *models.RotationLogEntry, bufferSize),
		stopChan:  make(chan struct{}),
		logger:    logger.With().Str("component", "audit").Logger(),
	}

	r.wg.Add(1)
	go r.asyncWriter()

	return r
}

// Record queues one entry. Non-blocking; a full buffer drops the entry with
// a log line rather than backing up the caller.
func (r *Recorder) Record(e *models.RotationLogEntry) {
	select {
	case r.eventChan <- e:
	default:
		r.logger.Warn().Str("member_id", e.MemberID).Str("action", string(e.ActionType)).
			Msg("Audit buffer full; entry dropped")
	}
}

// Stop drains the buffer and stops the worker. Safe to call more than once.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}

// asyncWriter processes entries until stopped, then drains what remains.
func (r *Recorder) asyncWriter() {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopChan:
			for {
				select {
				case e := <-r.eventChan:
					r.write(e)
				default:
					return
				}
			}
		case e := <-r.eventChan:
			r.write(e)
		}
	}
}

func (r *Recorder) write(e *models.RotationLogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.store.AppendRotationLog(ctx, e); err != nil {
		r.logger.Error().Str("member_id", e.MemberID).Err(err).
			Msg("Failed to save audit entry")
	}
}
