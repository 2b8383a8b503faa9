package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ternarybob/tempo/internal/common"
	"github.com/ternarybob/tempo/internal/interfaces"
	"github.com/ternarybob/tempo/internal/models"
	"github.com/ternarybob/tempo/internal/triggers"
)

// TriggersFired applies fired bookkeeping to the batch and returns the
// bundles the runtime should execute. A trigger is dropped from the
// result when its job is gone, when it names a calendar (calendars
// cannot be materialized from storage), or when it loses the job
// concurrency race.
func (s *Store) TriggersFired(ctx context.Context, batch []triggers.Trigger) ([]*interfaces.FiredBundle, error) {
	bundles := []*interfaces.FiredBundle{}
	for _, trigger := range batch {
		if trigger.CalendarName() != "" {
			s.logger.Warn().
				Str("trigger", trigger.Key().String()).
				Str("calendar", trigger.CalendarName()).
				Msg("Skipping trigger whose calendar cannot be loaded")
			continue
		}

		previousFireTime := trigger.PreviousFireTime()
		trigger.SetFireInstanceID(common.NewFireInstanceID())
		trigger.Triggered(nil)

		job, err := s.RetrieveJob(ctx, trigger.JobKey())
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				s.logger.Warn().
					Str("trigger", trigger.Key().String()).
					Msg("Skipping fired trigger whose job is gone")
				continue
			}
			return nil, err
		}

		if job.DisallowConcurrentExecution {
			blocked, err := s.claimJobConcurrency(ctx, trigger, job)
			if err != nil {
				return nil, err
			}
			if blocked {
				continue
			}
		}

		bundles = append(bundles, &interfaces.FiredBundle{
			Job:               job,
			Trigger:           trigger,
			Calendar:          nil,
			FireTime:          s.now(),
			ScheduledFireTime: trigger.PreviousFireTime(),
			PreviousFireTime:  previousFireTime,
			NextFireTime:      trigger.NextFireTime(),
		})

		if err := s.StoreTrigger(ctx, trigger, true); err != nil {
			return nil, err
		}
	}
	return bundles, nil
}

// claimJobConcurrency takes the cluster-wide slot for a job that
// disallows concurrent execution. On contention the trigger's own lock
// is released, an expired slot is cleaned up for a later attempt, and
// blocked=true tells the caller to skip this firing.
func (s *Store) claimJobConcurrency(ctx context.Context, trigger triggers.Trigger, job *models.Job) (blocked bool, err error) {
	_, err = s.locksCollection.InsertOne(ctx, s.jobLockDoc(job.Key))
	if err == nil {
		return false, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, models.WrapStorage("insert job lock "+job.Key.String(), err)
	}

	s.logger.Debug().
		Str("job", job.Key.String()).
		Str("trigger", trigger.Key().String()).
		Msg("Job is already running, skipping concurrent firing")

	if err := s.removeTriggerLock(ctx, trigger.Key()); err != nil {
		return false, err
	}

	lock, err := s.findLock(ctx, job.Key.Group, models.JobConcurrencyLockPrefix+job.Key.Name)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	if lock.IsExpired(s.now(), s.config.JobTimeout()) {
		s.logger.Warn().
			Str("job", job.Key.String()).
			Str("owner", lock.InstanceID).
			Msg("Removing expired job concurrency lock")
		if err := s.removeJobLock(ctx, job.Key); err != nil {
			return false, err
		}
	}
	return true, nil
}

// TriggeredJobComplete applies the completion instruction after a job
// execution finishes. The trigger's lock is always released, even when
// the instruction work fails partway.
func (s *Store) TriggeredJobComplete(ctx context.Context, trigger triggers.Trigger, job *models.Job, instruction models.CompletedExecutionInstruction) error {
	defer func() {
		if err := s.removeTriggerLock(ctx, trigger.Key()); err != nil {
			s.logger.Error().
				Err(err).
				Str("trigger", trigger.Key().String()).
				Msg("Failed to release trigger lock after completion")
		}
	}()

	if job.PersistJobDataAfterExecution && job.Data != nil && job.Data.Dirty() {
		if _, err := s.StoreJob(ctx, job, true); err != nil {
			return err
		}
		job.Data.ClearDirty()
	}
	if job.DisallowConcurrentExecution {
		if err := s.removeJobLock(ctx, job.Key); err != nil {
			return err
		}
	}

	stored, err := s.RetrieveTrigger(ctx, trigger.Key())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Deleted while the job ran; nothing left to do.
			return nil
		}
		return err
	}

	switch instruction {
	case models.InstructionDeleteTrigger:
		if trigger.NextFireTime() == nil {
			// Double-check against storage: a reschedule during the
			// execution leaves a trigger that must survive.
			if stored.NextFireTime() == nil {
				if _, err := s.RemoveTrigger(ctx, trigger.Key()); err != nil {
					return err
				}
			}
		} else {
			if _, err := s.RemoveTrigger(ctx, trigger.Key()); err != nil {
				return err
			}
			s.signalSchedulingChange(time.Time{})
		}
	case models.InstructionSetTriggerComplete,
		models.InstructionSetTriggerError,
		models.InstructionSetAllJobTriggersComplete,
		models.InstructionSetAllJobTriggersError:
		s.signalSchedulingChange(time.Time{})
	}
	return nil
}

func (s *Store) signalSchedulingChange(candidate time.Time) {
	if s.signaler != nil {
		s.signaler.SignalSchedulingChange(candidate)
	}
}
