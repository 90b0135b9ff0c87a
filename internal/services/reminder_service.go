package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"mobicomm_store/internal/models"
)

const (
	// reminder sweeps target plans lapsing within this many days
	expiryWindowDays = 3

	defaultReminderRule = "FREQ=DAILY"

	scheduleKey = "reminders:schedule"
)

// ReminderSchedule is the persisted sweep schedule. Recurrence is an
// RFC 5545 RRULE string so the cadence can be changed without a deploy.
type ReminderSchedule struct {
	RRule   string    `json:"rrule"`
	LastRun time.Time `json:"last_run"`
	NextRun time.Time `json:"next_run"`
}

// ReminderService finds subscribers whose plans are about to lapse and
// sends them expiry reminders through the backend's email endpoints.
type ReminderService struct {
	backend *BackendClient
	cache   *RedisCache
}

func NewReminderService(backend *BackendClient, cache *RedisCache) *ReminderService {
	return &ReminderService{backend: backend, cache: cache}
}

// ExpiringSoon returns plans lapsing within the window, most urgent
// first. Rows with unparseable expiry dates are skipped rather than
// guessed at.
func (s *ReminderService) ExpiringSoon(ctx context.Context, token string) ([]models.ExpiringPlan, error) {
	plans, err := s.backend.ExpiringPlans(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetch expiring plans: %w", err)
	}

	now := time.Now()
	var soon []models.ExpiringPlan
	for _, plan := range plans {
		expiry, err := parseExpiry(plan.ExpiryDate)
		if err != nil {
			continue
		}
		days := int(math.Ceil(expiry.Sub(now).Hours() / 24))
		if days >= 1 && days <= expiryWindowDays {
			plan.DaysRemaining = days
			soon = append(soon, plan)
		}
	}

	sort.Slice(soon, func(i, j int) bool {
		return soon[i].DaysRemaining < soon[j].DaysRemaining
	})
	return soon, nil
}

// RunSweep sends bulk reminders to everyone in the expiry window and
// returns how many were sent
func (s *ReminderService) RunSweep(ctx context.Context, token string) (int, error) {
	soon, err := s.ExpiringSoon(ctx, token)
	if err != nil {
		return 0, err
	}
	if len(soon) == 0 {
		return 0, nil
	}

	userIDs := make([]int, 0, len(soon))
	for _, plan := range soon {
		userIDs = append(userIDs, plan.UserID)
	}

	if err := s.backend.SendBulkReminders(ctx, token, userIDs, 1); err != nil {
		return 0, fmt.Errorf("send bulk reminders: %w", err)
	}
	return len(userIDs), nil
}

// LoadSchedule reads the persisted schedule, falling back to a fresh
// daily one when none exists or no cache is configured.
func (s *ReminderService) LoadSchedule(ctx context.Context) ReminderSchedule {
	sched := ReminderSchedule{RRule: defaultReminderRule}
	if s.cache != nil {
		_ = s.cache.Get(ctx, scheduleKey, &sched)
	}
	if sched.NextRun.IsZero() {
		sched.NextRun = time.Now()
	}
	return sched
}

// AdvanceSchedule stamps a completed run and computes the next
// occurrence from the schedule's RRULE.
func (s *ReminderService) AdvanceSchedule(ctx context.Context, sched ReminderSchedule) (ReminderSchedule, error) {
	now := time.Now()
	sched.LastRun = now
	next, err := nextOccurrence(sched.RRule, now)
	if err != nil {
		return sched, err
	}
	sched.NextRun = next

	if s.cache != nil {
		if err := s.cache.Set(ctx, scheduleKey, sched, 0); err != nil {
			return sched, fmt.Errorf("persist schedule: %w", err)
		}
	}
	return sched, nil
}

// nextOccurrence evaluates an RRULE string against a reference time
func nextOccurrence(rruleStr string, after time.Time) (time.Time, error) {
	rule, err := rrule.StrToRRule(rruleStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse rrule %q: %w", rruleStr, err)
	}
	rule.DTStart(after)
	next := rule.After(after, false)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("rrule %q yields no future occurrence", rruleStr)
	}
	return next, nil
}

// parseExpiry accepts both full timestamps and bare dates
func parseExpiry(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
