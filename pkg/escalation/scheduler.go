// Package escalation runs the periodic sweep that repeats or escalates
// notifications for tickets no project member has acknowledged in time,
// using a ticker-driven, stop-channel run loop.
package escalation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bullet-relay/bulletd/pkg/models"
	"github.com/bullet-relay/bulletd/pkg/services"
	"github.com/bullet-relay/bulletd/pkg/store"
)

// Scheduler periodically sweeps every escalation-enabled, non-silenced
// project's pending/escalated tickets and repeats or escalates
// notifications per spec.md §4.E's decision table.
type Scheduler struct {
	interval      time.Duration
	projects      *store.ProjectStore
	tickets       *store.TicketStore
	groups        *store.NotificationGroupStore
	notifications *services.NotificationService
	templates     *services.TemplateService
	clock         store.Clock
	logger        *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool
}

// NewScheduler builds a Scheduler. interval is the tick period between
// sweeps (spec §6's escalation_check_interval).
func NewScheduler(
	interval time.Duration,
	projects *store.ProjectStore,
	tickets *store.TicketStore,
	groups *store.NotificationGroupStore,
	notifications *services.NotificationService,
	templates *services.TemplateService,
	clock store.Clock,
) *Scheduler {
	if projects == nil || tickets == nil || groups == nil || notifications == nil || templates == nil {
		panic("NewScheduler: all collaborators must be non-nil")
	}
	if clock == nil {
		clock = store.SystemClock{}
	}
	return &Scheduler{
		interval:      interval,
		projects:      projects,
		tickets:       tickets,
		groups:        groups,
		notifications: notifications,
		templates:     templates,
		clock:         clock,
		logger:        slog.Default().With("component", "escalation-scheduler"),
		stopCh:        make(chan struct{}),
	}
}

// Start launches the sweep loop in a background goroutine. Safe to call
// once; subsequent calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	if s.started {
		s.logger.Warn("escalation scheduler already started, ignoring duplicate Start call")
		return
	}
	s.started = true

	s.logger.Info("starting escalation scheduler", "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop signals the sweep loop to exit and waits for the in-flight sweep
// (if any) to finish, guaranteeing single-job/no-overlap semantics even
// across shutdown.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.logger.Info("escalation scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logger.Error("escalation sweep failed", "error", err)
			}
		}
	}
}

// sweep runs one tick: every escalation-enabled active project, skipping
// silenced ones, each ticket processed independently so one failure
// doesn't block the rest. No overlapping sweep can run concurrently
// because the ticker blocks on this call returning.
func (s *Scheduler) sweep(ctx context.Context) error {
	now := s.clock.Now()

	projects, err := s.projects.FindEscalationEnabled(ctx)
	if err != nil {
		return err
	}

	for _, project := range projects {
		if project.IsSilenced(now) {
			s.logger.Debug("project silenced, skipping escalation check", "project_id", project.ID)
			continue
		}
		if err := s.checkProject(ctx, project, now); err != nil {
			s.logger.Error("failed to check project tickets", "project_id", project.ID, "error", err)
		}
	}

	return nil
}

func (s *Scheduler) checkProject(ctx context.Context, project *models.Project, now time.Time) error {
	tickets, err := s.tickets.FindByProjectAndStatuses(ctx, project.ID, []models.TicketStatus{
		models.StatusPending, models.StatusEscalated,
	})
	if err != nil {
		return err
	}

	maxLevel := len(project.NotificationGroupIDs)
	timeout := time.Duration(project.Escalation.TimeoutMinutes) * time.Minute

	for _, ticket := range tickets {
		if err := s.processTicket(ctx, ticket, project, timeout, maxLevel, now); err != nil {
			s.logger.Error("failed to process ticket", "ticket_id", ticket.ID, "error", err)
		}
	}
	return nil
}

// processTicket implements _process_ticket's decision table exactly:
// critical-severity gate, current-group repeat-before-timeout, timeout
// check, max-level repeat-or-one-shot-event, then escalate.
func (s *Scheduler) processTicket(ctx context.Context, ticket *models.Ticket, project *models.Project, timeout time.Duration, maxLevel int, now time.Time) error {
	if !ticket.CanEscalate() {
		return nil
	}

	currentIndex := ticket.EscalationLevel - 1
	if currentIndex < 0 || currentIndex >= len(project.NotificationGroupIDs) {
		return nil
	}
	currentGroup, err := s.groups.Get(ctx, project.NotificationGroupIDs[currentIndex])
	if err == store.ErrNotFound {
		s.logger.Warn("current notification group not found", "ticket_id", ticket.ID)
		return nil
	}
	if err != nil {
		return err
	}

	lastNotified := ticket.CreatedAt
	if ticket.LastNotifiedAt != nil {
		lastNotified = *ticket.LastNotifiedAt
	}
	sinceNotification := now.Sub(lastNotified)

	if currentGroup.RepeatInterval != nil && *currentGroup.RepeatInterval > 0 && sinceNotification < timeout {
		repeatInterval := time.Duration(*currentGroup.RepeatInterval) * time.Minute
		if sinceNotification >= repeatInterval {
			return s.repeatNotification(ctx, ticket, currentGroup, project, now)
		}
	}

	if sinceNotification < timeout {
		return nil
	}

	if ticket.EscalationLevel >= maxLevel {
		if currentGroup.RepeatInterval != nil && *currentGroup.RepeatInterval > 0 {
			repeatInterval := time.Duration(*currentGroup.RepeatInterval) * time.Minute
			if sinceNotification >= repeatInterval {
				return s.repeatNotification(ctx, ticket, currentGroup, project, now)
			}
			return nil
		}
		if ticket.HasEventType(models.EventMaxLevelReached) {
			return nil
		}
		ticket.AddEvent(models.TicketEvent{
			Type:      models.EventMaxLevelReached,
			Level:     intPtr(ticket.EscalationLevel),
			GroupName: currentGroup.Name,
			Details:   "已到达最高级别，无更多通知组",
		})
		return s.tickets.Save(ctx, ticket)
	}

	nextLevel := ticket.EscalationLevel + 1
	nextIndex := nextLevel - 1
	if nextIndex >= len(project.NotificationGroupIDs) {
		return nil
	}
	nextGroup, err := s.groups.Get(ctx, project.NotificationGroupIDs[nextIndex])
	if err == store.ErrNotFound {
		s.logger.Warn("next notification group not found", "ticket_id", ticket.ID, "level", nextLevel)
		return nil
	}
	if err != nil {
		return err
	}

	return s.escalateTicket(ctx, ticket, nextLevel, nextGroup, project, now)
}

func (s *Scheduler) repeatNotification(ctx context.Context, ticket *models.Ticket, group *models.NotificationGroup, project *models.Project, now time.Time) error {
	s.logger.Info("repeating notification", "ticket_id", ticket.ID, "group", group.Name)

	tmpl, err := s.templates.GetTemplateForProject(ctx, project)
	if err != nil {
		return err
	}

	results := s.notifications.SendToGroup(ctx, ticket, group, &tmpl, project, services.SendToGroupInput{IsRepeated: true})
	success := anyTrue(results)

	ticket.AddEvent(models.TicketEvent{
		Type:      models.EventRepeated,
		Level:     intPtr(ticket.EscalationLevel),
		GroupName: group.Name,
		Success:   &success,
		Details:   detailsFor(results, "无渠道配置"),
	})
	ticket.LastNotifiedAt = &now
	ticket.NotificationCount++

	return s.tickets.Save(ctx, ticket)
}

func (s *Scheduler) escalateTicket(ctx context.Context, ticket *models.Ticket, newLevel int, group *models.NotificationGroup, project *models.Project, now time.Time) error {
	s.logger.Info("escalating ticket", "ticket_id", ticket.ID, "level", newLevel, "group", group.Name)

	ticket.Status = models.StatusEscalated
	ticket.EscalationLevel = newLevel

	tmpl, err := s.templates.GetTemplateForProject(ctx, project)
	if err != nil {
		return err
	}

	results := s.notifications.SendToGroup(ctx, ticket, group, &tmpl, project, services.SendToGroupInput{IsEscalated: true})
	success := anyTrue(results)

	ticket.AddEvent(models.TicketEvent{
		Type:      models.EventEscalated,
		Level:     intPtr(newLevel),
		GroupName: group.Name,
		Success:   &success,
		Details:   detailsFor(results, "无渠道配置"),
	})
	ticket.LastNotifiedAt = &now
	ticket.NotificationCount++

	return s.tickets.Save(ctx, ticket)
}

func anyTrue(m map[string]bool) bool {
	for _, v := range m {
		if v {
			return true
		}
	}
	return false
}

func detailsFor(results map[string]bool, emptyMsg string) string {
	if len(results) == 0 {
		return emptyMsg
	}
	return "通知结果已发送"
}

func intPtr(n int) *int { return &n }
