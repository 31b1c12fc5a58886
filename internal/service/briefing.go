package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/model"
	"github.com/iliyamo/phdplan/internal/queue"
	"github.com/iliyamo/phdplan/internal/repository"
)

// DailyBriefings builds one briefing per user who has open tasks on
// today. Each briefing covers the user's own tasks only.
func (s *Planner) DailyBriefings(ctx context.Context, today model.Date) ([]queue.DailyBriefingEvent, error) {
	users, err := s.users.List(ctx, repository.Page{})
	if err != nil {
		return nil, err
	}
	var out []queue.DailyBriefingEvent
	for _, u := range users {
		tasks, err := s.tasks.ListOpenOn(ctx, access.Scope{OwnerIDs: []uint64{u.ID}}, today)
		if err != nil {
			return nil, fmt.Errorf("open tasks of user %d: %w", u.ID, err)
		}
		if len(tasks) == 0 {
			continue
		}
		SortByUrgency(tasks)
		ev := queue.DailyBriefingEvent{UserID: u.ID, Email: u.Email, Date: today.String()}
		for _, t := range tasks {
			ev.Tasks = append(ev.Tasks, queue.BriefingTask{
				ID:          t.ID,
				Description: t.Description,
				Priority:    t.Priority.String(),
				Status:      t.Status.String(),
			})
		}
		out = append(out, ev)
	}
	return out, nil
}

// BriefingScheduler publishes the daily briefings on a cron schedule.
type BriefingScheduler struct {
	cron    *cron.Cron
	planner *Planner
	events  Publisher
	loc     *time.Location
}

// NewBriefingScheduler runs the job in loc, which also decides what
// "today" is. A nil loc means time.Local.
func NewBriefingScheduler(planner *Planner, events Publisher, loc *time.Location) *BriefingScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &BriefingScheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		planner: planner,
		events:  events,
		loc:     loc,
	}
}

// Schedule registers the briefing job. spec is either "HH:MM" for a
// daily run or a standard five-field cron expression.
func (b *BriefingScheduler) Schedule(spec string) (cron.EntryID, error) {
	expr, err := BriefingSpec(spec)
	if err != nil {
		return 0, err
	}
	return b.cron.AddFunc(expr, b.run)
}

func (b *BriefingScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := b.RunOnce(ctx); err != nil {
		log.Printf("briefing: %v", err)
	}
}

// RunOnce builds and publishes the briefings for the current day in the
// scheduler's location. A failed publish does not stop the remaining
// users; the failures are returned joined.
func (b *BriefingScheduler) RunOnce(ctx context.Context) error {
	today := model.DateOf(b.planner.now().In(b.loc))
	briefings, err := b.planner.DailyBriefings(ctx, today)
	if err != nil {
		return err
	}
	var errs []error
	for _, ev := range briefings {
		if err := b.events.Publish(ctx, queue.DailyBriefingQueue, ev); err != nil {
			log.Printf("briefing: user %d: %v", ev.UserID, err)
			errs = append(errs, fmt.Errorf("publish briefing for user %d: %w", ev.UserID, err))
		}
	}
	log.Printf("briefing: published %d of %d briefings", len(briefings)-len(errs), len(briefings))
	return errors.Join(errs...)
}

func (b *BriefingScheduler) Start() { b.cron.Start() }

func (b *BriefingScheduler) Stop() {
	ctx := b.cron.Stop()
	<-ctx.Done()
}

// BriefingSpec turns "HH:MM" into a daily cron expression and validates
// anything else as a standard cron expression.
func BriefingSpec(spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if parts := strings.Split(spec, ":"); len(parts) == 2 {
		hour, err := strconv.Atoi(parts[0])
		if err != nil || hour < 0 || hour > 23 {
			return "", fmt.Errorf("invalid hour in %q", spec)
		}
		minute, err := strconv.Atoi(parts[1])
		if err != nil || minute < 0 || minute > 59 {
			return "", fmt.Errorf("invalid minute in %q", spec)
		}
		// cron format: minute hour dom month dow
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return "", fmt.Errorf("invalid briefing schedule %q: %w", spec, err)
	}
	return spec, nil
}
