// Package app wires configuration, the feed pipeline and the agenda store
// into something the hosts (web, terminal, CLI renderers) share.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"schedcal/internal/agenda"
	"schedcal/internal/calendar"
	"schedcal/internal/config"
	"schedcal/internal/ics"
	appLog "schedcal/internal/log"
	"schedcal/internal/model"
)

// Runtime is the host side of the calendar: it owns the event store and
// keeps it fed from the configured sources.
type Runtime struct {
	Config   *config.Config
	Location *time.Location
	Store    *agenda.Store

	fetcher *ics.Fetcher
	sources []ics.Source
	weekly  []agenda.WeeklySlot
	now     func() time.Time
	cron    *cron.Cron
}

// New validates cfg and prepares an empty store.
func New(cfg *config.Config) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("app: config is nil")
	}
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("timezone fallback to local", err, "timezone", cfg.Timezone)
	}

	weekly := make([]agenda.WeeklySlot, 0, len(cfg.Availability))
	for _, a := range cfg.Availability {
		ws, err := agenda.ParseWeeklySlot(a.Weekday, a.Start, a.End)
		if err != nil {
			return nil, fmt.Errorf("app: availability: %w", err)
		}
		weekly = append(weekly, ws)
	}

	sources := make([]ics.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		if s.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: s.ID, Name: s.Name, URL: s.URL, Color: s.Color})
	}

	store := agenda.New(nil)
	if cfg.EnforceAvailability {
		store.SetPolicy(store.WithinAvailability)
	}

	return &Runtime{
		Config:   cfg,
		Location: loc,
		Store:    store,
		fetcher:  ics.NewFetcher(cfg.CacheDir, 0),
		sources:  sources,
		weekly:   weekly,
		now:      time.Now,
	}, nil
}

// Window is the expansion range: HorizonDays around today.
func (r *Runtime) Window() ics.Window {
	today := calendar.StartOfDay(r.now().In(r.Location))
	h := r.Config.HorizonDays
	return ics.Window{
		Start:    today.AddDate(0, 0, -h),
		End:      today.AddDate(0, 0, h),
		Location: r.Location,
	}
}

// Refresh reloads all feeds and availability into the store. Source
// failures are logged; the store is still replaced with what loaded.
func (r *Runtime) Refresh(ctx context.Context) error {
	w := r.Window()
	r.Store.SetAvailability(agenda.ExpandWeekly(r.weekly, w.Start, w.End, r.Location))

	if len(r.sources) == 0 {
		return nil
	}
	events, errs := ics.Load(ctx, r.fetcher, r.sources, w)
	if events != nil {
		r.Store.Replace(events)
	}
	return errors.Join(errs...)
}

// Start refreshes once and then on the configured cron schedule until ctx
// is done.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil {
		appLog.Error("initial refresh incomplete", err)
	}

	c := cron.New(cron.WithLocation(r.Location))
	if _, err := c.AddFunc(r.Config.Refresh, func() {
		if err := r.Refresh(ctx); err != nil {
			appLog.Error("scheduled refresh incomplete", err)
		}
	}); err != nil {
		return fmt.Errorf("app: refresh schedule %q: %w", r.Config.Refresh, err)
	}
	c.Start()
	r.cron = c
	appLog.Info("refresh scheduler started", "spec", r.Config.Refresh)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}

// Metrics returns the view metrics from config.
func (r *Runtime) Metrics() calendar.Metrics {
	return calendar.Metrics{HourHeight: r.Config.HourHeight, Margin: r.Config.CardMargin}
}

// NewCalendar mounts a calendar instance over the current store contents.
// Extra options apply after the configured ones.
func (r *Runtime) NewCalendar(hooks calendar.Hooks, opts ...calendar.Option) *calendar.Calendar {
	base := []calendar.Option{
		calendar.WithMetrics(r.Metrics()),
		calendar.WithDragThreshold(r.Config.DragThreshold),
		calendar.WithReturnDuration(r.Config.ReturnDuration()),
		calendar.WithStateOptions(
			calendar.WithLocation(r.Location),
			calendar.WithView(r.Config.View()),
		),
	}
	return calendar.New(r.Store.Events(), r.Store.Availability(), r.Config.ThemeModel(), hooks, append(base, opts...)...)
}

// RescheduleHook is the drag-end hook every host installs: it forwards the
// proposal to the store. after runs with the decision, e.g. to re-supply
// events to the calendar.
func (r *Runtime) RescheduleHook(after func(agenda.Move, error)) calendar.DragEndHandler {
	return calendar.DragEndFunc(func(ev model.Event, newStart time.Time) {
		m, err := r.Store.Reschedule(ev.ID, newStart)
		if err != nil {
			appLog.Error("reschedule failed", err, "id", ev.ID)
		}
		if after != nil {
			after(m, err)
		}
	})
}
