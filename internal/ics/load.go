package ics

import (
	"context"
	"fmt"

	appLog "schedcal/internal/log"
	"schedcal/internal/model"
)

// Load runs fetch, parse and expand for all sources. Per-source failures are
// returned alongside whatever the other sources produced.
func Load(ctx context.Context, f *Fetcher, sources []Source, w Window) ([]model.Event, []error) {
	results, errs := f.FetchAll(ctx, sources)

	var vevents []VEvent
	for _, res := range results {
		parsed, err := Parse(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Source.ID, err))
			continue
		}
		vevents = append(vevents, parsed...)
	}

	events, err := Expand(vevents, w)
	if err != nil {
		return nil, append(errs, err)
	}
	appLog.Info("ics load completed",
		"sources", len(sources),
		"failed", len(errs),
		"events", len(events),
	)
	return events, errs
}
