package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"mercator-hq/cascade/pkg/audit"
	"mercator-hq/cascade/pkg/catalog"
	"mercator-hq/cascade/pkg/presets"
)

// Catalog prints every rule the registry knows, sorted by id.
func (p *Printer) Catalog(reg *catalog.Registry) error {
	ids := reg.RuleIDs()
	schemas := make([]*catalog.Schema, 0, len(ids))
	for _, id := range ids {
		if s, ok := reg.Lookup(id); ok {
			schemas = append(schemas, s)
		}
	}

	if p.isJSON() {
		return p.writeJSON(struct {
			Label string            `json:"label,omitempty"`
			Rules []*catalog.Schema `json:"rules"`
		}{Label: reg.Label(), Rules: schemas})
	}

	tw := p.table()
	fmt.Fprintln(tw, "RULE\tSEVERITIES\tOPTIONS\tDESCRIPTION")
	for _, s := range schemas {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, severities(s), optionRange(s), s.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	footer := plural(len(schemas), "rule")
	if label := reg.Label(); label != "" {
		footer += " (" + label + ")"
	}
	_, err := fmt.Fprintf(p.w, "\n%s\n", footer)
	return err
}

func severities(s *catalog.Schema) string {
	if len(s.Severities) == 0 {
		return "any"
	}
	names := make([]string, len(s.Severities))
	for i, sev := range s.Severities {
		names[i] = sev.String()
	}
	return strings.Join(names, ",")
}

func optionRange(s *catalog.Schema) string {
	max := s.MaxOptions()
	switch {
	case max < 0:
		return fmt.Sprintf("%d+", s.MinOptions)
	case max == s.MinOptions:
		return fmt.Sprintf("%d", max)
	default:
		return fmt.Sprintf("%d-%d", s.MinOptions, max)
	}
}

type presetView struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Rules        int      `json:"rules"`
	Environments []string `json:"environments,omitempty"`
	Plugins      []string `json:"plugins,omitempty"`
}

// Presets prints the built-in presets in the order given.
func (p *Printer) Presets(list []*presets.Preset) error {
	if p.isJSON() {
		views := make([]presetView, len(list))
		for i, pr := range list {
			views[i] = presetView{
				Name:         pr.Name,
				Description:  pr.Description,
				Rules:        pr.Len(),
				Environments: pr.Environments,
				Plugins:      pr.Plugins,
			}
		}
		return p.writeJSON(views)
	}

	tw := p.table()
	fmt.Fprintln(tw, "NAME\tRULES\tDESCRIPTION")
	for _, pr := range list {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", pr.Name, pr.Len(), pr.Description)
	}
	return tw.Flush()
}

// History prints audit records, newest first as given. Times are shown
// relative to now.
func (p *Printer) History(records []*audit.Record, now time.Time) error {
	if p.isJSON() {
		if records == nil {
			records = []*audit.Record{}
		}
		return p.writeJSON(records)
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(p.w, "no compositions recorded")
		return err
	}

	tw := p.table()
	fmt.Fprintln(tw, "ID\tOUTCOME\tGENERATION\tLAYERS\tRULES\tPROBLEMS\tWHEN")
	for _, rec := range records {
		gen := "-"
		if rec.Generation > 0 {
			gen = fmt.Sprintf("%d", rec.Generation)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\t%s\n",
			shortID(rec.ID),
			rec.Outcome,
			gen,
			len(rec.Layers),
			humanize.Comma(int64(rec.Rules)),
			rec.DiagnosticCount(),
			humanize.RelTime(rec.CreatedAt, now, "ago", "from now"),
		)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
