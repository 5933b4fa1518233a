package corporate

import (
	"errors"
	"strings"
)

type Mode string

const (
	ModeLinkOnly   Mode = "LINK_ONLY"
	ModeCodeUnlock Mode = "CODE_UNLOCK"
)

var (
	ErrUnknownProgram = errors.New("unknown corporate program")
	ErrCodeRequired   = errors.New("corporate access code required")
	ErrCodeMismatch   = errors.New("corporate access code does not match")
	ErrDayNotAllowed  = errors.New("day not covered by corporate authorization")
)

// Program is a named access policy granting booking rights on specific
// calendar dates, optionally gated by a secret code.
type Program struct {
	Slug                   string   `json:"slug"`
	Mode                   Mode     `json:"mode"`
	Code                   string   `json:"code,omitempty"`
	AllowedDays            []string `json:"allowedDays"`
	AllowedServiceIDs      []string `json:"allowedServiceIds,omitempty"`
	AllowedPractitionerIDs []string `json:"allowedPractitionerIds,omitempty"`
}

// AllowsDay reports whether the program claims the given YYYY-MM-DD date.
func (p *Program) AllowsDay(day string) bool {
	for _, d := range p.AllowedDays {
		if d == day {
			return true
		}
	}
	return false
}

// AllowsService reports whether the program permits the service. An empty
// allow-list permits every service.
func (p *Program) AllowsService(serviceID string) bool {
	if len(p.AllowedServiceIDs) == 0 {
		return true
	}
	for _, id := range p.AllowedServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

// AllowsPractitioner reports whether the program permits the practitioner.
// An empty allow-list permits every practitioner.
func (p *Program) AllowsPractitioner(practitionerID string) bool {
	if len(p.AllowedPractitionerIDs) == 0 {
		return true
	}
	for _, id := range p.AllowedPractitionerIDs {
		if id == practitionerID {
			return true
		}
	}
	return false
}

// Context carries the corporate claim supplied by a caller.
type Context struct {
	Slug string
	Code string
}

// DayFlag is the per-date partition the resolver exposes to clients.
type DayFlag struct {
	CorporateOnly bool     `json:"corporateOnly"`
	ProgramSlugs  []string `json:"programSlugs,omitempty"`
}

// Gate partitions calendar days into public vs corporate-only and checks
// program authorization.
type Gate struct {
	programs map[string]*Program
	byDay    map[string][]string
}

func NewGate(programs []Program) *Gate {
	g := &Gate{
		programs: make(map[string]*Program, len(programs)),
		byDay:    make(map[string][]string),
	}
	for i := range programs {
		p := &programs[i]
		if p.Slug == "" {
			continue
		}
		g.programs[strings.ToLower(p.Slug)] = p
		for _, day := range p.AllowedDays {
			g.byDay[day] = append(g.byDay[day], p.Slug)
		}
	}
	return g
}

// CorporateOnly reports whether any program claims the date.
func (g *Gate) CorporateOnly(day string) bool {
	return len(g.byDay[day]) > 0
}

// DayFlags computes the partition for each requested YYYY-MM-DD date.
func (g *Gate) DayFlags(days []string) map[string]DayFlag {
	out := make(map[string]DayFlag, len(days))
	for _, day := range days {
		slugs := g.byDay[day]
		out[day] = DayFlag{CorporateOnly: len(slugs) > 0, ProgramSlugs: slugs}
	}
	return out
}

// Authorize resolves a caller-supplied claim to a program, verifying the
// unlock code when the program requires one. Codes compare
// case-insensitively.
func (g *Gate) Authorize(ctx Context) (*Program, error) {
	p, ok := g.programs[strings.ToLower(ctx.Slug)]
	if !ok {
		return nil, ErrUnknownProgram
	}
	if p.Mode == ModeCodeUnlock {
		if ctx.Code == "" {
			return nil, ErrCodeRequired
		}
		if !strings.EqualFold(ctx.Code, p.Code) {
			return nil, ErrCodeMismatch
		}
	}
	return p, nil
}

// CheckDay re-verifies a carried corporate authorization against a target
// date. Bookings holding a program slug must stay on that program's days;
// bookings without one must stay off corporate-only days. Reschedules call
// this so an authorization never migrates across programs.
func (g *Gate) CheckDay(slug, day string) error {
	if slug == "" {
		if g.CorporateOnly(day) {
			return ErrDayNotAllowed
		}
		return nil
	}
	p, ok := g.programs[strings.ToLower(slug)]
	if !ok {
		return ErrUnknownProgram
	}
	if !p.AllowsDay(day) {
		return ErrDayNotAllowed
	}
	return nil
}
