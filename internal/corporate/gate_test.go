package corporate

import (
	"errors"
	"reflect"
	"testing"
)

func testGate() *Gate {
	return NewGate([]Program{
		{
			Slug:        "acme",
			Mode:        ModeCodeUnlock,
			Code:        "SECRET1",
			AllowedDays: []string{"2026-09-07", "2026-09-14"},
		},
		{
			Slug:        "globex",
			Mode:        ModeLinkOnly,
			AllowedDays: []string{"2026-09-07"},
		},
	})
}

func TestAuthorize(t *testing.T) {
	g := testGate()

	if _, err := g.Authorize(Context{Slug: "nobody"}); !errors.Is(err, ErrUnknownProgram) {
		t.Errorf("unknown slug: got %v", err)
	}
	if _, err := g.Authorize(Context{Slug: "acme"}); !errors.Is(err, ErrCodeRequired) {
		t.Errorf("missing code: got %v", err)
	}
	if _, err := g.Authorize(Context{Slug: "acme", Code: "WRONG"}); !errors.Is(err, ErrCodeMismatch) {
		t.Errorf("wrong code: got %v", err)
	}

	// Codes and slugs compare case-insensitively.
	p, err := g.Authorize(Context{Slug: "ACME", Code: "secret1"})
	if err != nil {
		t.Fatalf("case-insensitive authorize: %v", err)
	}
	if p.Slug != "acme" {
		t.Errorf("resolved slug = %q", p.Slug)
	}

	// LINK_ONLY programs need no code.
	if _, err := g.Authorize(Context{Slug: "globex"}); err != nil {
		t.Errorf("link-only authorize: %v", err)
	}
}

func TestCorporateOnlyAndDayFlags(t *testing.T) {
	g := testGate()

	if !g.CorporateOnly("2026-09-07") {
		t.Error("claimed day should be corporate-only")
	}
	if g.CorporateOnly("2026-09-08") {
		t.Error("unclaimed day should be public")
	}

	flags := g.DayFlags([]string{"2026-09-07", "2026-09-08"})
	if !flags["2026-09-07"].CorporateOnly {
		t.Error("2026-09-07 flag should be corporate-only")
	}
	if !reflect.DeepEqual(flags["2026-09-07"].ProgramSlugs, []string{"acme", "globex"}) {
		t.Errorf("program slugs = %v", flags["2026-09-07"].ProgramSlugs)
	}
	if flags["2026-09-08"].CorporateOnly {
		t.Error("2026-09-08 flag should be public")
	}
}

func TestCheckDay(t *testing.T) {
	g := testGate()

	// A booking without a program must stay off corporate days.
	if err := g.CheckDay("", "2026-09-07"); !errors.Is(err, ErrDayNotAllowed) {
		t.Errorf("no slug on corporate day: got %v", err)
	}
	if err := g.CheckDay("", "2026-09-08"); err != nil {
		t.Errorf("no slug on public day: got %v", err)
	}

	// A corporate booking must stay on its own program's days.
	if err := g.CheckDay("acme", "2026-09-14"); err != nil {
		t.Errorf("slug on allowed day: got %v", err)
	}
	if err := g.CheckDay("globex", "2026-09-14"); !errors.Is(err, ErrDayNotAllowed) {
		t.Errorf("slug on another program's day: got %v", err)
	}
	if err := g.CheckDay("acme", "2026-09-08"); !errors.Is(err, ErrDayNotAllowed) {
		t.Errorf("slug on public day: got %v", err)
	}
	if err := g.CheckDay("gone", "2026-09-07"); !errors.Is(err, ErrUnknownProgram) {
		t.Errorf("dangling slug: got %v", err)
	}
}

func TestAllowLists_EmptyPermitsAll(t *testing.T) {
	p := Program{Slug: "acme", AllowedDays: []string{"2026-09-07"}}
	if !p.AllowsService("any") || !p.AllowsPractitioner("any") {
		t.Error("empty allow-lists must permit everything")
	}

	p.AllowedServiceIDs = []string{"svc-1"}
	if p.AllowsService("svc-2") {
		t.Error("non-listed service must be denied")
	}
	if !p.AllowsService("svc-1") {
		t.Error("listed service must be allowed")
	}
}
