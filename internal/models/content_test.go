package models

import (
	"testing"
	"time"
)

func TestContentName(t *testing.T) {
	tests := []struct {
		owner string
		ext   string
		want  string
	}{
		{owner: "Quarterly Report", ext: "pdf", want: "Quarterly Report.pdf"},
		{owner: "reports/2024/q1", ext: ".PDF", want: "reports_2024_q1.pdf"},
		{owner: `a\b:c*d?e"f<g>h|i`, ext: "odt", want: "a_b_c_d_e_f_g_h_i.odt"},
		{owner: "tab\there", ext: "txt", want: "tab_here.txt"},
		{owner: "   ", ext: "pdf", want: "content.pdf"},
		{owner: "noext", ext: "", want: "noext"},
		{owner: "Café", ext: "pdf", want: "Café.pdf"},
	}
	for _, tt := range tests {
		if got := ContentName(tt.owner, tt.ext); got != tt.want {
			t.Fatalf("ContentName(%q, %q) = %q, want %q", tt.owner, tt.ext, got, tt.want)
		}
	}
}

func TestParseContentKind(t *testing.T) {
	kind, err := ParseContentKind(" Rendition ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if kind != ContentKindRendition {
		t.Fatalf("expected rendition, got %q", kind)
	}
	if _, err := ParseContentKind(""); err == nil {
		t.Fatal("expected error for empty kind")
	}
	if _, err := ParseContentKind("thumbnail"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestExtensionOf(t *testing.T) {
	if got := ExtensionOf("Report.Final.ODT"); got != "odt" {
		t.Fatalf("expected odt, got %q", got)
	}
	if got := ExtensionOf("README"); got != "" {
		t.Fatalf("expected empty extension, got %q", got)
	}
	if got := NormalizeExtension("  .Docx "); got != "docx" {
		t.Fatalf("expected docx, got %q", got)
	}
}

func TestEntityIdentityAndStamp(t *testing.T) {
	a := NewDocument("a")
	b := NewDocument("a")
	if a.SameEntity(b.Entity) {
		t.Fatal("documents with different ids must differ")
	}
	renamed := a
	renamed.Name = "renamed"
	if !a.SameEntity(renamed.Entity) {
		t.Fatal("identity must ignore non-id fields")
	}
	if (Entity{}).SameEntity(Entity{}) {
		t.Fatal("unassigned entities must not be equal")
	}
	if !IsValidID(a.ID) {
		t.Fatalf("expected valid id, got %q", a.ID)
	}
	if IsValidID("gr-ab12") {
		t.Fatal("expected non-uuid id to be invalid")
	}

	first := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a.Stamp(first)
	a.Stamp(first.Add(time.Hour))
	if !a.CreatedAt.Equal(first) {
		t.Fatalf("created_at must be set once, got %v", a.CreatedAt)
	}
	if !a.UpdatedAt.Equal(first.Add(time.Hour)) {
		t.Fatalf("updated_at must track last stamp, got %v", a.UpdatedAt)
	}
}
