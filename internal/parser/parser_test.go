package parser

import (
	"errors"
	"testing"

	"github.com/rongzh/wiz2joplin/internal/apperrors"
)

func TestToJoplinID(t *testing.T) {
	t.Parallel()

	got := ToJoplinID("8337764c-f89d-4267-bdf2-2e26ff156098")
	want := "8337764cf89d4267bdf22e26ff156098"
	if got != want {
		t.Errorf("ToJoplinID() = %q, want %q", got, want)
	}
}

func TestToWizID(t *testing.T) {
	t.Parallel()

	got := ToWizID("8337764cf89d4267bdf22e26ff156098")
	want := "8337764c-f89d-4267-bdf2-2e26ff156098"
	if got != want {
		t.Errorf("ToWizID() = %q, want %q", got, want)
	}
}

func TestIDTransform_RoundTrip(t *testing.T) {
	t.Parallel()

	guids := []string{
		"8337764c-f89d-4267-bdf2-2e26ff156098",
		"52935f17-c1bb-45b7-b443-b7ba1b6f854e",
		"00000000-0000-0000-0000-000000000000",
	}
	for _, guid := range guids {
		if got := ToWizID(ToJoplinID(guid)); got != guid {
			t.Errorf("ToWizID(ToJoplinID(%q)) = %q", guid, got)
		}
	}

	ids := []string{
		"8337764cf89d4267bdf22e26ff156098",
		"c6204f26f9664626ad411b5fbdb6829e",
	}
	for _, id := range ids {
		if got := ToJoplinID(ToWizID(id)); got != id {
			t.Errorf("ToJoplinID(ToWizID(%q)) = %q", id, got)
		}
	}
}

func TestValidateGUID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		guid    string
		wantErr bool
	}{
		{"valid", "8337764c-f89d-4267-bdf2-2e26ff156098", false},
		{"too short", "8337764c-f89d", true},
		{"no hyphens", "8337764cf89d4267bdf22e26ff156098", true},
		{"uppercase", "8337764C-F89D-4267-BDF2-2E26FF156098", true},
		{"non hex", "8337764z-f89d-4267-bdf2-2e26ff156098", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateGUID(tt.guid)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGUID(%q) error = %v, wantErr %v", tt.guid, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperrors.ErrInvalidGUID) {
				t.Errorf("ValidateGUID(%q) error should wrap ErrInvalidGUID", tt.guid)
			}
		})
	}
}

func TestValidateJoplinID(t *testing.T) {
	t.Parallel()

	if err := ValidateJoplinID("8337764cf89d4267bdf22e26ff156098"); err != nil {
		t.Errorf("ValidateJoplinID() unexpected error: %v", err)
	}
	if err := ValidateJoplinID("8337764c-f89d-4267-bdf2-2e26ff156098"); err == nil {
		t.Error("ValidateJoplinID() should reject hyphenated ids")
	}
	if err := ValidateJoplinID("short"); err == nil {
		t.Error("ValidateJoplinID() should reject short ids")
	}
}

func TestParseBody_AttachmentLinks(t *testing.T) {
	t.Parallel()

	body := `<html><body>` +
		`<a href="wiz://open_attachment?guid=52935f17-c1bb-45b7-b443-b7ba1b6f854e">report.pdf</a>` +
		` and an early-format one ` +
		`<a href="wiz:open_attachment?guid=8337764c-f89d-4267-bdf2-2e26ff156098">old.zip</a>` +
		`</body></html>`

	links, images := ParseBody(body)
	if len(images) != 0 {
		t.Fatalf("ParseBody() images = %d, want 0", len(images))
	}
	if len(links) != 2 {
		t.Fatalf("ParseBody() links = %d, want 2", len(links))
	}

	if links[0].GUID != "52935f17-c1bb-45b7-b443-b7ba1b6f854e" {
		t.Errorf("links[0].GUID = %q", links[0].GUID)
	}
	if links[0].Title != "report.pdf" {
		t.Errorf("links[0].Title = %q", links[0].Title)
	}
	if links[0].Kind != LinkKindAttachment {
		t.Errorf("links[0].Kind = %q", links[0].Kind)
	}
	if links[1].GUID != "8337764c-f89d-4267-bdf2-2e26ff156098" {
		t.Errorf("links[1].GUID = %q", links[1].GUID)
	}
}

func TestParseBody_DocumentLinks(t *testing.T) {
	t.Parallel()

	body := `<a href="wiz://open_document?guid=c6204f26-f966-4626-ad41-1b5fbdb6829e` +
		`&amp;kbguid=&amp;private_kbguid=69899a48-dc52-11e0-892c-00237def97cc">other note</a>`

	links, _ := ParseBody(body)
	if len(links) != 1 {
		t.Fatalf("ParseBody() links = %d, want 1", len(links))
	}
	if links[0].Kind != LinkKindDocument {
		t.Errorf("Kind = %q, want %q", links[0].Kind, LinkKindDocument)
	}
	if links[0].GUID != "c6204f26-f966-4626-ad41-1b5fbdb6829e" {
		t.Errorf("GUID = %q", links[0].GUID)
	}
	if links[0].Title != "other note" {
		t.Errorf("Title = %q", links[0].Title)
	}
	if links[0].OuterHTML != body {
		t.Errorf("OuterHTML should be the exact matched substring")
	}
}

func TestParseBody_Images(t *testing.T) {
	t.Parallel()

	body := `<p><img border="0" src="index_files/chart.png" alt="chart"></p>` +
		`![diagram](index_files/diagram.jpg)` +
		`![skip](index_files/&nbsp;&quot;bad&quot;.png)`

	_, images := ParseBody(body)
	if len(images) != 2 {
		t.Fatalf("ParseBody() images = %d, want 2", len(images))
	}
	if images[0].Src != "index_files/chart.png" {
		t.Errorf("images[0].Src = %q", images[0].Src)
	}
	if images[1].Src != "index_files/diagram.jpg" {
		t.Errorf("images[1].Src = %q", images[1].Src)
	}
}

func TestParseBody_Empty(t *testing.T) {
	t.Parallel()

	links, images := ParseBody("<html><body><p>plain text only</p></body></html>")
	if len(links) != 0 || len(images) != 0 {
		t.Errorf("ParseBody() = %d links, %d images, want 0, 0", len(links), len(images))
	}
}
