// internal/rules/portable_test.go

package rules

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestDecodeAppliesDefaultsToAbsentFields(t *testing.T) {
	r, err := Decode([]byte(`{"font_name": "Arial"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if r.FontName != "Arial" {
		t.Fatalf("expected font Arial, got %q", r.FontName)
	}
	want := Default()
	want.FontName = "Arial"
	if !reflect.DeepEqual(r, want) {
		t.Fatalf("absent fields did not take defaults:\n got %+v\nwant %+v", r, want)
	}
}

func TestDecodeKeepsExplicitZeroValues(t *testing.T) {
	// An explicit false or 0 is a choice, not an omission.
	r, err := Decode([]byte(`{"page_numbering": false, "font_size_pt": 0}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if r.PageNumbering {
		t.Fatalf("explicit false was overwritten by the default")
	}
	if r.FontSizePt != 0 {
		t.Fatalf("explicit 0 was overwritten by the default, got %v", r.FontSizePt)
	}
}

func TestDecodeTreatsNullAsAbsent(t *testing.T) {
	r, err := Decode([]byte(`{"line_spacing": null}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if r.LineSpacing != DefaultLineSpacing {
		t.Fatalf("null did not take the default, got %v", r.LineSpacing)
	}
}

func TestDecodeToleratesUnknownFields(t *testing.T) {
	r, err := Decode([]byte(`{"font_name": "Calibri", "paper_size": "A4"}`))
	if err != nil {
		t.Fatalf("Decode rejected an unknown field: %v", err)
	}
	if r.FontName != "Calibri" {
		t.Fatalf("expected font Calibri, got %q", r.FontName)
	}
}

func TestUnmarshalGoesThroughDecode(t *testing.T) {
	// Embedded RuleSets, as in collection snapshots, get defaults too.
	var wrapper struct {
		Rules RuleSet `json:"rules"`
	}
	if err := json.Unmarshal([]byte(`{"rules": {"font_name": "Georgia"}}`), &wrapper); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if wrapper.Rules.FontSizePt != DefaultFontSizePt {
		t.Fatalf("nested decode skipped defaults, font size %v", wrapper.Rules.FontSizePt)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	original := Default()
	original.FontName = "Garamond"
	original.MarginBottomMM = 25
	original.RawMatches = map[string]any{
		"font":    "matched 'Garamond' on page 1",
		"margins": "matched '25mm' on page 3",
	}

	data, err := Export(original)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if data[len(data)-1] != '\n' {
		t.Fatalf("exported document missing trailing newline")
	}

	restored, err := Import(data)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !reflect.DeepEqual(restored, original) {
		t.Fatalf("round trip changed the rule set:\n got %+v\nwant %+v", restored, original)
	}
}

func TestImportMalformedDocument(t *testing.T) {
	_, err := Import([]byte(`{"font_name": `))
	if err == nil {
		t.Fatalf("expected an error for truncated JSON")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
}

func TestImportPartialDocument(t *testing.T) {
	// Documents from other export versions still load; missing fields
	// take their defaults.
	r, err := Import([]byte(`{"margin_left_mm": 35}`))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if r.MarginLeftMM != 35 {
		t.Fatalf("expected left margin 35, got %v", r.MarginLeftMM)
	}
	if r.FontName != DefaultFontName {
		t.Fatalf("missing font did not take the default, got %q", r.FontName)
	}
}
