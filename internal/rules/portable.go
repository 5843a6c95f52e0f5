// internal/rules/portable.go
//
// Import/export of a RuleSet as a portable JSON document (rules.json).
// Decode is also the single place where declared defaults are applied:
// the analyze response, imported documents, and stored snapshots all pass
// through it, so a loaded RuleSet is never partially undefined.

package rules

import (
	"encoding/json"
	"fmt"
)

// ExportFilename is the conventional name for an exported rule document.
const ExportFilename = "rules.json"

// ParseError reports a malformed imported document. Import returns it
// without touching any session state.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rules: invalid JSON document: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// partial mirrors RuleSet with optional fields so Decode can tell an absent
// or null field (takes the default) from an explicit zero (kept as-is).
type partial struct {
	FontName             *string        `json:"font_name"`
	FontSizePt           *float64       `json:"font_size_pt"`
	LineSpacing          *float64       `json:"line_spacing"`
	MarginLeftMM         *float64       `json:"margin_left_mm"`
	MarginRightMM        *float64       `json:"margin_right_mm"`
	MarginTopMM          *float64       `json:"margin_top_mm"`
	MarginBottomMM       *float64       `json:"margin_bottom_mm"`
	PageNumbering        *bool          `json:"page_numbering"`
	PageNumberFontSizePt *float64       `json:"page_number_font_size_pt"`
	RawMatches           map[string]any `json:"raw_matches"`
}

// UnmarshalJSON fills absent or null fields with their declared defaults,
// so every decode path (analyze responses, stored snapshots, imported
// documents) yields a complete RuleSet. Unknown fields are tolerated and
// dropped.
func (r *RuleSet) UnmarshalJSON(data []byte) error {
	out, err := Decode(data)
	if err != nil {
		return err
	}
	*r = out
	return nil
}

// Decode parses a JSON RuleSet, filling absent or null fields with their
// declared defaults.
func Decode(data []byte) (RuleSet, error) {
	var p partial
	if err := json.Unmarshal(data, &p); err != nil {
		return RuleSet{}, err
	}
	r := Default()
	if p.FontName != nil {
		r.FontName = *p.FontName
	}
	if p.FontSizePt != nil {
		r.FontSizePt = *p.FontSizePt
	}
	if p.LineSpacing != nil {
		r.LineSpacing = *p.LineSpacing
	}
	if p.MarginLeftMM != nil {
		r.MarginLeftMM = *p.MarginLeftMM
	}
	if p.MarginRightMM != nil {
		r.MarginRightMM = *p.MarginRightMM
	}
	if p.MarginTopMM != nil {
		r.MarginTopMM = *p.MarginTopMM
	}
	if p.PageNumbering != nil {
		r.PageNumbering = *p.PageNumbering
	}
	if p.MarginBottomMM != nil {
		r.MarginBottomMM = *p.MarginBottomMM
	}
	if p.PageNumberFontSizePt != nil {
		r.PageNumberFontSizePt = *p.PageNumberFontSizePt
	}
	r.RawMatches = p.RawMatches
	return r, nil
}

// Export serializes the RuleSet as pretty-printed JSON. The output is
// byte-for-byte reproducible for a given value, raw_matches included.
func Export(r RuleSet) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Import parses exported JSON text back into a RuleSet. Malformed input
// yields a *ParseError; extra fields are tolerated and missing ones take
// their defaults, so documents from older or newer exports still load.
func Import(data []byte) (RuleSet, error) {
	r, err := Decode(data)
	if err != nil {
		return RuleSet{}, &ParseError{Err: err}
	}
	return r, nil
}
