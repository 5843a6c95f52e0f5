// internal/rules/rules.go
//
// The RuleSet model: the editable document-formatting configuration that the
// whole workflow revolves around. A RuleSet is always complete — every field
// carries a declared default that is applied once when the value is decoded
// (from an analyze response, an imported document, or a stored snapshot),
// never lazily at read sites.

package rules

import (
	"fmt"
)

// Declared defaults for every RuleSet field. These match what the template
// service assumes when a requirements document is silent about a rule.
const (
	DefaultFontName             = "Times New Roman"
	DefaultFontSizePt           = 14
	DefaultLineSpacing          = 1.5
	DefaultMarginLeftMM         = 30
	DefaultMarginRightMM        = 15
	DefaultMarginTopMM          = 20
	DefaultMarginBottomMM       = 20
	DefaultPageNumbering        = true
	DefaultPageNumberFontSizePt = 12
)

// RuleSet holds the formatting rules under edit. RawMatches is diagnostic
// output of the analysis step; it is carried through unchanged and never
// edited by the user.
type RuleSet struct {
	FontName             string         `json:"font_name"`
	FontSizePt           float64        `json:"font_size_pt"`
	LineSpacing          float64        `json:"line_spacing"`
	MarginLeftMM         float64        `json:"margin_left_mm"`
	MarginRightMM        float64        `json:"margin_right_mm"`
	MarginTopMM          float64        `json:"margin_top_mm"`
	MarginBottomMM       float64        `json:"margin_bottom_mm"`
	PageNumbering        bool           `json:"page_numbering"`
	PageNumberFontSizePt float64        `json:"page_number_font_size_pt"`
	RawMatches           map[string]any `json:"raw_matches,omitempty"`
}

// Default returns a RuleSet with every field at its declared default.
func Default() RuleSet {
	return RuleSet{
		FontName:             DefaultFontName,
		FontSizePt:           DefaultFontSizePt,
		LineSpacing:          DefaultLineSpacing,
		MarginLeftMM:         DefaultMarginLeftMM,
		MarginRightMM:        DefaultMarginRightMM,
		MarginTopMM:          DefaultMarginTopMM,
		MarginBottomMM:       DefaultMarginBottomMM,
		PageNumbering:        DefaultPageNumbering,
		PageNumberFontSizePt: DefaultPageNumberFontSizePt,
	}
}

// Kind classifies a field for editing purposes.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindBool
)

// Field describes one editable RuleSet field.
type Field struct {
	Key   string
	Label string
	Kind  Kind
}

// Fields enumerates the editable fields in display order. RawMatches is
// deliberately absent: it is read-only diagnostic data.
func Fields() []Field {
	return []Field{
		{Key: "font_name", Label: "Font", Kind: KindText},
		{Key: "font_size_pt", Label: "Font size (pt)", Kind: KindNumber},
		{Key: "line_spacing", Label: "Line spacing", Kind: KindNumber},
		{Key: "margin_left_mm", Label: "Left margin (mm)", Kind: KindNumber},
		{Key: "margin_right_mm", Label: "Right margin (mm)", Kind: KindNumber},
		{Key: "margin_top_mm", Label: "Top margin (mm)", Kind: KindNumber},
		{Key: "margin_bottom_mm", Label: "Bottom margin (mm)", Kind: KindNumber},
		{Key: "page_numbering", Label: "Page numbering", Kind: KindBool},
		{Key: "page_number_font_size_pt", Label: "Page number font size (pt)", Kind: KindNumber},
	}
}

// Get returns the current value of the named field.
func (r RuleSet) Get(key string) (any, error) {
	switch key {
	case "font_name":
		return r.FontName, nil
	case "font_size_pt":
		return r.FontSizePt, nil
	case "line_spacing":
		return r.LineSpacing, nil
	case "margin_left_mm":
		return r.MarginLeftMM, nil
	case "margin_right_mm":
		return r.MarginRightMM, nil
	case "margin_top_mm":
		return r.MarginTopMM, nil
	case "margin_bottom_mm":
		return r.MarginBottomMM, nil
	case "page_numbering":
		return r.PageNumbering, nil
	case "page_number_font_size_pt":
		return r.PageNumberFontSizePt, nil
	}
	return nil, fmt.Errorf("rules: unknown field %q", key)
}

// Set returns a copy of the RuleSet with exactly one field replaced. All
// other fields keep their prior values. Values are not validated here —
// a negative margin is accepted and left for the service to reject.
func (r RuleSet) Set(key string, value any) (RuleSet, error) {
	switch key {
	case "font_name":
		s, ok := value.(string)
		if !ok {
			return r, fmt.Errorf("rules: field %q expects a string", key)
		}
		r.FontName = s
	case "font_size_pt":
		n, ok := asNumber(value)
		if !ok {
			return r, fmt.Errorf("rules: field %q expects a number", key)
		}
		r.FontSizePt = n
	case "line_spacing":
		n, ok := asNumber(value)
		if !ok {
			return r, fmt.Errorf("rules: field %q expects a number", key)
		}
		r.LineSpacing = n
	case "margin_left_mm":
		n, ok := asNumber(value)
		if !ok {
			return r, fmt.Errorf("rules: field %q expects a number", key)
		}
		r.MarginLeftMM = n
	case "margin_right_mm":
		n, ok := asNumber(value)
		if !ok {
			return r, fmt.Errorf("rules: field %q expects a number", key)
		}
		r.MarginRightMM = n
	case "margin_top_mm":
		n, ok := asNumber(value)
		if !ok {
			return r, fmt.Errorf("rules: field %q expects a number", key)
		}
		r.MarginTopMM = n
	case "margin_bottom_mm":
		n, ok := asNumber(value)
		if !ok {
			return r, fmt.Errorf("rules: field %q expects a number", key)
		}
		r.MarginBottomMM = n
	case "page_numbering":
		b, ok := value.(bool)
		if !ok {
			return r, fmt.Errorf("rules: field %q expects a bool", key)
		}
		r.PageNumbering = b
	case "page_number_font_size_pt":
		n, ok := asNumber(value)
		if !ok {
			return r, fmt.Errorf("rules: field %q expects a number", key)
		}
		r.PageNumberFontSizePt = n
	default:
		return r, fmt.Errorf("rules: unknown field %q", key)
	}
	return r, nil
}

func asNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
