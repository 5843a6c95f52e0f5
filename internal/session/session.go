// internal/session/session.go
//
// The workflow session: an immutable value with pure transition functions.
// The TUI's update loop feeds it events and swaps in the returned value, so
// every transition is testable without a terminal harness.
//
// Overlap control is a single busy guard: while an analyze, generate, or
// profile operation is in flight, further begin-transitions are rejected,
// not queued. There is no request cancellation; instead each begin mints a
// token for its operation kind and completions carrying a stale token are
// discarded wholesale, so a superseded response can never mutate the
// current session.

package session

import (
	"fmt"
	"strings"

	"github.com/draftforge/stencil/internal/rules"
)

// Phase is the current workflow stage, derived from session data.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFileSelected
	PhaseAnalyzing
	PhaseRulesReady
	PhaseGenerating
	PhaseTemplateReady
)

// FriendlyName returns a human-readable phase label.
func (p Phase) FriendlyName() string {
	switch p {
	case PhaseIdle:
		return "Waiting for a document"
	case PhaseFileSelected:
		return "Document selected"
	case PhaseAnalyzing:
		return "Analyzing"
	case PhaseRulesReady:
		return "Rules ready"
	case PhaseGenerating:
		return "Generating"
	case PhaseTemplateReady:
		return "Template ready"
	}
	return "Unknown"
}

func (p Phase) String() string { return p.FriendlyName() }

// opKind identifies which operation holds the busy guard.
type opKind int

const (
	opNone opKind = iota
	opAnalyze
	opGenerate
	opProfile
)

// Session is the transient workflow state. The zero value is a valid idle
// session. All transition methods take and return Session by value; callers
// replace their copy with the result.
type Session struct {
	filePath   string
	ruleSet    rules.RuleSet
	hasRules   bool
	templateID string
	errMsg     string

	op            opKind
	analyzeToken  uint64
	generateToken uint64
	profileToken  uint64
}

// New returns an idle session.
func New() Session {
	return Session{}
}

// FilePath returns the currently selected document path, or "".
func (s Session) FilePath() string { return s.filePath }

// Rules returns the current rule set and whether one is loaded.
func (s Session) Rules() (rules.RuleSet, bool) { return s.ruleSet, s.hasRules }

// TemplateID returns the generated artifact handle, or "".
func (s Session) TemplateID() string { return s.templateID }

// Busy reports whether a guarded operation is in flight.
func (s Session) Busy() bool { return s.op != opNone }

// Err returns the current error message, or "".
func (s Session) Err() string { return s.errMsg }

// Phase derives the workflow stage. A profile save or delete holds the busy
// guard without changing the stage.
func (s Session) Phase() Phase {
	switch s.op {
	case opAnalyze:
		return PhaseAnalyzing
	case opGenerate:
		return PhaseGenerating
	}
	switch {
	case s.hasRules && s.templateID != "":
		return PhaseTemplateReady
	case s.hasRules:
		return PhaseRulesReady
	case s.filePath != "":
		return PhaseFileSelected
	}
	return PhaseIdle
}

// CanAnalyze reports whether BeginAnalyze would be accepted.
func (s Session) CanAnalyze() bool { return s.filePath != "" && s.op == opNone }

// CanGenerate reports whether BeginGenerate would be accepted.
func (s Session) CanGenerate() bool { return s.hasRules && s.op == opNone }

// CanDownload reports whether a generated artifact is available.
func (s Session) CanDownload() bool { return s.templateID != "" }

// CanSaveProfile reports whether a profile operation would be accepted.
func (s Session) CanSaveProfile() bool { return s.hasRules && s.op == opNone }

// SelectFile records a newly chosen document, clearing any previously
// generated template and error message. An empty path deselects.
func (s Session) SelectFile(path string) Session {
	s.filePath = strings.TrimSpace(path)
	s.templateID = ""
	s.errMsg = ""
	return s
}

// BeginAnalyze starts an analysis. Rejected (ok=false, session unchanged)
// when no file is selected or another guarded operation is in flight. The
// returned token must accompany the matching completion.
func (s Session) BeginAnalyze() (next Session, token uint64, ok bool) {
	if !s.CanAnalyze() {
		return s, 0, false
	}
	s.op = opAnalyze
	s.errMsg = ""
	s.analyzeToken++
	return s, s.analyzeToken, true
}

// CompleteAnalyze applies a successful analyze response: the rule set is
// replaced wholesale, the template handle cleared, and the busy guard
// released. A stale token leaves the session untouched and reports
// applied=false so the caller can drop the superseded response.
func (s Session) CompleteAnalyze(token uint64, r rules.RuleSet) (next Session, applied bool) {
	if token != s.analyzeToken || s.op != opAnalyze {
		return s, false
	}
	s.op = opNone
	s.ruleSet = r
	s.hasRules = true
	s.templateID = ""
	s.errMsg = ""
	return s, true
}

// FailAnalyze records an analyze failure: the busy guard is released, the
// error message replaces any prior one, and everything else keeps its prior
// state. A stale token leaves the session untouched.
func (s Session) FailAnalyze(token uint64, msg string) (next Session, applied bool) {
	if token != s.analyzeToken || s.op != opAnalyze {
		return s, false
	}
	s.op = opNone
	s.errMsg = msg
	return s, true
}

// BeginGenerate starts a template generation. Rejected when no rule set is
// loaded or another guarded operation is in flight.
func (s Session) BeginGenerate() (next Session, token uint64, ok bool) {
	if !s.CanGenerate() {
		return s, 0, false
	}
	s.op = opGenerate
	s.errMsg = ""
	s.generateToken++
	return s, s.generateToken, true
}

// CompleteGenerate stores the generated artifact handle and releases the
// busy guard. A stale token leaves the session untouched.
func (s Session) CompleteGenerate(token uint64, templateID string) (next Session, applied bool) {
	if token != s.generateToken || s.op != opGenerate {
		return s, false
	}
	s.op = opNone
	s.templateID = templateID
	s.errMsg = ""
	return s, true
}

// FailGenerate records a generate failure and releases the busy guard.
func (s Session) FailGenerate(token uint64, msg string) (next Session, applied bool) {
	if token != s.generateToken || s.op != opGenerate {
		return s, false
	}
	s.op = opNone
	s.errMsg = msg
	return s, true
}

// BeginProfileOp claims the busy guard for a profile save or delete. The
// workflow stage is unaffected; only overlap with analyze/generate and
// other profile operations is prevented.
func (s Session) BeginProfileOp() (next Session, token uint64, ok bool) {
	if s.op != opNone {
		return s, 0, false
	}
	s.op = opProfile
	s.errMsg = ""
	s.profileToken++
	return s, s.profileToken, true
}

// CompleteProfileOp releases the busy guard after a profile operation.
func (s Session) CompleteProfileOp(token uint64) (next Session, applied bool) {
	if token != s.profileToken || s.op != opProfile {
		return s, false
	}
	s.op = opNone
	return s, true
}

// FailProfileOp releases the busy guard and records the failure message.
func (s Session) FailProfileOp(token uint64, msg string) (next Session, applied bool) {
	if token != s.profileToken || s.op != opProfile {
		return s, false
	}
	s.op = opNone
	s.errMsg = msg
	return s, true
}

// ApplyRules loads a snapshot (profile, history entry, template record, or
// imported document) as the current rule set. The template handle and error
// message are always cleared; the busy guard is untouched.
func (s Session) ApplyRules(r rules.RuleSet) Session {
	s.ruleSet = r
	s.hasRules = true
	s.templateID = ""
	s.errMsg = ""
	return s
}

// EditField replaces exactly one rule field. A previously generated
// template no longer reflects the edited rules, so the handle is
// invalidated rather than offered as current.
func (s Session) EditField(key string, value any) (Session, error) {
	if !s.hasRules {
		return s, fmt.Errorf("session: no rule set loaded")
	}
	updated, err := s.ruleSet.Set(key, value)
	if err != nil {
		return s, err
	}
	s.ruleSet = updated
	s.templateID = ""
	return s, nil
}

// WithError replaces the error message: only one is shown at a time.
// Used for failures that happen outside a guarded begin/complete pair,
// such as a rejected import or a download fetch error.
func (s Session) WithError(msg string) Session {
	s.errMsg = msg
	return s
}

// ClearError drops the current error message.
func (s Session) ClearError() Session {
	s.errMsg = ""
	return s
}
