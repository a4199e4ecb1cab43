package convert

import "errors"

// Policy controls how a converter treats content the target provider cannot
// represent.
type Policy int

const (
	// Strict refuses to produce output when any error was recorded.
	Strict Policy = iota
	// ShadowAllowed produces best-effort output alongside recorded errors.
	ShadowAllowed
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case ShadowAllowed:
		return "shadow_allowed"
	}
	return "unknown"
}

// Action records one transformation applied to a part during conversion.
type Action struct {
	Kind ActionKind
	// OriginalType and SimplifiedTo describe a Shadow action.
	OriginalType string
	SimplifiedTo string
	// Reason describes an Omit action.
	Reason string
}

// ActionKind classifies a planned transformation.
type ActionKind int

const (
	// PassThrough marks a part representable as-is.
	PassThrough ActionKind = iota
	// Shadow marks a part simplified into a lossier form.
	Shadow
	// Omit marks a part dropped from the output.
	Omit
)

// Plan accumulates the outcome of converting one request for one provider:
// the actions taken per part, every error recorded, and any warnings. It is
// a per-call, single-owner value with no concurrency contract.
type Plan struct {
	Provider string
	Policy   Policy

	actions  []Action
	errs     []error
	warnings []string
}

// NewPlan starts an empty plan for a provider under a policy.
func NewPlan(provider string, policy Policy) *Plan {
	return &Plan{Provider: provider, Policy: policy}
}

// AddError records a conversion error.
func (p *Plan) AddError(err error) {
	if err != nil {
		p.errs = append(p.errs, err)
	}
}

// AddWarning records a non-fatal note about potential loss.
func (p *Plan) AddWarning(w string) {
	p.warnings = append(p.warnings, w)
}

// AddAction records a per-part transformation.
func (p *Plan) AddAction(a Action) {
	p.actions = append(p.actions, a)
}

// HasErrors reports whether any error was recorded.
func (p *Plan) HasErrors() bool {
	return len(p.errs) > 0
}

// IsLossless reports whether conversion recorded no errors and omitted no
// parts.
func (p *Plan) IsLossless() bool {
	if len(p.errs) > 0 {
		return false
	}
	for _, a := range p.actions {
		if a.Kind == Omit {
			return false
		}
	}
	return true
}

// Errors returns the recorded errors in order.
func (p *Plan) Errors() []error {
	return p.errs
}

// Warnings returns the recorded warnings in order.
func (p *Plan) Warnings() []string {
	return p.warnings
}

// Actions returns the recorded per-part actions in order.
func (p *Plan) Actions() []Action {
	return p.actions
}

// Err joins the recorded errors into one, or nil when the plan is clean.
func (p *Plan) Err() error {
	return errors.Join(p.errs...)
}
