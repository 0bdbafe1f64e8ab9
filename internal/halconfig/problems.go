package halconfig

import (
	"fmt"
	"sort"
	"strings"

	oerrors "github.com/opmodel/hal/internal/errors"
)

// Severity orders validation findings.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	default:
		return "NONE"
	}
}

// ParseSeverity parses a case-insensitive severity name.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE", "":
		return SeverityNone, nil
	case "WARNING", "WARN":
		return SeverityWarning, nil
	case "ERROR":
		return SeverityError, nil
	case "FATAL":
		return SeverityFatal, nil
	}
	return SeverityNone, fmt.Errorf("unknown severity %q (expected NONE, WARNING, ERROR or FATAL)", s)
}

// Problem is a single validation finding.
type Problem struct {
	Severity    Severity
	Message     string
	Remediation string
	Options     []string
	Location    string
}

func (p Problem) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", p.Severity, p.Message)
	if p.Location != "" {
		fmt.Fprintf(&b, " (%s)", p.Location)
	}
	if p.Remediation != "" {
		fmt.Fprintf(&b, "\n  ? %s", p.Remediation)
	}
	return b.String()
}

// ProblemSet is an ordered collection of problems.
type ProblemSet struct {
	problems []Problem
}

// Problems returns the problems in insertion order.
func (s *ProblemSet) Problems() []Problem {
	if s == nil {
		return nil
	}
	return s.problems
}

// Empty reports whether there are no problems.
func (s *ProblemSet) Empty() bool {
	return s == nil || len(s.problems) == 0
}

// MaxSeverity returns the highest severity present.
func (s *ProblemSet) MaxSeverity() Severity {
	max := SeverityNone
	for _, p := range s.Problems() {
		if p.Severity > max {
			max = p.Severity
		}
	}
	return max
}

// Add appends the problems of other.
func (s *ProblemSet) Add(other *ProblemSet) {
	s.problems = append(s.problems, other.Problems()...)
}

// Filter returns the problems at or above threshold.
func (s *ProblemSet) Filter(threshold Severity) []Problem {
	var out []Problem
	for _, p := range s.Problems() {
		if p.Severity >= threshold {
			out = append(out, p)
		}
	}
	return out
}

// Sorted returns the problems ordered by descending severity, then location.
func (s *ProblemSet) Sorted() []Problem {
	out := append([]Problem(nil), s.Problems()...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		return out[i].Location < out[j].Location
	})
	return out
}

// Err returns a *ValidationError when any problem reaches threshold. A
// threshold of SeverityNone never blocks.
func (s *ProblemSet) Err(threshold Severity) error {
	if threshold == SeverityNone || s.MaxSeverity() < threshold {
		return nil
	}
	return &ValidationError{Problems: s.Filter(threshold), Threshold: threshold}
}

// ValidationError reports blocking problems. It unwraps to ErrValidation.
type ValidationError struct {
	Problems  []Problem
	Threshold Severity
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "validation failed: " + e.Problems[0].Message
	}
	return fmt.Sprintf("validation failed: %d problems at or above %s", len(e.Problems), e.Threshold)
}

func (e *ValidationError) Unwrap() error {
	return oerrors.ErrValidation
}

// ProblemSetBuilder accumulates problems against a node.
type ProblemSetBuilder struct {
	set      ProblemSet
	location string
}

// NewProblemSetBuilder returns a builder whose problems are located at n.
func NewProblemSetBuilder(n Node) *ProblemSetBuilder {
	b := &ProblemSetBuilder{}
	if n != nil {
		b.location = QualifiedName(n)
	}
	return b
}

// SetLocation overrides the base location.
func (b *ProblemSetBuilder) SetLocation(location string) *ProblemSetBuilder {
	b.location = location
	return b
}

// AddProblem records a problem. An optional field name is appended to the
// location as ".field".
func (b *ProblemSetBuilder) AddProblem(sev Severity, message string, field ...string) *ProblemBuilder {
	loc := b.location
	if len(field) > 0 && field[0] != "" {
		if loc == "" {
			loc = field[0]
		} else {
			loc += "." + field[0]
		}
	}
	b.set.problems = append(b.set.problems, Problem{Severity: sev, Message: message, Location: loc})
	return &ProblemBuilder{set: &b.set, index: len(b.set.problems) - 1}
}

// Build returns the accumulated set.
func (b *ProblemSetBuilder) Build() *ProblemSet {
	out := &ProblemSet{problems: append([]Problem(nil), b.set.problems...)}
	return out
}

// ProblemBuilder refines the most recently added problem.
type ProblemBuilder struct {
	set   *ProblemSet
	index int
}

func (p *ProblemBuilder) SetRemediation(r string) *ProblemBuilder {
	p.set.problems[p.index].Remediation = r
	return p
}

func (p *ProblemBuilder) SetOptions(options ...string) *ProblemBuilder {
	p.set.problems[p.index].Options = options
	return p
}
