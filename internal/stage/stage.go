// Package stage is the single source of the launchpad stage table. Every
// place that renders, filters or advances a stage goes through it.
package stage

import (
	"fmt"
	"strconv"
	"strings"

	"launchpad/internal/apperr"
)

const (
	First = 1
	Last  = 8
)

var names = [Last]string{
	"Organizational account created",
	"Customer Needs Analysis Call",
	"Scoping & Product Phasing Plan",
	"Pricing Model & Partnership Agreement",
	"SLA signing",
	"Integration and deployment",
	"UAT",
	"Deployed",
}

// Stage is one entry of the fixed table.
type Stage struct {
	Number int    `json:"step_number"`
	Name   string `json:"step_name"`
}

// Valid reports whether n is a stage number.
func Valid(n int) bool { return n >= First && n <= Last }

// Name returns the stage name for n, or "" when n is out of range.
func Name(n int) string {
	if !Valid(n) {
		return ""
	}
	return names[n-1]
}

// IsTerminal reports whether n is the last stage.
func IsTerminal(n int) bool { return n == Last }

// Next returns the stage that follows n. Advancing past the last stage or
// from an unknown stage is an invalid transition.
func Next(n int) (int, error) {
	if !Valid(n) {
		return 0, fmt.Errorf("%w: unknown stage %d", apperr.ErrInvalidTransition, n)
	}
	if IsTerminal(n) {
		return 0, fmt.Errorf("%w: stage %d (%s) is terminal", apperr.ErrInvalidTransition, n, Name(n))
	}
	return n + 1, nil
}

// All returns the table in order.
func All() []Stage {
	out := make([]Stage, 0, Last)
	for i, name := range names {
		out = append(out, Stage{Number: i + 1, Name: name})
	}
	return out
}

// Parse accepts a stage number ("3") or a stage name, case-insensitive.
// An empty string parses to 0 (no stage).
func Parse(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if !Valid(n) {
			return 0, apperr.Invalid("stage", fmt.Sprintf("must be between %d and %d", First, Last))
		}
		return n, nil
	}
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return i + 1, nil
		}
	}
	return 0, apperr.Invalid("stage", fmt.Sprintf("unknown stage %q", s))
}

type State string

const (
	Completed State = "completed"
	Current   State = "current"
	Pending   State = "pending"
)

// Entry is a timeline row.
type Entry struct {
	Stage
	State State `json:"state"`
}

// Timeline lays the table out relative to current. Stages before current are
// completed, current is highlighted and the rest are pending.
func Timeline(current int) []Entry {
	out := make([]Entry, 0, Last)
	for _, s := range All() {
		e := Entry{Stage: s, State: Pending}
		switch {
		case s.Number < current:
			e.State = Completed
		case s.Number == current:
			e.State = Current
		}
		out = append(out, e)
	}
	return out
}
