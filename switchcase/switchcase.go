// Package switchcase provides a small switch-case matcher with a scoped
// registration phase: build a Switch around a subject, register cases
// mapping key sets to results, then resolve once to a frozen Output.
//
// Case bodies passed to Case are ordinary Go arguments, so they are
// evaluated eagerly at registration regardless of which case ends up
// matching; the last body value becomes the case result. Use CaseFunc
// when a body must only run on a confirmed match.
package switchcase

import (
	"reflect"
)

// defaultKey is the type of the Default sentinel. A dedicated type keeps
// the sentinel distinct from any user-supplied string key.
type defaultKey string

// Default is the reserved key selecting the fallback case.
const Default defaultKey = "default"

// Keys builds a key set for Case.
func Keys(vs ...any) []any { return vs }

// Option configures a Switch at construction.
type Option func(*Switch)

// Strict makes resolution fail with a *NotResolvedError when no case
// matches and no default was registered. Without it, an unmatched
// subject resolves to a null-like Output (None reports true).
func Strict() Option {
	return func(s *Switch) { s.strict = true }
}

type state uint8

const (
	stateOpen state = iota
	stateResolved
)

// caseEntry is one registered case in registration order.
type caseEntry struct {
	keys   []any
	result any
	fn     func() (any, error)
}

// Switch accumulates cases for a subject and resolves the first match.
// A Switch is append-only while open and read-only once resolved; it is
// not safe for concurrent use.
type Switch struct {
	subject    any
	strict     bool
	entries    []caseEntry
	seen       map[any]struct{}
	hasDefault bool
	defaultRes caseEntry
	st         state
	out        Output
	resolveErr error
}

// New creates an open Switch for the given subject.
func New(subject any, opts ...Option) *Switch {
	s := &Switch{subject: subject, seen: map[any]struct{}{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subject returns the value being matched.
func (s *Switch) Subject() any { return s.subject }

// Case registers one case. The body values are already evaluated by the
// time Case runs; earlier values count for their side effects only and
// the last one is the case result. An empty body yields a nil result.
// Keys must be non-empty, comparable and not previously registered; the
// Default sentinel among the keys routes the body to the fallback slot.
func (s *Switch) Case(keys []any, body ...any) error {
	var result any
	if len(body) > 0 {
		result = body[len(body)-1]
	}
	return s.register(keys, caseEntry{result: result})
}

// CaseFunc registers a case whose body runs only if the case is
// selected, at resolution time. fn errors propagate from Resolve.
func (s *Switch) CaseFunc(keys []any, fn func() (any, error)) error {
	return s.register(keys, caseEntry{fn: fn})
}

// Default registers the fallback case. Sugar for Case with the Default
// sentinel as the sole key.
func (s *Switch) Default(body ...any) error {
	return s.Case(Keys(Default), body...)
}

func (s *Switch) register(keys []any, entry caseEntry) error {
	if s.st != stateOpen {
		return ErrResolved
	}
	if len(keys) == 0 {
		return ErrNoCaseKeys
	}
	fresh := make(map[any]struct{}, len(keys))
	for _, k := range keys {
		if !comparableKey(k) {
			return &KeyError{Key: k, err: ErrKeyNotComparable}
		}
		if _, dup := s.seen[k]; dup {
			return &DuplicateCaseKeyError{Key: k}
		}
		if _, dup := fresh[k]; dup {
			return &DuplicateCaseKeyError{Key: k}
		}
		fresh[k] = struct{}{}
	}
	var plain []any
	for _, k := range keys {
		s.seen[k] = struct{}{}
		if _, isDefault := k.(defaultKey); isDefault {
			s.hasDefault = true
			s.defaultRes = caseEntry{result: entry.result, fn: entry.fn}
			continue
		}
		plain = append(plain, k)
	}
	if len(plain) > 0 {
		s.entries = append(s.entries, caseEntry{keys: plain, result: entry.result, fn: entry.fn})
	}
	return nil
}

// comparableKey reports whether == on the key can never panic.
func comparableKey(k any) bool {
	if k == nil {
		return true
	}
	return reflect.TypeOf(k).Comparable()
}

// Resolve selects the first case whose key set contains the subject,
// falling back to the default case when present. Without a match or
// default, a strict Switch fails with a *NotResolvedError carrying the
// subject; otherwise the Output is null-like. Resolve freezes the
// Switch: the case table is dropped, later registrations fail with
// ErrResolved, and calling Resolve again returns the same Output.
func (s *Switch) Resolve() (Output, error) {
	if s.st == stateResolved {
		return s.out, s.resolveErr
	}
	entry, found := s.match()
	s.freeze()
	switch {
	case !found && s.strict:
		s.resolveErr = &NotResolvedError{Subject: s.subject}
	case !found:
		// defaults-to-none: the null-like output set by freeze stands.
	case entry.fn != nil:
		v, err := entry.fn()
		if err != nil {
			s.resolveErr = err
		} else {
			s.out = Output{value: v}
		}
	default:
		s.out = Output{value: entry.result}
	}
	return s.out, s.resolveErr
}

func (s *Switch) match() (caseEntry, bool) {
	for _, e := range s.entries {
		for _, k := range e.keys {
			if k == s.subject {
				return e, true
			}
		}
	}
	if s.hasDefault {
		return s.defaultRes, true
	}
	return caseEntry{}, false
}

// freeze transitions to the resolved state, leaving only the output.
func (s *Switch) freeze() {
	s.st = stateResolved
	s.entries = nil
	s.seen = nil
	s.defaultRes = caseEntry{}
	s.out = Output{none: true}
}

// Output returns the resolved output. The second return is false while
// the Switch is still open.
func (s *Switch) Output() (Output, bool) {
	if s.st != stateResolved {
		return Output{}, false
	}
	return s.out, true
}

// Output is the read-only holder of a resolved result.
type Output struct {
	value any
	none  bool
}

// Value returns the resolved value; nil when None reports true.
func (o Output) Value() any { return o.value }

// None reports whether resolution fell through with no match and no
// default on a non-strict Switch.
func (o Output) None() bool { return o.none }
