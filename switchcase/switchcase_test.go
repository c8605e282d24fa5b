package switchcase

import (
	"errors"
	"strings"
	"testing"
)

func TestResolve_MatchingKeyWins(t *testing.T) {
	s := New(3)
	if err := s.Case(Keys(0, 1, 2), "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Case(Keys(3), "B"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := s.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Value(); got != "B" {
		t.Fatalf("expected B, got %v", got)
	}
	if out.None() {
		t.Fatalf("expected a concrete output")
	}
}

func TestResolve_DefaultWhenNoKeyMatches(t *testing.T) {
	s := New(5)
	if err := s.Case(Keys(0, 1, 2), "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Case(Keys(3), "B"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Default("C"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := s.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Value(); got != "C" {
		t.Fatalf("expected C, got %v", got)
	}
}

func TestResolve_StrictUnmatchedCarriesSubject(t *testing.T) {
	s := New("pineapple", Strict())
	if err := s.Case(Keys("apple"), "X"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Case(Keys("pine"), "Y"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := s.Resolve()
	var nre *NotResolvedError
	if !errors.As(err, &nre) {
		t.Fatalf("expected NotResolvedError, got %v", err)
	}
	if nre.Subject != "pineapple" {
		t.Fatalf("expected subject pineapple, got %v", nre.Subject)
	}
	if !strings.Contains(err.Error(), "pineapple") {
		t.Fatalf("error should reference the subject: %v", err)
	}
}

func TestResolve_UnmatchedDefaultsToNone(t *testing.T) {
	s := New(42)
	if err := s.Case(Keys(1), "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := s.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.None() {
		t.Fatalf("expected null-like output")
	}
	if out.Value() != nil {
		t.Fatalf("expected nil value, got %v", out.Value())
	}
}

func TestCase_DuplicateKey(t *testing.T) {
	s := New(1)
	if err := s.Case(Keys(1, 2), "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Case(Keys(2, 3), "B")
	var dup *DuplicateCaseKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateCaseKeyError, got %v", err)
	}
	if dup.Key != 2 {
		t.Fatalf("expected duplicate key 2, got %v", dup.Key)
	}
}

func TestCase_DuplicateKeyWithinOneCase(t *testing.T) {
	s := New(1)
	err := s.Case(Keys(7, 7), "A")
	var dup *DuplicateCaseKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateCaseKeyError, got %v", err)
	}
}

func TestCase_DuplicateDefault(t *testing.T) {
	s := New(1)
	if err := s.Default("C"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Default("D")
	var dup *DuplicateCaseKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateCaseKeyError, got %v", err)
	}
	if dup.Key != any(Default) {
		t.Fatalf("expected default key, got %v", dup.Key)
	}
}

func TestCase_NoKeys(t *testing.T) {
	s := New(1)
	if err := s.Case(Keys(), "A"); !errors.Is(err, ErrNoCaseKeys) {
		t.Fatalf("expected ErrNoCaseKeys, got %v", err)
	}
}

func TestCase_UncomparableKey(t *testing.T) {
	s := New(1)
	err := s.Case(Keys([]int{1, 2}), "A")
	if !errors.Is(err, ErrKeyNotComparable) {
		t.Fatalf("expected ErrKeyNotComparable, got %v", err)
	}
	var ke *KeyError
	if !errors.As(err, &ke) {
		t.Fatalf("expected KeyError, got %v", err)
	}
}

func TestCase_DefaultSentinelDistinctFromStringKey(t *testing.T) {
	s := New("default")
	if err := s.Case(Keys("default"), "literal"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Default("fallback"); err != nil {
		t.Fatalf("sentinel must not collide with string key: %v", err)
	}
	out, err := s.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Value(); got != "literal" {
		t.Fatalf("expected literal, got %v", got)
	}
}

func TestCase_MixedDefaultAndPlainKeys(t *testing.T) {
	s := New(9)
	if err := s.Case(Keys(1, Default), "AB"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := s.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Value(); got != "AB" {
		t.Fatalf("expected AB via default slot, got %v", got)
	}
}

func TestCase_EagerBodyEvaluation(t *testing.T) {
	// Body arguments are evaluated at the call site even for cases that
	// never match.
	evaluated := 0
	side := func(v any) any {
		evaluated++
		return v
	}
	s := New(2)
	if err := s.Case(Keys(1), side("no-match")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Case(Keys(2), side("discarded"), side("match")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evaluated != 3 {
		t.Fatalf("expected 3 eager evaluations, got %d", evaluated)
	}
	out, err := s.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.Value(); got != "match" {
		t.Fatalf("expected last body value, got %v", got)
	}
}

func TestCaseFunc_LazyBodyRunsOnlyOnMatch(t *testing.T) {
	ran := map[string]bool{}
	s := New("b")
	err := s.CaseFunc(Keys("a"), func() (any, error) {
		ran["a"] = true
		return "A", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = s.CaseFunc(Keys("b"), func() (any, error) {
		ran["b"] = true
		return "B", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := s.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Value() != "B" {
		t.Fatalf("expected B, got %v", out.Value())
	}
	if ran["a"] {
		t.Fatalf("unmatched lazy body must not run")
	}
	if !ran["b"] {
		t.Fatalf("matched lazy body must run")
	}
}

func TestCaseFunc_ErrorPropagatesUnmodified(t *testing.T) {
	boom := errors.New("boom")
	s := New(1)
	if err := s.CaseFunc(Keys(1), func() (any, error) { return nil, boom }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Resolve(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestResolve_FreezesSwitch(t *testing.T) {
	s := New(1)
	if err := s.Case(Keys(1), "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, err := s.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Case(Keys(2), "B"); !errors.Is(err, ErrResolved) {
		t.Fatalf("expected ErrResolved, got %v", err)
	}
	again, err := s.Resolve()
	if err != nil {
		t.Fatalf("repeat resolve must be a no-op, got %v", err)
	}
	if again != first {
		t.Fatalf("repeat resolve changed the output: %v vs %v", again, first)
	}
	out, ok := s.Output()
	if !ok || out != first {
		t.Fatalf("Output() should expose the frozen result")
	}
}

func TestResolve_StrictFailureIsTerminal(t *testing.T) {
	s := New(1, Strict())
	_, err := s.Resolve()
	var nre *NotResolvedError
	if !errors.As(err, &nre) {
		t.Fatalf("expected NotResolvedError, got %v", err)
	}
	// Not recoverable: the same error is reported again.
	if _, err2 := s.Resolve(); !errors.As(err2, &nre) {
		t.Fatalf("expected repeated NotResolvedError, got %v", err2)
	}
	if err := s.Case(Keys(1), "late"); !errors.Is(err, ErrResolved) {
		t.Fatalf("expected ErrResolved, got %v", err)
	}
}

func TestResolve_EmptyBodyYieldsNilResult(t *testing.T) {
	s := New(1)
	if err := s.Case(Keys(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := s.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Value() != nil {
		t.Fatalf("expected nil result, got %v", out.Value())
	}
	if out.None() {
		t.Fatalf("a matched nil result is not null-like")
	}
}

func TestResolve_FirstMatchingCaseWins(t *testing.T) {
	s := New(1)
	if err := s.Case(Keys(1), "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Case(Keys(2), "second"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := s.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Value() != "first" {
		t.Fatalf("expected first, got %v", out.Value())
	}
}

func TestResolve_UncomparableSubjectFallsThrough(t *testing.T) {
	s := New([]string{"not", "comparable"})
	if err := s.Case(Keys("a"), "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Default("D"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := s.Resolve()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Value() != "D" {
		t.Fatalf("expected default, got %v", out.Value())
	}
}
