// Package strategy walks an ordered list of attempts across an ordered list of
// scopes, letting a classifier decide after each failure whether to try the next
// attempt, skip to the next scope, or stop.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Class tells the Runner what to do after an attempt fails.
type Class int

const (
	// RetrySame moves on to the next attempt within the current scope.
	RetrySame Class = iota
	// NextScope abandons the current scope and starts the next one from its first attempt.
	NextScope
	// Fatal stops the run and returns the error as is.
	Fatal
)

func (c Class) String() string {
	switch c {
	case RetrySame:
		return "retry_same"
	case NextScope:
		return "next_scope"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// ErrExhausted is matched by the error returned when every scope ran out of attempts.
var ErrExhausted = errors.New("all strategies exhausted")

// ExhaustedError collects the failures seen before the runner gave up.
// Rejected results are not errors and are not recorded.
type ExhaustedError struct {
	Errs []error
}

func (e *ExhaustedError) Error() string {
	if len(e.Errs) == 0 {
		return ErrExhausted.Error()
	}
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return ErrExhausted.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ExhaustedError) Unwrap() []error {
	return append([]error{ErrExhausted}, e.Errs...)
}

// Attempt is one way of producing a T within scope S.
type Attempt[S, T any] struct {
	Name string
	Run  func(ctx context.Context, scope S) (T, error)
}

// Runner tries every Attempt in order for each Scope in order.
type Runner[S, T any] struct {
	Scopes   []S
	Attempts []Attempt[S, T]
	// Classify maps a failure to a Class. Nil treats every failure as Fatal.
	Classify func(error) Class
	// Accept rejects successful but unusable results; a rejected result moves on
	// to the next attempt. Nil accepts everything.
	Accept func(T) bool
	// Observe, when set, is called after every attempt.
	Observe func(scope S, attempt string, err error)
}

// Run returns the first accepted result. A Fatal failure is returned unwrapped;
// running out of scopes returns an *ExhaustedError.
func (r Runner[S, T]) Run(ctx context.Context) (T, error) {
	var zero T
	var errs []error
	for _, scope := range r.Scopes {
	attempts:
		for _, a := range r.Attempts {
			if err := ctx.Err(); err != nil {
				return zero, err
			}
			v, err := a.Run(ctx, scope)
			if r.Observe != nil {
				r.Observe(scope, a.Name, err)
			}
			if err == nil {
				if r.Accept == nil || r.Accept(v) {
					return v, nil
				}
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
			switch r.classify(err) {
			case Fatal:
				return zero, err
			case NextScope:
				break attempts
			}
		}
	}
	return zero, &ExhaustedError{Errs: errs}
}

func (r Runner[S, T]) classify(err error) Class {
	if r.Classify == nil {
		return Fatal
	}
	return r.Classify(err)
}
