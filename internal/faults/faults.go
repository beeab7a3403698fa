// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package faults classifies pipeline failures. Each stage wraps its error
// with one of the sentinel markers so callers can decide with errors.Is
// whether a failure is fatal, local, or a cancellation.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool    = errors.New("external tool error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrTimeout         = errors.New("timeout")
	ErrTransient       = errors.New("transient failure")
	ErrCancelled       = errors.New("review cancelled")
	ErrEmptyManuscript = errors.New("The manuscript appears to be empty or unreadable")
)

// Wrap builds an error that carries stage context and is tagged with marker
// for later classification. A nil marker is treated as ErrTransient.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Trace renders the chain of wrapped errors, outermost first, one per line.
func Trace(err error) string {
	var b strings.Builder
	depth := 0
	for e := err; e != nil; depth++ {
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", depth), e.Error())
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			// Joined and multi-%w errors: follow the last cause, the first
			// is the classification marker.
			errs := u.Unwrap()
			if len(errs) == 0 {
				e = nil
			} else {
				e = errs[len(errs)-1]
			}
		default:
			e = errors.Unwrap(e)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
