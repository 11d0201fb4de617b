// Copyright (C) 2019-2026, Nodekit Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wrappers provides small error-aggregation helpers shared across
// the kernel's subsystems.
package wrappers

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Errs is a concurrency-safe collection of independent errors, used where a
// batch of sub-operations (e.g. bootstrapping several packages) should keep
// going after one fails and report all failures together.
type Errs struct {
	mu   sync.RWMutex
	errs []error
}

// Add appends err to the collection. A nil err is ignored.
func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

// Errored reports whether any error has been added.
func (e *Errs) Errored() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.errs) > 0
}

// Len returns the number of errors added.
func (e *Errs) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.errs)
}

// Err collapses the collection into a single error, or nil if empty.
func (e *Errs) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch len(e.errs) {
	case 0:
		return nil
	case 1:
		return e.errs[0]
	default:
		return errors.New(e.string())
	}
}

func (e *Errs) string() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error", len(e.errs)))
	if len(e.errs) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString(" occurred:")
	for _, err := range e.errs {
		sb.WriteString("\n\t* ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}
