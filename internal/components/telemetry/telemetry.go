package telemetry

import (
	"fmt"
)

// API is the logging and metrics surface every component reports through, it
// is an interface so tests can assert on what was reported (see Recorder).
//
// Ids name the struct and method that reported, lowercase with dashes
// (`engine.movie`). Components behind a ScopedAPI leave their own name out of
// the id, the scope adds it (`merge: engine.movie`). An id locates the code, it
// says nothing about severity: that is what the method called already tells,
// so prefer `posters.write` over `posters.write-failed`. Details go into the
// params or into a wrapped error.
type API interface {
	// ReportBroken reports a failure that needs someone to act on it.
	ReportBroken(id string, params ...any)
	// ReportWarning reports a unit of work that was skipped or degraded.
	ReportWarning(id string, params ...any)
	// ReportDebug is progress information, dropped unless running verbose.
	ReportDebug(msg string, params ...any)
	// ReportCount records the current value of a gauge, reported values are
	// points in time and are never summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id (and debug message) with a namespace.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
