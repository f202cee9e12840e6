// Package capi implements the handle-based host boundary described in
// §6: create a decompiler, decompile a file into a VB6 source listing,
// and free everything through opaque integer handles rather than Go
// pointers, so this package can back a cgo-exported C ABI without ever
// handing a caller a Go pointer to hold onto. Handles live in a
// sync.Map keyed by a monotonically increasing counter, the same shape
// the teacher's tools use for any registry that must survive across
// calls without exposing internal state.
package capi

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"vbdecompile/internal/decompiler"
)

// Status codes returned by DecompileFile, matching §6's C boundary.
const (
	StatusOK               = 0
	StatusInvalidArgument  = -1
	StatusInvalidUTF8      = -2
	StatusDecompileError   = -3
)

// Result is the owned output of one decompile call.
type Result struct {
	ProjectName   string
	VB6SourceText string
	IsPCode       bool
	ObjectCount   int
	MethodCount   int
}

var (
	handles   sync.Map // int64 -> *decompiler.Decompiler
	nextID    int64
	lastError sync.Map // int64 -> string, keyed by handle
)

// New creates a decompiler instance and returns its handle.
func New() int64 {
	id := atomic.AddInt64(&nextID, 1)
	handles.Store(id, decompiler.New())
	return id
}

// Free releases a handle. Freeing an unknown or already-freed handle is
// a no-op.
func Free(handle int64) {
	handles.Delete(handle)
	lastError.Delete(handle)
}

// DecompileFile runs the full pipeline against path and returns a
// status code plus, on success, the owned Result.
func DecompileFile(handle int64, path string) (int, *Result) {
	v, ok := handles.Load(handle)
	if !ok {
		return StatusInvalidArgument, nil
	}
	d := v.(*decompiler.Decompiler)

	if path == "" {
		setError(handle, "empty path")
		return StatusInvalidArgument, nil
	}
	if !utf8.ValidString(path) {
		setError(handle, "path is not valid UTF-8")
		return StatusInvalidUTF8, nil
	}

	out, err := d.DecompileFile(context.Background(), path)
	if err != nil {
		setError(handle, err.Error())
		return StatusDecompileError, nil
	}

	return StatusOK, &Result{
		ProjectName:   out.ProjectName,
		VB6SourceText: out.SourceText,
		IsPCode:       out.IsPCode,
		ObjectCount:   out.ObjectCount,
		MethodCount:   out.MethodCount,
	}
}

// LastError returns the message from the most recent failing call on
// handle, or "" if none.
func LastError(handle int64) string {
	v, ok := lastError.Load(handle)
	if !ok {
		return ""
	}
	return v.(string)
}

func setError(handle int64, msg string) {
	lastError.Store(handle, msg)
}

// FreeResult and FreeString exist to mirror §6's explicit
// decompiler_free_result/decompiler_free_string boundary; on the Go
// side there is nothing to release beyond letting the GC reclaim the
// value; they are retained as no-ops so a cgo export layer built on top
// of this package has a symbol to bind to.
func FreeResult(*Result) {}
func FreeString(string)  {}

// String renders a Result for debugging/logging.
func (r *Result) String() string {
	if r == nil {
		return "<nil result>"
	}
	return fmt.Sprintf("%s: %d object(s), %d method(s), pcode=%v",
		r.ProjectName, r.ObjectCount, r.MethodCount, r.IsPCode)
}
