// Package vbfmt provides shared diagnostics and options used across the
// decompilation pipeline: PE/VB metadata parsing, instruction decoding,
// lifting, structuring, and emission all report through the same Diag
// accumulator so a whole-file decompilation can survive a bad procedure.
package vbfmt

import "fmt"

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagTruncated    DiagKind = "truncated"
	DiagInvalid      DiagKind = "invalid"
	DiagUnknownOp    DiagKind = "unknown_opcode"
	DiagEmptyStack   DiagKind = "empty_stack"
	DiagUnmatched    DiagKind = "unmatched_region"
	DiagUnresolvable DiagKind = "unresolvable_branch"
	DiagPartial      DiagKind = "partial_procedure"
)

// Diag records a non-fatal issue encountered during parsing, decoding,
// lifting, or structuring.
type Diag struct {
	Address uint32   `json:"address"`
	Kind    DiagKind `json:"kind"`
	Msg     string   `json:"msg"`
}

func (d Diag) String() string {
	return fmt.Sprintf("[%s] 0x%x: %s", d.Kind, d.Address, d.Msg)
}

// Diags accumulates diagnostics for one parse/decode/lift pass.
type Diags struct {
	items []Diag
}

// Add records a diagnostic with a literal message.
func (d *Diags) Add(addr uint32, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Address: addr, Kind: kind, Msg: msg})
}

// Addf records a diagnostic with a formatted message.
func (d *Diags) Addf(addr uint32, kind DiagKind, format string, args ...any) {
	d.items = append(d.items, Diag{Address: addr, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// Items returns the accumulated diagnostics in order.
func (d *Diags) Items() []Diag { return d.items }

// Merge appends another Diags' items onto d, for stages that combine
// diagnostics from several sub-passes (e.g. decode + lift) into one
// per-file accumulator.
func (d *Diags) Merge(other Diags) {
	d.items = append(d.items, other.items...)
}

// Len reports how many diagnostics have been recorded.
func (d *Diags) Len() int { return len(d.items) }

// Mode controls error-handling behavior across the pipeline.
type Mode int

const (
	// ModeStrict aborts the current file/procedure on the first structural
	// error, returning it as a wrapped Go error.
	ModeStrict Mode = iota
	// ModeBestEffort continues past recoverable errors, substituting a
	// placeholder (Unknown instruction, partial procedure, goto/label
	// fallback, Variant type, comment line) and recording a Diag.
	ModeBestEffort
)

// Options controls parsing/decoding/lifting behavior across packages.
type Options struct {
	Mode     Mode
	MaxSteps int // global decode-loop cap; 0 = DefaultMaxSteps
	MaxBytes int // output size cap; 0 = unlimited
}

// DefaultMaxSteps is the global default instruction-decode loop cap, a
// backstop against malformed procedures with no ExitProc/Ret terminator.
const DefaultMaxSteps = 1_000_000

// EffectiveMaxSteps returns the configured cap or the default.
func (o Options) EffectiveMaxSteps() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return DefaultMaxSteps
}
