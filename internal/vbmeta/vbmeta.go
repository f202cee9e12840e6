// Package vbmeta parses the VB5/6 runtime metadata embedded in a PE
// image: the VB5! header, project info, object table, and per-object
// method tables. It is grounded on the teacher's internal/snapshot
// package, which locates and parses a different runtime's metadata
// (Dart AOT snapshot headers) from an ELF image the same way: locate a
// magic signature, parse a fixed header, resolve pointers through the
// image, and accumulate Diags rather than fail the whole file.
package vbmeta

import (
	"errors"
	"fmt"

	"vbdecompile/internal/peimg"
	"vbdecompile/internal/vbfmt"
)

// Signature is the ASCII marker that opens the VB runtime header.
var Signature = []byte("VB5!")

var (
	ErrSignatureNotFound = errors.New("vbmeta: VB5! signature not found")
	ErrProjectInfoRange  = errors.New("vbmeta: project info RVA out of range")
	ErrObjectTableRange  = errors.New("vbmeta: object table RVA out of range")
)

// CodeKind identifies whether a method body is P-Code or native x86.
type CodeKind int

const (
	PCode CodeKind = iota
	Native
)

func (k CodeKind) String() string {
	if k == Native {
		return "Native"
	}
	return "PCode"
}

// ObjectKind bits from fObjectType. A single object may carry more than
// one bit in principle; IsModule/IsClass/IsForm report the individual
// flags rather than collapsing them to an enum.
const (
	flagModule       = 1 << 0
	flagClass        = 1 << 1
	flagForm         = 1 << 4
	flagOptionalInfo = 1 << 7
)

// ThreadModel renders dwThreadFlags as the human string VB6 project
// settings dialogs use. Supplemented from original_source/: the
// distilled spec names the field but never interprets its bits.
type ThreadModel int

const (
	ThreadApartment ThreadModel = iota
	ThreadSingle
	ThreadPool
)

func (t ThreadModel) String() string {
	switch t {
	case ThreadSingle:
		return "single-threaded"
	case ThreadPool:
		return "thread-pool"
	default:
		return "apartment-threaded"
	}
}

// Header is the VB5! runtime header (VBHeader).
type Header struct {
	RVA            uint32
	LpSubMain      uint32 // VA; 0 => Sub Main is the implicit form-load entry point
	LpProjectInfo  uint32 // VA of the VBProjectInfo struct
	FormCount      uint16
	ThreadFlags    uint32
}

// Thread decodes the low bits of ThreadFlags into a ThreadModel.
func (h *Header) Thread() ThreadModel {
	switch h.ThreadFlags & 0x3 {
	case 1:
		return ThreadSingle
	case 2:
		return ThreadPool
	default:
		return ThreadApartment
	}
}

// ProjectInfo is the VBProjectInfo struct referenced by Header.LpProjectInfo.
type ProjectInfo struct {
	LpObjectTable uint32 // VA
	LpCodeStart   uint32
	LpCodeEnd     uint32
	LpNativeCode  uint32 // nonzero => native x86; zero => P-Code
}

// IsNative reports whether the project was compiled to native x86.
func (p *ProjectInfo) IsNative() bool { return p.LpNativeCode != 0 }

// Control is a supplemented field (from original_source/) describing one
// control instance attached to a form/class object's optional info.
type Control struct {
	Name string
}

// Object is one entry of the VB object table (a form, module, or class).
type Object struct {
	Index        int
	Name         string
	TypeFlags    uint8
	HasOptional  bool
	Controls     []Control // populated only when HasOptional and controls were resolved
	EventCount   int
	Methods      []Method
}

func (o *Object) IsModule() bool { return o.TypeFlags&flagModule != 0 }
func (o *Object) IsClass() bool  { return o.TypeFlags&flagClass != 0 }
func (o *Object) IsForm() bool   { return o.TypeFlags&flagForm != 0 }

// Method is one VB method descriptor: spec.md §3's
// (object_index, method_index, object_name, method_name, kind, code_bytes, start_address).
type Method struct {
	ObjectIndex  int
	MethodIndex  int
	ObjectName   string
	MethodName   string
	Kind         CodeKind
	CodeBytes    []byte
	StartAddress uint32 // VA, for display and relative-branch resolution
}

// Project is the fully parsed VB metadata for one executable.
type Project struct {
	Header  Header
	Info    ProjectInfo
	Objects []Object
	Diags   vbfmt.Diags
}

// fail returns a wrapped error in Strict mode, or records a Diag and
// returns nil in BestEffort mode — the component-level realization of
// spec.md §7's "VB format" error kind.
func fail(d *vbfmt.Diags, opts vbfmt.Options, addr uint32, kind vbfmt.DiagKind, err error) error {
	if opts.Mode == vbfmt.ModeStrict {
		return err
	}
	d.Add(addr, kind, err.Error())
	return nil
}

// Extract locates the VB5! header in img and parses the full metadata
// tree: header, project info, object table, and per-object method
// tables. A signature-not-found failure is always fatal — it means the
// file is not a VB5/6 executable — regardless of Options.Mode.
func Extract(img *peimg.Image, opts vbfmt.Options) (*Project, error) {
	rva, ok := img.FindBytes(Signature)
	if !ok {
		return nil, ErrSignatureNotFound
	}

	proj := &Project{}

	hdr, err := readHeader(img, rva)
	if err != nil {
		return nil, fmt.Errorf("vbmeta: header: %w", err)
	}
	proj.Header = *hdr

	projRVA := img.VAToRVA(hdr.LpProjectInfo)
	if _, ok := img.FindSectionByRVA(projRVA); !ok {
		return nil, fmt.Errorf("%w: va=0x%x", ErrProjectInfoRange, hdr.LpProjectInfo)
	}
	info, err := readProjectInfo(img, projRVA)
	if err != nil {
		return nil, fmt.Errorf("vbmeta: project info: %w", err)
	}
	proj.Info = *info

	objTableRVA := img.VAToRVA(info.LpObjectTable)
	if _, ok := img.FindSectionByRVA(objTableRVA); !ok {
		return nil, fmt.Errorf("%w: va=0x%x", ErrObjectTableRange, info.LpObjectTable)
	}

	objects, err := readObjectTable(img, objTableRVA, info.IsNative(), &proj.Diags, opts)
	if err != nil {
		return nil, fmt.Errorf("vbmeta: object table: %w", err)
	}
	proj.Objects = objects

	return proj, nil
}
