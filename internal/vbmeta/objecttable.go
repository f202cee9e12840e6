package vbmeta

import (
	"fmt"

	"vbdecompile/internal/peimg"
	"vbdecompile/internal/vbfmt"
)

// Object table header:
//
//	+0x00: wTotalObjects  uint16
//	+0x02: reserved       uint16
//	+0x04: lpObjectArray  uint32  (VA)
const (
	objTableHeaderSize = 0x08
	objTableOffCount   = 0x00
	objTableOffArray   = 0x04
)

// VBPublicObjectDescriptor (16 bytes per entry):
//
//	+0x00: lpszObjectName  uint32  (VA)
//	+0x04: reserved        uint32
//	+0x08: fObjectType     uint8
//	+0x09: reserved        uint8
//	+0x0a: reserved        uint16
//	+0x0c: lpObjectInfo    uint32  (VA)
const (
	objDescSize     = 0x10
	objDescOffName  = 0x00
	objDescOffType  = 0x08
	objDescOffInfo  = 0x0c
)

// VBObjectInfo (16 bytes):
//
//	+0x00: wMethodCount      uint16
//	+0x02: reserved          uint16
//	+0x04: lpMethods         uint32  (VA -> array of VBProcDescInfo)
//	+0x08: dwMethodCount     uint32  (entries in the name array; usually == wMethodCount)
//	+0x0c: lpMethodNamesArray uint32 (VA -> array of (name_ptr, flags) pairs)
const (
	objInfoSize         = 0x10
	objInfoOffMethCount = 0x00
	objInfoOffMethods   = 0x04
	objInfoOffNameCount = 0x08
	objInfoOffNameArray = 0x0c
)

// VBOptionalObjectInfo (12 bytes), present immediately after VBObjectInfo
// when fObjectType bit 7 is set:
//
//	+0x00: controlCount  uint16
//	+0x02: eventCount    uint16
//	+0x04: lpControls    uint32  (VA -> array of control name pointers)
//	+0x08: lpEvents      uint32  (VA, unused by this decompiler)
const (
	optInfoSize          = 0x0c
	optInfoOffControls   = 0x00
	optInfoOffLpControls = 0x04
)

// methodNameEntrySize is the size of one (name_ptr, flags) pair in the
// method-names array.
const methodNameEntrySize = 0x08

// VBProcDescInfo (4 bytes), immediately followed by wProcSize bytes of
// method body:
//
//	+0x00: wProcSize  uint16
//	+0x02: reserved   uint16
const procDescSize = 0x04

func readObjectTable(img *peimg.Image, rva uint32, native bool, diags *vbfmt.Diags, opts vbfmt.Options) ([]Object, error) {
	raw, err := img.ReadAtRVA(rva, objTableHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("read object table header: %w", err)
	}
	if len(raw) < objTableHeaderSize {
		return nil, fmt.Errorf("truncated object table header")
	}
	r := vbfmt.NewReader(raw)
	total, err := r.ReadU16LE()
	if err != nil {
		return nil, err
	}
	if err := r.Seek(objTableOffArray); err != nil {
		return nil, err
	}
	arrayVA, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}

	objects := make([]Object, 0, total)
	arrayRVA := img.VAToRVA(arrayVA)
	for i := 0; i < int(total); i++ {
		descRVA := arrayRVA + uint32(i)*objDescSize
		obj, err := readObjectDescriptor(img, descRVA, i, native, diags, opts)
		if err != nil {
			if ferr := fail(diags, opts, descRVA, vbfmt.DiagInvalid, fmt.Errorf("object[%d]: %w", i, err)); ferr != nil {
				return nil, ferr
			}
			continue
		}
		objects = append(objects, *obj)
	}
	return objects, nil
}

func readObjectDescriptor(img *peimg.Image, descRVA uint32, index int, native bool, diags *vbfmt.Diags, opts vbfmt.Options) (*Object, error) {
	raw, err := img.ReadAtRVA(descRVA, objDescSize)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	if len(raw) < objDescSize {
		return nil, fmt.Errorf("truncated descriptor")
	}
	r := vbfmt.NewReader(raw)
	nameVA, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	if err := r.Seek(objDescOffType); err != nil {
		return nil, err
	}
	typeFlags, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if err := r.Seek(objDescOffInfo); err != nil {
		return nil, err
	}
	infoVA, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}

	name := readObjectName(img, nameVA, diags, opts, descRVA)

	obj := &Object{
		Index:       index,
		Name:        name,
		TypeFlags:   typeFlags,
		HasOptional: typeFlags&flagOptionalInfo != 0,
	}

	infoRVA := img.VAToRVA(infoVA)
	methods, controls, eventCount, err := readObjectInfo(img, infoRVA, obj, native, diags, opts)
	if err != nil {
		return nil, fmt.Errorf("object info: %w", err)
	}
	obj.Methods = methods
	obj.Controls = controls
	obj.EventCount = eventCount
	return obj, nil
}

func readObjectName(img *peimg.Image, nameVA uint32, diags *vbfmt.Diags, opts vbfmt.Options, addr uint32) string {
	if nameVA == 0 {
		return "<unnamed>"
	}
	nameRVA := img.VAToRVA(nameVA)
	rr := vbfmt.NewReader(mustReadAll(img, nameRVA, 256))
	s, err := rr.ReadCString(0)
	if err != nil || s == "" {
		diags.Addf(addr, vbfmt.DiagInvalid, "object name unreadable at va=0x%x", nameVA)
		return "<unnamed>"
	}
	return s
}

// mustReadAll reads up to n bytes at rva, returning whatever is
// available (possibly fewer than n, possibly empty) rather than an
// error — name/string reads degrade gracefully.
func mustReadAll(img *peimg.Image, rva uint32, n int) []byte {
	b, err := img.ReadAtRVA(rva, n)
	if err != nil {
		return nil
	}
	return b
}

func readObjectInfo(img *peimg.Image, infoRVA uint32, obj *Object, native bool, diags *vbfmt.Diags, opts vbfmt.Options) ([]Method, []Control, int, error) {
	raw, err := img.ReadAtRVA(infoRVA, objInfoSize)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read object info: %w", err)
	}
	if len(raw) < objInfoSize {
		return nil, nil, 0, fmt.Errorf("truncated object info")
	}
	r := vbfmt.NewReader(raw)
	methodCount, err := r.ReadU16LE()
	if err != nil {
		return nil, nil, 0, err
	}
	if err := r.Seek(objInfoOffMethods); err != nil {
		return nil, nil, 0, err
	}
	lpMethods, err := r.ReadU32LE()
	if err != nil {
		return nil, nil, 0, err
	}
	dwMethodCount, err := r.ReadU32LE()
	if err != nil {
		return nil, nil, 0, err
	}
	lpNamesArray, err := r.ReadU32LE()
	if err != nil {
		return nil, nil, 0, err
	}

	names := readMethodNames(img, lpNamesArray, int(dwMethodCount), diags)

	methods := make([]Method, 0, methodCount)
	methodsRVA := img.VAToRVA(lpMethods)
	cursor := methodsRVA
	for m := 0; m < int(methodCount); m++ {
		method, size, err := readMethod(img, cursor, obj.Index, m, obj.Name, names, native)
		if err != nil {
			if ferr := fail(diags, opts, cursor, vbfmt.DiagInvalid, fmt.Errorf("method[%d]: %w", m, err)); ferr != nil {
				return nil, nil, 0, ferr
			}
			break
		}
		methods = append(methods, *method)
		cursor += procDescSize + size
	}

	var controls []Control
	eventCount := 0
	if obj.HasOptional {
		controls, eventCount = readOptionalInfo(img, infoRVA+objInfoSize, diags)
	}

	return methods, controls, eventCount, nil
}

func readMethodNames(img *peimg.Image, lpArray uint32, count int, diags *vbfmt.Diags) []string {
	if lpArray == 0 || count <= 0 {
		return nil
	}
	arrayRVA := img.VAToRVA(lpArray)
	names := make([]string, count)
	for i := 0; i < count; i++ {
		entryRVA := arrayRVA + uint32(i)*methodNameEntrySize
		raw, err := img.ReadAtRVA(entryRVA, 4)
		if err != nil || len(raw) < 4 {
			names[i] = "<unnamed>"
			continue
		}
		r := vbfmt.NewReader(raw)
		namePtr, _ := r.ReadU32LE()
		if namePtr == 0 {
			names[i] = "<unnamed>"
			continue
		}
		nr := vbfmt.NewReader(mustReadAll(img, img.VAToRVA(namePtr), 256))
		s, err := nr.ReadCString(0)
		if err != nil || s == "" {
			diags.Addf(entryRVA, vbfmt.DiagInvalid, "method name unreadable")
			names[i] = "<unnamed>"
			continue
		}
		names[i] = s
	}
	return names
}

func readMethod(img *peimg.Image, descRVA uint32, objIndex, methodIndex int, objName string, names []string, native bool) (*Method, uint32, error) {
	raw, err := img.ReadAtRVA(descRVA, procDescSize)
	if err != nil {
		return nil, 0, fmt.Errorf("read proc descriptor: %w", err)
	}
	if len(raw) < procDescSize {
		return nil, 0, fmt.Errorf("truncated proc descriptor")
	}
	r := vbfmt.NewReader(raw)
	procSize, err := r.ReadU16LE()
	if err != nil {
		return nil, 0, err
	}

	codeRVA := descRVA + procDescSize
	code, err := img.ReadAtRVA(codeRVA, int(procSize))
	if err != nil {
		return nil, 0, fmt.Errorf("read method body: %w", err)
	}

	name := "<unnamed>"
	if methodIndex < len(names) {
		name = names[methodIndex]
	}

	kind := PCode
	if native {
		kind = Native
	}

	return &Method{
		ObjectIndex:  objIndex,
		MethodIndex:  methodIndex,
		ObjectName:   objName,
		MethodName:   name,
		Kind:         kind,
		CodeBytes:    code,
		StartAddress: uint32(img.ImageBase) + codeRVA,
	}, uint32(procSize), nil
}

func readOptionalInfo(img *peimg.Image, rva uint32, diags *vbfmt.Diags) ([]Control, int) {
	raw, err := img.ReadAtRVA(rva, optInfoSize)
	if err != nil || len(raw) < optInfoSize {
		diags.Addf(rva, vbfmt.DiagTruncated, "optional object info unreadable")
		return nil, 0
	}
	r := vbfmt.NewReader(raw)
	controlCount, _ := r.ReadU16LE()
	eventCount, _ := r.ReadU16LE()
	if err := r.Seek(optInfoOffLpControls); err != nil {
		return nil, int(eventCount)
	}
	lpControls, err := r.ReadU32LE()
	if err != nil || lpControls == 0 || controlCount == 0 {
		return nil, int(eventCount)
	}

	controls := make([]Control, 0, controlCount)
	arrayRVA := img.VAToRVA(lpControls)
	for i := 0; i < int(controlCount); i++ {
		entryRVA := arrayRVA + uint32(i)*4
		b, err := img.ReadAtRVA(entryRVA, 4)
		if err != nil || len(b) < 4 {
			break
		}
		rr := vbfmt.NewReader(b)
		ptr, _ := rr.ReadU32LE()
		if ptr == 0 {
			controls = append(controls, Control{Name: "<unnamed>"})
			continue
		}
		nr := vbfmt.NewReader(mustReadAll(img, img.VAToRVA(ptr), 128))
		s, err := nr.ReadCString(0)
		if err != nil || s == "" {
			s = "<unnamed>"
		}
		controls = append(controls, Control{Name: s})
	}
	return controls, int(eventCount)
}
