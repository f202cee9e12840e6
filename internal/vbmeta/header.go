package vbmeta

import (
	"fmt"

	"vbdecompile/internal/peimg"
	"vbdecompile/internal/vbfmt"
)

// VBHeader layout (104 bytes total), as reconstructed from VB6 runtime
// binaries. Offsets not named by the pipeline spec are reserved/unused
// by this decompiler and are skipped rather than modeled field-by-field.
//
//	+0x00: signature     [4]byte  "VB5!"
//	+0x04: runtimeBuild  uint16
//	+0x06: languageID    uint16
//	+0x08: reserved1     uint32
//	+0x0c: lpSubMain     uint32   (VA; 0 => form load)
//	+0x10: lpProjectInfo uint32   (VA)
//	+0x14: reserved2     uint32
//	+0x18: formCount     uint16
//	+0x1a: reserved3     uint16
//	+0x1c: threadFlags   uint32
//	+0x20..0x67: reserved padding
const (
	headerSize          = 104
	headerOffLpSubMain   = 0x0c
	headerOffLpProjInfo  = 0x10
	headerOffFormCount   = 0x18
	headerOffThreadFlags = 0x1c
)

// readHeader parses the VBHeader starting at the signature's RVA.
func readHeader(img *peimg.Image, sigRVA uint32) (*Header, error) {
	raw, err := img.ReadAtRVA(sigRVA, headerSize)
	if err != nil {
		return nil, fmt.Errorf("read header bytes: %w", err)
	}
	if len(raw) < headerSize {
		return nil, fmt.Errorf("truncated header: got %d bytes, want %d", len(raw), headerSize)
	}

	r := vbfmt.NewReader(raw)
	if err := r.Seek(headerOffLpSubMain); err != nil {
		return nil, err
	}
	subMain, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	projInfo, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}

	if err := r.Seek(headerOffFormCount); err != nil {
		return nil, err
	}
	formCount, err := r.ReadU16LE()
	if err != nil {
		return nil, err
	}

	if err := r.Seek(headerOffThreadFlags); err != nil {
		return nil, err
	}
	threadFlags, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}

	return &Header{
		RVA:           sigRVA,
		LpSubMain:     subMain,
		LpProjectInfo: projInfo,
		FormCount:     formCount,
		ThreadFlags:   threadFlags,
	}, nil
}

// VBProjectInfo layout:
//
//	+0x00: version        uint32
//	+0x04: lpObjectTable   uint32  (VA)
//	+0x08: reserved        uint32
//	+0x0c: lpCodeStart     uint32
//	+0x10: lpCodeEnd       uint32
//	+0x14: lpNativeCode    uint32  (nonzero => native x86)
const (
	projectInfoSize       = 0x18
	projInfoOffObjTable   = 0x04
	projInfoOffCodeStart  = 0x0c
	projInfoOffCodeEnd    = 0x10
	projInfoOffNativeCode = 0x14
)

func readProjectInfo(img *peimg.Image, rva uint32) (*ProjectInfo, error) {
	raw, err := img.ReadAtRVA(rva, projectInfoSize)
	if err != nil {
		return nil, fmt.Errorf("read project info bytes: %w", err)
	}
	if len(raw) < projectInfoSize {
		return nil, fmt.Errorf("truncated project info: got %d bytes, want %d", len(raw), projectInfoSize)
	}

	r := vbfmt.NewReader(raw)
	if err := r.Seek(projInfoOffObjTable); err != nil {
		return nil, err
	}
	objTable, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}

	if err := r.Seek(projInfoOffCodeStart); err != nil {
		return nil, err
	}
	codeStart, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	codeEnd, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	nativeCode, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}

	return &ProjectInfo{
		LpObjectTable: objTable,
		LpCodeStart:   codeStart,
		LpCodeEnd:     codeEnd,
		LpNativeCode:  nativeCode,
	}, nil
}
