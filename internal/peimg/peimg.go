// Package peimg provides PE32 loading helpers for locating VB5/6 metadata
// and executable bytes inside a Windows executable.
package peimg

import (
	"debug/pe"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrNotPE         = errors.New("peimg: not a PE file")
	ErrNot32Bit      = errors.New("peimg: not PE32 (expected optional-header magic 0x10B)")
	ErrNotI386       = errors.New("peimg: not IMAGE_FILE_MACHINE_I386")
	ErrNoSection     = errors.New("peimg: no section covers address")
	ErrTruncated     = errors.New("peimg: truncated read")
)

// Image wraps a debug/pe.File with the convenience methods the VB
// metadata parser and instruction decoders need: RVA<->file-offset
// resolution, section lookup, and raw-byte snapshots.
//
// An Image is immutable after Open: section raw bytes are snapshotted
// eagerly so section lookups and reads never touch the filesystem
// again. ImportedLibraries reads the import directory through the file,
// which stays open until Close.
type Image struct {
	ImageBase        uint64
	EntryPointRVA    uint32
	Sections         []Section
	pe               *pe.File
	raw              io.ReaderAt
	size             int64
}

// Section describes one PE section with a raw-byte snapshot.
type Section struct {
	Name       string
	VA         uint32 // virtual address (RVA, image base already excluded)
	VirtSize   uint32
	RawOffset  uint32
	RawSize    uint32
	Flags      uint32
	Raw        []byte // snapshot of SizeOfRawData bytes from PointerToRawData
}

// Open parses path as a PE32 image and validates it targets
// IMAGE_FILE_MACHINE_I386. Every section's raw bytes are snapshotted
// immediately so the returned Image owns all the bytes it can address.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("peimg: open: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("peimg: stat: %w", err)
	}

	pf, err := pe.NewFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotPE, err)
	}

	if pf.Machine != pe.IMAGE_FILE_MACHINE_I386 {
		pf.Close()
		f.Close()
		return nil, ErrNotI386
	}

	oh, ok := pf.OptionalHeader.(*pe.OptionalHeader32)
	if !ok {
		pf.Close()
		f.Close()
		return nil, ErrNot32Bit
	}

	img := &Image{
		ImageBase:     uint64(oh.ImageBase),
		EntryPointRVA: oh.AddressOfEntryPoint,
		pe:            pf,
		raw:           f,
		size:          info.Size(),
	}

	for _, s := range pf.Sections {
		raw := make([]byte, s.Size)
		n, rerr := s.ReadAt(raw, 0)
		if rerr != nil && rerr != io.EOF {
			pf.Close()
			f.Close()
			return nil, fmt.Errorf("peimg: read section %s: %w", s.Name, rerr)
		}
		raw = raw[:n]
		img.Sections = append(img.Sections, Section{
			Name:      s.Name,
			VA:        s.VirtualAddress,
			VirtSize:  s.VirtualSize,
			RawOffset: s.Offset,
			RawSize:   s.Size,
			Flags:     uint32(s.Characteristics),
			Raw:       raw,
		})
	}

	return img, nil
}

// Close releases the underlying file handle.
func (img *Image) Close() error {
	if img.pe != nil {
		img.pe.Close()
	}
	if c, ok := img.raw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// FindSectionByName returns the section with an exact name match.
func (img *Image) FindSectionByName(name string) (*Section, bool) {
	for i := range img.Sections {
		if img.Sections[i].Name == name {
			return &img.Sections[i], true
		}
	}
	return nil, false
}

// FindSectionByRVA returns the unique section whose [VA, VA+VirtSize)
// range contains rva.
func (img *Image) FindSectionByRVA(rva uint32) (*Section, bool) {
	for i := range img.Sections {
		s := &img.Sections[i]
		if rva >= s.VA && rva < s.VA+s.VirtSize {
			return s, true
		}
	}
	return nil, false
}

// RVAToFileOffset resolves an RVA to a file offset: the section
// containing rva must satisfy fileOffset = rawOffset + (rva - va).
func (img *Image) RVAToFileOffset(rva uint32) (uint32, error) {
	s, ok := img.FindSectionByRVA(rva)
	if !ok {
		return 0, fmt.Errorf("%w: rva=0x%x", ErrNoSection, rva)
	}
	return s.RawOffset + (rva - s.VA), nil
}

// ReadAtRVA reads n bytes starting at the given RVA from the section's
// in-memory raw snapshot, clamped to the section's captured size.
func (img *Image) ReadAtRVA(rva uint32, n int) ([]byte, error) {
	s, ok := img.FindSectionByRVA(rva)
	if !ok {
		return nil, fmt.Errorf("%w: rva=0x%x", ErrNoSection, rva)
	}
	off := int(rva - s.VA)
	if off < 0 || off+n > len(s.Raw) {
		if off >= len(s.Raw) {
			return nil, ErrTruncated
		}
		n = len(s.Raw) - off
	}
	out := make([]byte, n)
	copy(out, s.Raw[off:off+n])
	return out, nil
}

// VAToRVA converts an absolute virtual address to an RVA by subtracting
// the image base, per the VB metadata pointer-correction rule.
func (img *Image) VAToRVA(va uint32) uint32 {
	return va - uint32(img.ImageBase)
}

// ImportedLibraries enumerates imported DLL names, each once, used by
// callers as a heuristic for "is this VB?" via msvbvm*.dll. A DLL whose
// imports are all by ordinal is not listed.
func (img *Image) ImportedLibraries() ([]string, error) {
	syms, err := img.pe.ImportedSymbols()
	if err != nil {
		return nil, fmt.Errorf("peimg: import directory: %w", err)
	}
	var libs []string
	seen := make(map[string]bool)
	for _, sym := range syms {
		// debug/pe reports each by-name import as "symbol:dll".
		for i := len(sym) - 1; i >= 0; i-- {
			if sym[i] == ':' {
				if dll := sym[i+1:]; !seen[dll] {
					seen[dll] = true
					libs = append(libs, dll)
				}
				break
			}
		}
	}
	return libs, nil
}

// FindBytes searches every section's raw snapshot for the first
// occurrence of pattern, returning its RVA. Sections are searched in
// file order; the first match wins.
func (img *Image) FindBytes(pattern []byte) (rva uint32, found bool) {
	for _, s := range img.Sections {
		idx := indexBytes(s.Raw, pattern)
		if idx >= 0 {
			return s.VA + uint32(idx), true
		}
	}
	return 0, false
}

func indexBytes(haystack, needle []byte) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
