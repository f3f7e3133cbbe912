// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package zipkit reads, edits and writes ZIP archives: the full APPNOTE
container plus traditional ZipCrypto encryption and an editable archive
model (create/add/remove members, then save), built around the record
layout and zip64 promotion logic of github.com/martin-sucha/zipserve.

See: https://www.pkware.com/appnote

This package does not support disk spanning, strong encryption, or
central-directory encryption.
*/
package zipkit

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// Archive is a parsed, read-only view of a ZIP container: its central
// directory plus a handle on the underlying bytes for on-demand payload
// decoding. It replaces the teacher's HTTP-serving Template/Archive pair
// (see DESIGN.md) with the decode-on-read model spec §3/§C10 calls for.
type Archive struct {
	ra       io.ReaderAt
	size     int64
	entries  []*CentralHeader
	byName   map[string]int
	comment  string
	dsp      *Dispatcher
	password string
	encoding string
}

// Open parses the ZIP container in ra (of the given size) and returns an
// Archive ready for PeekAll/ExtractAll. encoding names the character
// encoding used for members whose UTF-8 flag (bit 11) is unset; ""
// defaults to UTF-8 (spec §6). Grounded on
// elliotnunn-BeHierarchic/internal/zip/zip.go's New2.
func Open(ra io.ReaderAt, size int64, encoding string) (*Archive, error) {
	rec, eocdOffset, err := readEOCD(ra, size)
	if err != nil {
		return nil, err
	}
	entries, err := readCentralDirectory(ra, int64(rec.OffsetOfCD), uint64(rec.TotalCDEntries), eocdOffset, encoding)
	if err != nil {
		return nil, err
	}

	ar := &Archive{
		ra:       ra,
		size:     size,
		entries:  entries,
		byName:   make(map[string]int, len(entries)),
		comment:  rec.Comment,
		dsp:      NewDispatcher(),
		encoding: resolveEncoding(encoding),
	}
	for i, e := range entries {
		ar.byName[e.Name] = i
	}
	return ar, nil
}

// Encoding returns the character encoding this archive uses for members
// without the UTF-8 flag set.
func (ar *Archive) Encoding() string { return ar.encoding }

// SetPassword configures the password used to decrypt entries whose
// encrypted bit is set. It must be called before PeekAll/ExtractAll for
// archives containing ZipCrypto-protected members.
func (ar *Archive) SetPassword(password string) {
	ar.password = password
}

// Dispatcher exposes the archive's compression dispatcher so a caller
// can register codecs for methods this library doesn't bundle (e.g.
// Deflate64, Imploding) before decoding.
func (ar *Archive) Dispatcher() *Dispatcher {
	return ar.dsp
}

// Comment returns the archive-level comment from the EOCD record.
func (ar *Archive) Comment() string { return ar.comment }

// Names returns every member name in central-directory order.
func (ar *Archive) Names() []string {
	names := make([]string, len(ar.entries))
	for i, e := range ar.entries {
		names[i] = e.Name
	}
	return names
}

// PeekAll decodes and returns every member without mutating any
// persistent state, the direct counterpart of zippy's Archive.peek_all.
func (ar *Archive) PeekAll() ([]*DecodedEntry, error) {
	out := make([]*DecodedEntry, 0, len(ar.entries))
	for _, h := range ar.entries {
		entry, err := decodeEntry(ar.ra, h, ar.dsp, ar.password)
		if err != nil {
			return nil, fmt.Errorf("peeking %q: %w", h.Name, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// PeekedEntry is one (name, displayed-content) pair returned by
// PeekAllText, spec §4.10's peek_all. Exactly one of Text/Binary is
// meaningful, per IsText: decoding only falls back to the raw Binary
// form when the payload isn't valid text in the requested encoding,
// mirroring original_source/zippy/_base_classes.py's File.peek, which
// returns `str | bytes`.
type PeekedEntry struct {
	Name   string
	Text   string
	Binary []byte
	IsText bool
}

// truncationMarker is appended to an overflowing payload's display form,
// exactly as original_source/zippy/_base_classes.py's File.peek does
// ("... |...| File too large to display").
const truncationMarker = " |...| File too large to display"

// PeekAllText renders every member as its spec §4.10 display form:
// decode with encoding (falling back to raw bytes when the payload
// isn't valid text in that encoding), skip directory entries unless
// includeDirs is true, and when allowOverflow is false, truncate any
// payload over charLimit to charLimit/2 runes (text) or charLimit/32
// bytes (binary), appending truncationMarker. Grounded on
// original_source/zippy/_base_classes.py's File.peek/Archive.peek_all;
// distinct from PeekAll/Peek (C7's full-fidelity decode, used
// internally by Edit/AddFromArchive, which must never truncate).
func (ar *Archive) PeekAllText(encoding string, includeDirs, allowOverflow bool, charLimit int) ([]PeekedEntry, error) {
	entries, err := ar.PeekAll()
	if err != nil {
		return nil, err
	}
	out := make([]PeekedEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDirectory && !includeDirs {
			continue
		}
		out = append(out, peekTextView(e, encoding, allowOverflow, charLimit))
	}
	return out, nil
}

func peekTextView(e *DecodedEntry, encoding string, allowOverflow bool, charLimit int) PeekedEntry {
	if e.IsDirectory {
		return PeekedEntry{Name: e.Name, Text: "Folder", IsText: true}
	}

	if text, ok := decodePeekText(e.Payload, encoding); ok {
		if runes := []rune(text); !allowOverflow && len(runes) > charLimit {
			text = string(runes[:charLimit/2]) + truncationMarker
		}
		return PeekedEntry{Name: e.Name, Text: text, IsText: true}
	}

	raw := e.Payload
	if !allowOverflow && len(raw) > charLimit {
		raw = append(append([]byte{}, raw[:charLimit/32]...), []byte(truncationMarker)...)
	}
	return PeekedEntry{Name: e.Name, Binary: raw}
}

// decodePeekText decodes b per encoding, reporting ok=false (rather than
// an error) when the bytes aren't valid text in that encoding, so the
// caller falls back to the raw byte form — the same "decode failed, use
// bytes instead" behavior as the original's File.peek.
func decodePeekText(b []byte, encoding string) (string, bool) {
	if isUTF8Encoding(encoding) {
		if !utf8.Valid(b) {
			return "", false
		}
		return string(b), true
	}
	text, err := decodeText(b, encoding)
	if err != nil {
		return "", false
	}
	return text, true
}

// Peek decodes a single named member.
func (ar *Archive) Peek(name string) (*DecodedEntry, error) {
	i, ok := ar.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFileNotFound, name)
	}
	return decodeEntry(ar.ra, ar.entries[i], ar.dsp, ar.password)
}

// ExtractAll decodes every member and materializes it under dst via the
// host environment's filesystem operations, the counterpart of zippy's
// Archive.extract_all. Entries are written in central-directory order so
// parent directories staged via create_folder land before their
// children, matching the ancestor-auto-creation invariant save()
// guarantees on write.
func (ar *Archive) ExtractAll(env HostEnv, dst string) error {
	for _, h := range ar.entries {
		entry, err := decodeEntry(ar.ra, h, ar.dsp, ar.password)
		if err != nil {
			return fmt.Errorf("extracting %q: %w", h.Name, err)
		}
		full := joinArchivePath(dst, entry.Name)
		if entry.IsDirectory {
			if err := env.MkdirAll(full, h.Mode()); err != nil {
				return err
			}
			continue
		}
		if err := env.WriteFile(full, h.Mode(), entry.Payload); err != nil {
			return err
		}
	}
	return nil
}
