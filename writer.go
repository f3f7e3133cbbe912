// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipkit

import (
	"errors"
	"io"
)

var (
	errLongName    = errors.New("zipkit: name too long")
	errLongExtra   = errors.New("zipkit: extra field too long")
	errLongComment = errors.New("zipkit: comment too long")
)

type countWriter struct {
	w     io.Writer
	count int64
}

func (w *countWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.count += int64(n)
	return n, err
}

// writeLocalHeaderPrefix emits one LFH followed by its name and extra
// field, but not the payload — split out from writeLocalHeader so
// Compose (compose.go) can reference an entry's already-encoded payload
// bytes as an independent go4.org/readerutil part instead of copying
// them into the same buffer as the header. Unlike the teacher's
// writeHeader, sizes and CRC-32 are always already known (spec §2's
// non-goal on streaming/unknown-size writes) so the LFH is written once,
// fully populated — no zeroed fields, no trailing data descriptor.
func writeLocalHeaderPrefix(w io.Writer, e *RawEntry) (err error) {
	name := e.nameBytes()
	if len(name) > uint16max {
		return errLongName
	}
	extra := e.Extra
	if e.isZip64() {
		extra = append(append([]byte{}, extra...), renderZip64Extra(e.UncompressedSize, e.CompressedSize, 0)...)
		e.VersionNeeded = promoteVersionNeeded(e.VersionNeeded, true)
	}
	if len(extra) > uint16max {
		return errLongExtra
	}

	var buf [fileHeaderLen]byte
	b := writeBuf(buf[:])
	b.uint32(fileHeaderSignature)
	b.uint16(e.VersionNeeded)
	b.uint16(e.Flags)
	b.uint16(uint16(e.Method))
	b.uint16(e.ModTime)
	b.uint16(e.ModDate)
	b.uint32(e.CRC32)
	if e.isZip64() {
		b.uint32(uint32max)
		b.uint32(uint32max)
	} else {
		b.uint32(uint32(e.CompressedSize))
		b.uint32(uint32(e.UncompressedSize))
	}
	b.uint16(uint16(len(name)))
	b.uint16(uint16(len(extra)))
	if _, err = w.Write(buf[:]); err != nil {
		return err
	}
	if _, err = w.Write(name); err != nil {
		return err
	}
	_, err = w.Write(extra)
	return err
}

// writeLocalHeader emits one LFH followed by its name, extra, and
// payload, in one shot. Used by EditableArchive.Save's sequential
// io.Writer path; Compose uses writeLocalHeaderPrefix directly.
func writeLocalHeader(w io.Writer, e *RawEntry) error {
	if err := writeLocalHeaderPrefix(w, e); err != nil {
		return err
	}
	_, err := w.Write(e.Payload)
	return err
}

// writeCentralDirectoryTable writes the central directory and the
// end-of-central-directory record (promoting to a ZIP64 locator/EOCD64
// pair when any field overflows), returning the EndRecord it wrote for
// inspection/testing. Grounded on the teacher's writeCentralDirectory,
// generalized from *header (teacher's FileHeader+offset pair) to
// *CentralHeader and from uint16 Method to CompressionMethod.
func writeCentralDirectoryTable(start int64, dir []*CentralHeader, w io.Writer, comment string) (*EndRecord, error) {
	if len(comment) > uint16max {
		return nil, errLongComment
	}

	cw := &countWriter{w: w}
	for _, h := range dir {
		name := h.nameBytes()
		comment := h.commentBytes()
		extra := h.Extra
		isZip64 := h.isZip64()
		h.VersionNeeded = promoteVersionNeeded(h.VersionNeeded, isZip64)
		var buf [directoryHeaderLen]byte
		b := writeBuf(buf[:])
		b.uint32(directoryHeaderSignature)
		b.uint16(uint16(h.Platform)<<8 | uint16(h.VersionMadeBy))
		b.uint16(h.VersionNeeded)
		b.uint16(h.Flags)
		b.uint16(uint16(h.Method))
		b.uint16(h.ModTime)
		b.uint16(h.ModDate)
		b.uint32(h.CRC32)
		offset := h.LocalHeaderOffset
		if isZip64 {
			b.uint32(uint32max)
			b.uint32(uint32max)
			extra = append(append([]byte{}, extra...), renderZip64Extra(h.UncompressedSize, h.CompressedSize, offset)...)
			if offset > uint32max {
				offset = uint32max
			}
		} else {
			b.uint32(uint32(h.CompressedSize))
			b.uint32(uint32(h.UncompressedSize))
		}
		b.uint16(uint16(len(name)))
		b.uint16(uint16(len(extra)))
		b.uint16(uint16(len(comment)))
		b.uint16(h.DiskNumberStart)
		b.uint16(h.InternalAttrs)
		b.uint32(h.ExternalAttrs)
		b.uint32(uint32(offset))
		if _, err := cw.Write(buf[:]); err != nil {
			return nil, err
		}
		if _, err := cw.Write(name); err != nil {
			return nil, err
		}
		if _, err := cw.Write(extra); err != nil {
			return nil, err
		}
		if _, err := cw.Write(comment); err != nil {
			return nil, err
		}
	}

	size := uint64(cw.count)
	end := uint64(start) + size
	records := uint64(len(dir))
	offset := uint64(start)

	rec := &EndRecord{
		TotalEntries:   uint16(records),
		TotalCDEntries: uint16(records),
		SizeOfCD:       size,
		OffsetOfCD:     offset,
		Comment:        comment,
	}

	if records >= uint16max || size >= uint32max || offset >= uint32max {
		var buf [directory64EndLen + directory64LocLen]byte
		b := writeBuf(buf[:])

		b.uint32(directory64EndSignature)
		b.uint64(directory64EndLen - 12)
		b.uint16(zipVersion45)
		b.uint16(zipVersion45)
		b.uint32(0)
		b.uint32(0)
		b.uint64(records)
		b.uint64(records)
		b.uint64(size)
		b.uint64(offset)

		b.uint32(directory64LocSignature)
		b.uint32(0)
		b.uint64(end)
		b.uint32(1)

		if _, err := cw.Write(buf[:]); err != nil {
			return nil, err
		}

		rec.TotalEntries = uint16max
		rec.TotalCDEntries = uint16max
		records = uint16max
		size = uint32max
		offset = uint32max
	}

	var buf [directoryEndLen]byte
	b := writeBuf(buf[:])
	b.uint32(directoryEndSignature)
	b.uint16(0)
	b.uint16(0)
	b.uint16(uint16(records))
	b.uint16(uint16(records))
	b.uint32(uint32(size))
	b.uint32(uint32(offset))
	b.uint16(uint16(len(comment)))
	if _, err := cw.Write(buf[:]); err != nil {
		return nil, err
	}
	if _, err := io.WriteString(cw, comment); err != nil {
		return nil, err
	}

	return rec, nil
}

// prepareHeaderFlags sets the UTF-8 flag for a fresh entry, the same
// decision the teacher's prepareEntry makes for FileHeader. Per spec §6,
// when the archive's encoding has been overridden away from UTF-8 the
// bit must never be set, since the wire bytes are no longer UTF-8 by
// construction (isUTF8Encoding is false in that case).
func prepareHeaderFlags(name, comment string, flags uint16, isUTF8Encoding bool) uint16 {
	if !isUTF8Encoding {
		return flags
	}
	utf8Valid1, utf8Require1 := detectUTF8(name)
	utf8Valid2, utf8Require2 := detectUTF8(comment)
	if (utf8Require1 || utf8Require2) && utf8Valid1 && utf8Valid2 {
		flags |= flagUTF8
	}
	return flags
}
