package zipkit

import (
	"bytes"
	"fmt"
	"io"
)

// readEOCD scans backward from the end of ra for the EOCD signature,
// tolerating a trailing archive comment of up to 65535 bytes, then
// promotes to the ZIP64 locator/EOCD64 pair when present. Grounded on
// elliotnunn-BeHierarchic/internal/zip/zip.go's getEOCD.
func readEOCD(ra io.ReaderAt, size int64) (*EndRecord, int64, error) {
	window := int64(directoryEndLen + uint16max)
	if window > size {
		window = size
	}
	buf, err := readAtFull(ra, size-window, int(window))
	if err != nil {
		return nil, 0, err
	}

	idx := bytes.LastIndex(buf, []byte{0x50, 0x4b, 0x05, 0x06})
	if idx < 0 {
		return nil, 0, fmt.Errorf("%w: end of central directory not found", ErrFormat)
	}
	eocdOffset := size - window + int64(idx)
	if len(buf)-idx < directoryEndLen {
		more, err := readAtFull(ra, eocdOffset, directoryEndLen)
		if err != nil {
			return nil, 0, err
		}
		buf = more
		idx = 0
	}

	b := readBuf(buf[idx:])
	b.uint32() // signature
	b.uint16() // disk num
	b.uint16() // disk num with CD
	rec := &EndRecord{}
	rec.TotalEntries = b.uint16()
	rec.TotalCDEntries = b.uint16()
	rec.SizeOfCD = uint64(b.uint32())
	rec.OffsetOfCD = uint64(b.uint32())
	commentLen := b.uint16()
	commentStart := eocdOffset + directoryEndLen
	if commentStart+int64(commentLen) <= size {
		comment, err := readAtFull(ra, commentStart, int(commentLen))
		if err == nil {
			rec.Comment = string(comment)
		}
	}

	if rec.TotalCDEntries == uint16max || rec.SizeOfCD == uint32max || rec.OffsetOfCD == uint32max {
		locOffset := eocdOffset - directory64LocLen
		if locOffset >= 0 {
			locBuf, err := readAtFull(ra, locOffset, directory64LocLen)
			if err == nil {
				lb := readBuf(locBuf)
				if lb.uint32() == directory64LocSignature {
					lb.uint32() // disk with zip64 EOCD
					zip64EOCDOffset := int64(lb.uint64())
					endBuf, err := readAtFull(ra, zip64EOCDOffset, directory64EndLen)
					if err == nil {
						eb := readBuf(endBuf)
						if eb.uint32() == directory64EndSignature {
							eb.uint64() // record size
							eb.uint16() // version made by
							eb.uint16() // version needed
							eb.uint32() // disk num
							eb.uint32() // disk with CD
							totalThisDisk := eb.uint64()
							rec.TotalEntries = uint16(totalThisDisk)
							total := eb.uint64()
							rec.TotalCDEntries = uint16(total)
							rec.SizeOfCD = eb.uint64()
							rec.OffsetOfCD = eb.uint64()
							_ = totalThisDisk
						}
					}
				}
			}
		}
	}

	return rec, eocdOffset, nil
}

// readCentralDirectory walks the count entries of the central directory
// starting at offset off, decoding each CentralHeader and promoting
// ZIP64 extras. Grounded on the 46-byte fixed CDH prefix cross-checked
// against other_examples/55d8a102_ASchurman-zip/zip.go and the
// elliotnunn-BeHierarchic ZIP64-extra promotion loop, restructured here
// as a pure decode (no pointer rewriting) per spec §9.
func readCentralDirectory(ra io.ReaderAt, off int64, count uint64, archiveSize int64, encoding string) ([]*CentralHeader, error) {
	entries := make([]*CentralHeader, 0, count)
	pos := off
	for i := uint64(0); count == 0 || i < count; i++ {
		if pos+4 > archiveSize {
			break
		}
		sig, err := readAtFull(ra, pos, 4)
		if err != nil {
			return nil, err
		}
		if readBuf(sig).uint32() != directoryHeaderSignature {
			if count == 0 {
				break
			}
			return nil, fmt.Errorf("%w: bad central directory signature at entry %d", ErrFormat, i)
		}

		prefix, err := readAtFull(ra, pos, directoryHeaderLen)
		if err != nil {
			return nil, err
		}
		b := readBuf(prefix)
		b.uint32() // signature
		versionMadeBy := b.uint16()
		h := &CentralHeader{
			VersionMadeBy: uint8(versionMadeBy),
			Platform:      Platform(versionMadeBy >> 8),
			VersionNeeded: b.uint16(),
			Flags:         b.uint16(),
			Method:        CompressionMethod(b.uint16()),
			ModTime:       b.uint16(),
			ModDate:       b.uint16(),
			CRC32:         b.uint32(),
		}
		compSize := uint64(b.uint32())
		uncompSize := uint64(b.uint32())
		nameLen := int(b.uint16())
		extraLen := int(b.uint16())
		commentLen := int(b.uint16())
		h.DiskNumberStart = b.uint16()
		h.InternalAttrs = b.uint16()
		h.ExternalAttrs = b.uint32()
		localOffset := uint64(b.uint32())

		varLen := nameLen + extraLen + commentLen
		rest, err := readAtFull(ra, pos+directoryHeaderLen, varLen)
		if err != nil {
			return nil, err
		}
		rb := readBuf(rest)
		nameRaw := rb.bytes(nameLen)
		h.Extra = rb.bytes(extraLen)
		commentRaw := rb.bytes(commentLen)
		if h.Flags&flagUTF8 != 0 {
			h.Name = string(nameRaw)
			h.Comment = string(commentRaw)
		} else {
			var err error
			if h.Name, err = decodeText(nameRaw, encoding); err != nil {
				return nil, fmt.Errorf("decoding name of entry %d: %w", i, err)
			}
			if h.Comment, err = decodeText(commentRaw, encoding); err != nil {
				return nil, fmt.Errorf("decoding comment of entry %d: %w", i, err)
			}
		}

		extras := parseExtra(h.Extra)
		if z, ok := extras[zip64ExtraID]; ok {
			zz := parseZip64Extra(z,
				uncompSize == uint32max,
				compSize == uint32max,
				localOffset == uint32max,
				h.DiskNumberStart == uint16max)
			if uncompSize == uint32max {
				uncompSize = zz.UncompressedSize
			}
			if compSize == uint32max {
				compSize = zz.CompressedSize
			}
			if localOffset == uint32max {
				localOffset = zz.LocalHeaderOffset
			}
		}
		h.CompressedSize = compSize
		h.UncompressedSize = uncompSize
		h.LocalHeaderOffset = localOffset

		entries = append(entries, h)
		pos += int64(directoryHeaderLen + varLen)
	}
	return entries, nil
}

// localPayload locates entry h's local file header, checks its signature
// and (unless a data descriptor follows) that its CRC-32 equals the
// central directory's, and returns a section reader over its raw
// (compressed, possibly encrypted) payload bytes. Grounded on
// xenking-zipstream/reader.go's local-header-first sequential scan,
// adapted to random access since the central directory already carries
// every size the local header would otherwise only promise.
func localPayload(ra io.ReaderAt, h *CentralHeader) (*io.SectionReader, error) {
	prefix, err := readAtFull(ra, int64(h.LocalHeaderOffset), fileHeaderLen)
	if err != nil {
		return nil, err
	}
	b := readBuf(prefix)
	if b.uint32() != fileHeaderSignature {
		return nil, fmt.Errorf("%w: bad local file header for %q", ErrFormat, h.Name)
	}
	b.uint16() // version needed
	flags := b.uint16()
	b.uint16() // method
	b.uint16() // mod time
	b.uint16() // mod date
	crc := b.uint32()
	b.uint32() // compressed size
	b.uint32() // uncompressed size
	nameLen := int(b.uint16())
	extraLen := int(b.uint16())
	if flags&flagDataDescriptor == 0 && crc != h.CRC32 {
		return nil, fmt.Errorf("%w: local header crc-32 of %q differs from central directory", ErrCorrupted, h.Name)
	}

	payloadOffset := int64(h.LocalHeaderOffset) + fileHeaderLen + int64(nameLen) + int64(extraLen)
	return io.NewSectionReader(ra, payloadOffset, int64(h.CompressedSize)), nil
}
