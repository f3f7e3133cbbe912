package zipkit

import (
	"fmt"
	"io"
	"time"
)

// decodeEntry turns a CentralHeader plus its raw local-header payload
// into a fully materialized DecodedEntry: decrypt (if the encrypted bit
// is set), decompress per the dispatcher, and verify CRC-32. Used by
// both the read-only façade (PeekAll/ExtractAll) and the editable
// model's add_from_archive, which must re-decode a source entry before
// it can be re-staged under a new name.
func decodeEntry(ra io.ReaderAt, h *CentralHeader, dsp *Dispatcher, password string) (*DecodedEntry, error) {
	if h.Flags&flagCDEncrypted != 0 {
		return nil, ErrCDEncrypted
	}
	raw, err := localPayload(ra, h)
	if err != nil {
		return nil, err
	}

	var r io.Reader = raw
	encryption := Unencrypted
	if h.Flags&flagEncrypted != 0 {
		expectedCRC := h.CRC32
		if h.Flags&flagDataDescriptor != 0 {
			expectedCRC = uint32(h.ModTime)<<16 | uint32(h.ModDate)
		}
		zr, err := newZipCryptoReader(raw, password, expectedCRC)
		if err != nil {
			return nil, err
		}
		r = io.LimitReader(zr, int64(h.CompressedSize)-12)
		encryption = TraditionalZipCrypto
	}

	decomp, err := dsp.decompressor(h.Method)
	if err != nil {
		return nil, err
	}
	dr, err := decomp(r)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", h.Name, err)
	}
	defer dr.Close()

	payload, err := io.ReadAll(newChecksumReader(dr, int64(h.UncompressedSize), h.CRC32))
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", h.Name, err)
	}

	var modTime *time.Time
	if t, ok := msDosTimeToTime(h.ModDate, h.ModTime); ok {
		modTime = &t
	}

	level := LevelNormal
	switch {
	case h.Flags&(flagLevelMaximum|flagLevelFast) == flagLevelMaximum:
		level = LevelMaximum
	case h.Flags&(flagLevelMaximum|flagLevelFast) == flagLevelFast:
		level = LevelFast
	case h.Flags&(flagLevelMaximum|flagLevelFast) == (flagLevelMaximum | flagLevelFast):
		level = LevelSuperFast
	}

	return &DecodedEntry{
		Name:             h.Name,
		IsDirectory:      len(h.Name) > 0 && h.Name[len(h.Name)-1] == '/',
		Encryption:       encryption,
		Compression:      h.Method,
		Level:            level,
		LastModTime:      modTime,
		CRC32:            h.CRC32,
		CompressedSize:   h.CompressedSize,
		UncompressedSize: h.UncompressedSize,
		Payload:          payload,
		Comment:          h.Comment,
		Extras:           parseExtra(h.Extra),
	}, nil
}
