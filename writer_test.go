// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipkit

import (
	"bytes"
	"testing"
)

func TestWriteLocalHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		e    *RawEntry
	}{
		{"small stored", &RawEntry{VersionNeeded: zipVersion20, Method: Stored, Name: "a.txt", Payload: []byte("hi")}},
		{"deflate method", &RawEntry{VersionNeeded: zipVersion20, Method: Deflate, Name: "b.bin", Payload: []byte{1, 2, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.e.CompressedSize = uint64(len(tt.e.Payload))
			tt.e.UncompressedSize = uint64(len(tt.e.Payload))
			var buf bytes.Buffer
			if err := writeLocalHeader(&buf, tt.e); err != nil {
				t.Fatalf("writeLocalHeader: %v", err)
			}

			b := readBuf(buf.Bytes())
			if sig := b.uint32(); sig != fileHeaderSignature {
				t.Fatalf("bad signature %x", sig)
			}
			b.uint16() // version needed
			b.uint16() // flags
			gotMethod := CompressionMethod(b.uint16())
			if gotMethod != tt.e.Method {
				t.Errorf("method = %v, want %v", gotMethod, tt.e.Method)
			}
			b.uint16() // mod time
			b.uint16() // mod date
			b.uint32() // crc32
			gotComp := b.uint32()
			gotUncomp := b.uint32()
			if uint64(gotComp) != tt.e.CompressedSize || uint64(gotUncomp) != tt.e.UncompressedSize {
				t.Errorf("sizes = (%d, %d), want (%d, %d)", gotComp, gotUncomp, tt.e.CompressedSize, tt.e.UncompressedSize)
			}
			nameLen := b.uint16()
			if string(b.bytes(int(nameLen))) != tt.e.Name {
				t.Errorf("name mismatch")
			}
		})
	}
}

func TestWriteCentralDirectoryTableZip64Promotion(t *testing.T) {
	dir := []*CentralHeader{
		{Name: "big.bin", CompressedSize: uint32max + 1, UncompressedSize: uint32max + 1, Method: Stored},
	}
	// The central directory follows the entry's >4 GiB payload, so its
	// offset overflows 32 bits as well.
	start := int64(uint32max) + 1
	var buf bytes.Buffer
	rec, err := writeCentralDirectoryTable(start, dir, &buf, "")
	if err != nil {
		t.Fatalf("writeCentralDirectoryTable: %v", err)
	}
	if rec.TotalCDEntries != uint16max {
		t.Errorf("expected zip64 sentinel TotalCDEntries, got %d", rec.TotalCDEntries)
	}
	if !bytes.Contains(buf.Bytes(), []byte{0x50, 0x4b, 0x06, 0x06}) {
		t.Error("expected zip64 end of central directory signature in output")
	}
}
