package zipkit

import "time"

// DecodedEntry is the user-facing, fully materialized view of one archive
// member: payload already decrypted and decompressed, checksum verified.
// It is produced once by decodeEntry and never mutated afterward (spec
// §3's "DecodedEntry is created by the reader during open; it is
// immutable thereafter"). Grounded on zippy's ZipInfo-plus-decoded-bytes
// pair, split here into the parsed CentralHeader (struct.go) and this
// purely-decoded view per spec §9's "separate LocalFileHeader,
// DecodeRequest and DecodedEntry" redesign note.
type DecodedEntry struct {
	Name        string
	IsDirectory bool

	Encryption  EncryptionMethod
	Compression CompressionMethod
	Level       CompressionLevel

	// LastModTime is nil when the DOS date/time fields encode a value
	// msDosTimeToTime rejects as out of range (spec §4.2).
	LastModTime *time.Time

	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64

	Payload []byte
	Comment string

	// Extras is the member's raw extra-field records keyed by tag id,
	// e.g. 0x0001 (ZIP64), 0x000A (NTFS), 0x000D (UNIX). The ZIP64
	// record's fields are already promoted into CompressedSize/
	// UncompressedSize above; Extras carries it only for callers that
	// want the untouched bytes.
	Extras map[uint16][]byte
}
