package zipkit

import "errors"

// Sentinel errors, grouped by the kinds a caller needs to branch on.
// Use errors.Is to test for a specific kind; BadFile-family errors are
// further wrapped with fmt.Errorf("%w: ...") to carry diagnostic context.
var (
	// ErrFormat means the container is not a well-formed ZIP: bad
	// signature, truncated data, or inconsistent cross-field values.
	ErrFormat = errors.New("zipkit: not a valid zip file")

	// ErrCorrupted means a decoded entry's CRC-32 did not match either
	// its local or central header.
	ErrCorrupted = errors.New("zipkit: entry failed crc-32 check")

	// ErrUnknownVersion means a local or central header declares a
	// version_needed this reader does not recognize.
	ErrUnknownVersion = errors.New("zipkit: unknown version needed to extract")

	// ErrReservedMethod and ErrDeprecatedMethod sub-classify BadFile for
	// compression method ids the APPNOTE reserves or deprecates.
	ErrReservedMethod   = errors.New("zipkit: reserved compression method")
	ErrDeprecatedMethod = errors.New("zipkit: deprecated compression method")

	// ErrUnknownMethod and ErrNotImplemented cover method ids this
	// library has no codec for: unknown (APPNOTE doesn't define it) vs.
	// known-but-not-bundled (the dispatcher has a registration slot but
	// nothing is registered).
	ErrUnknownMethod = errors.New("zipkit: unknown compression method")
	ErrNotImplemented = errors.New("zipkit: compression method not implemented")

	// ErrWrongPassword means the ZipCrypto 12-byte header check failed.
	ErrWrongPassword = errors.New("zipkit: wrong password")

	// ErrFileNotFound means an editable-archive operation referenced a
	// path absent from the staged table (or, for disk-backed operations,
	// a source path absent from the filesystem).
	ErrFileNotFound = errors.New("zipkit: file not found")

	// ErrIllegalPath means a caller-supplied name uses a forbidden
	// character or the wrong path separator.
	ErrIllegalPath = errors.New("zipkit: illegal path")

	// ErrCDEncrypted means the archive sets the central-directory
	// encryption bit (13), which this core does not implement.
	ErrCDEncrypted = errors.New("zipkit: central directory encryption not supported")

	// ErrSpanned means the archive spans multiple disks/volumes.
	ErrSpanned = errors.New("zipkit: spanned archives not supported")
)
