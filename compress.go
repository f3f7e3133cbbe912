package zipkit

import (
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/therootcompany/xz"
)

// compressorFunc builds a WriteCloser that compresses everything written
// to it and flushes a complete stream on Close.
type compressorFunc func(w io.Writer, level CompressionLevel) (io.WriteCloser, error)

// decompressorFunc wraps a raw entry payload reader with a decompressing
// ReadCloser.
type decompressorFunc func(r io.Reader) (io.ReadCloser, error)

// deflateLevel maps the caller-facing level label to flate's numeric
// level (spec §4.5: Fast->3, Normal->6, Maximum->12, clamped to flate's
// 9-level ceiling since flate has no level above 9).
func deflateLevel(l CompressionLevel) int {
	switch l {
	case LevelFast, LevelSuperFast:
		return 3
	case LevelMaximum:
		return 9
	default:
		return 6
	}
}

// reservedMethods and deprecatedMethods sub-classify the BadFile cases
// the APPNOTE calls out for method ids this library will never implement
// (spec §4.5, §7).
var reservedMethods = map[CompressionMethod]bool{11: true, 13: true, 15: true, 17: true}
var deprecatedMethods = map[CompressionMethod]bool{6: true, 7: true, 20: true}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

var defaultDecompressors = map[CompressionMethod]decompressorFunc{
	Stored: func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	},
	Deflate: func(r io.Reader) (io.ReadCloser, error) {
		return flate.NewReader(r), nil
	},
	BZIP2: func(r io.Reader) (io.ReadCloser, error) {
		return bzip2.NewReader(r, nil)
	},
	Zstandard: func(r io.Reader) (io.ReadCloser, error) {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	},
	XZ: func(r io.Reader) (io.ReadCloser, error) {
		zr, err := xz.NewReader(r, xz.DefaultDictMax)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(zr), nil
	},
}

var defaultCompressors = map[CompressionMethod]compressorFunc{
	Stored: func(w io.Writer, _ CompressionLevel) (io.WriteCloser, error) {
		return nopWriteCloser{w}, nil
	},
	Deflate: func(w io.Writer, level CompressionLevel) (io.WriteCloser, error) {
		return flate.NewWriter(w, deflateLevel(level))
	},
	BZIP2: func(w io.Writer, _ CompressionLevel) (io.WriteCloser, error) {
		return bzip2.NewWriter(w, nil)
	},
	Zstandard: func(w io.Writer, _ CompressionLevel) (io.WriteCloser, error) {
		return zstd.NewWriter(w)
	},
}

// Dispatcher maps compression method ids to codecs. It mirrors the
// apk-editor Writer's compressors map/RegisterCompressor method, but
// keeps independent compress/decompress registries since this library
// reads archives it did not write (spec §4.5: "compression primitives
// are external collaborators").
//
// Deflate64, Imploding and LZ77 have no registered codec: no repo in the
// retrieval pack ships one, so those method ids are known to
// CompressionMethod.String but return ErrNotImplemented until a caller
// registers a codec of their own.
type Dispatcher struct {
	compressors   map[CompressionMethod]compressorFunc
	decompressors map[CompressionMethod]decompressorFunc
}

// NewDispatcher returns a Dispatcher pre-loaded with this library's
// bundled codecs (Stored, Deflate, BZIP2, Zstandard for both directions,
// plus XZ decode-only, since therootcompany/xz does not expose an
// encoder).
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		compressors:   map[CompressionMethod]compressorFunc{},
		decompressors: map[CompressionMethod]decompressorFunc{},
	}
}

// RegisterCompressor overrides or adds a compressor for method m.
func (d *Dispatcher) RegisterCompressor(m CompressionMethod, f func(w io.Writer, level CompressionLevel) (io.WriteCloser, error)) {
	d.compressors[m] = f
}

// RegisterDecompressor overrides or adds a decompressor for method m.
func (d *Dispatcher) RegisterDecompressor(m CompressionMethod, f func(r io.Reader) (io.ReadCloser, error)) {
	d.decompressors[m] = f
}

func (d *Dispatcher) compressor(m CompressionMethod) (compressorFunc, error) {
	if f, ok := d.compressors[m]; ok {
		return f, nil
	}
	if f, ok := defaultCompressors[m]; ok {
		return f, nil
	}
	return nil, classifyMethodErr(m)
}

func (d *Dispatcher) decompressor(m CompressionMethod) (decompressorFunc, error) {
	if f, ok := d.decompressors[m]; ok {
		return f, nil
	}
	if f, ok := defaultDecompressors[m]; ok {
		return f, nil
	}
	return nil, classifyMethodErr(m)
}

func classifyMethodErr(m CompressionMethod) error {
	if reservedMethods[m] {
		return fmt.Errorf("%w: method %d", ErrReservedMethod, m)
	}
	if deprecatedMethods[m] {
		return fmt.Errorf("%w: method %d", ErrDeprecatedMethod, m)
	}
	if m.String() != "unknown" {
		return fmt.Errorf("%w: method %d", ErrNotImplemented, m)
	}
	return fmt.Errorf("%w: method %d", ErrUnknownMethod, m)
}
