package zipkit

import (
	"io"
	"os"
)

// Input is the tagged union of ways a caller can hand content to
// CreateFileFrom/EditFileFrom: in-memory bytes, a string, a path to read from
// disk, or an already-open stream. Spec §9's "tagged input union"
// redesign note: a small closed interface with unexported marker
// methods, rather than an `interface{}` the caller has to type-switch on
// blind.
type Input interface {
	isInput()
}

// Bytes is raw in-memory content.
type Bytes []byte

func (Bytes) isInput() {}

// Text is in-memory content given as a string.
type Text string

func (Text) isInput() {}

// File names a path to read content from via the archive's HostEnv.
type File string

func (File) isInput() {}

// Stream is content read from an already-open io.Reader.
type Stream struct{ R io.Reader }

func (Stream) isInput() {}

// resolveInput materializes an Input into bytes, the single point every
// content-accepting operation funnels through.
func resolveInput(env HostEnv, in Input) ([]byte, error) {
	switch v := in.(type) {
	case Bytes:
		return v, nil
	case Text:
		return []byte(v), nil
	case File:
		return env.ReadFile(string(v))
	case Stream:
		return io.ReadAll(v.R)
	default:
		return nil, ErrIllegalPath
	}
}

// New returns an empty EditableArchive, the Go counterpart of zippy's
// Archive.new static constructor.
func New(env HostEnv) *EditableArchive {
	return NewEditableArchive(env)
}

// OpenFile opens path from disk and parses it as an Archive, using
// encoding ("" for UTF-8) for members without the UTF-8 flag set. The
// returned close function must be called once the Archive is no longer
// needed.
func OpenFile(path, encoding string) (ar *Archive, closeFn func() error, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	ar, err = Open(f, info.Size(), encoding)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return ar, f.Close, nil
}

// Edit decodes every member of src and stages it into a fresh
// EditableArchive, the Go counterpart of zippy's Archive.edit: the
// returned archive can be mutated with CreateFile/AddFile/Remove/etc
// and written back out with Save.
func Edit(src *Archive, env HostEnv) (*EditableArchive, error) {
	entries, err := src.PeekAll()
	if err != nil {
		return nil, err
	}
	a := NewEditableArchive(env)
	a.password = src.password
	a.comment = src.comment
	a.encoding = src.encoding
	for _, d := range entries {
		a.ensureAncestors(d.Name)
		a.put(&stagedEntry{
			name:       d.Name,
			isDir:      d.IsDirectory,
			method:     d.Compression,
			level:      d.Level,
			encryption: d.Encryption,
			modTime:    timeOrNow(d.LastModTime),
			comment:    d.Comment,
			payload:    d.Payload,
			platform:   a.env.Platform(),
		})
	}
	return a, nil
}

// CreateFileFrom is the Input-accepting counterpart of
// EditableArchive.CreateFile, letting callers pass Bytes/Text/File/Stream
// instead of a raw []byte.
func (a *EditableArchive) CreateFileFrom(name string, in Input, method CompressionMethod, level CompressionLevel, comment string) error {
	content, err := resolveInput(a.env, in)
	if err != nil {
		return err
	}
	return a.CreateFile(name, content, method, level, comment)
}

// EditFileFrom is the Input-accepting counterpart of
// EditableArchive.EditFile.
func (a *EditableArchive) EditFileFrom(name string, in Input) error {
	content, err := resolveInput(a.env, in)
	if err != nil {
		return err
	}
	return a.EditFile(name, content)
}
