package zipkit

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// stagedEntry is one row of an EditableArchive's mutable table: the
// decoded, not-yet-encoded view of a member plus the knobs save() needs
// to re-encode it. Spec §3/§5.
type stagedEntry struct {
	name       string
	isDir      bool
	method     CompressionMethod
	level      CompressionLevel
	encryption EncryptionMethod
	modTime    time.Time
	comment    string
	payload    []byte
	platform   Platform
	attrs      uint32
}

// EditableArchive is the create/add/edit/remove/save archive model,
// grounded on original_source/zippy/_base_classes.py's NewArchive.
// Entries are kept in an ordered slice (table order is preserve-on-save
// order) plus a name index, mirroring the teacher's own
// `names map[string]int` convention from
// Mr-XiaoLei-apk-editor/editor/zip/writer.go's Writer.
type EditableArchive struct {
	env      HostEnv
	dsp      *Dispatcher
	password string
	comment  string
	encoding string
	index    map[string]int
	entries  []*stagedEntry
}

// NewEditableArchive returns an empty archive staged for construction.
// A nil env defaults to the real filesystem (NewOSHostEnv).
func NewEditableArchive(env HostEnv) *EditableArchive {
	if env == nil {
		env = NewOSHostEnv()
	}
	return &EditableArchive{
		env:   env,
		dsp:   NewDispatcher(),
		index: make(map[string]int),
	}
}

// SetPassword sets the ZipCrypto password. Entries staged while the
// password is non-empty are marked for encryption, entries staged while
// it is empty are not, and EditFile keeps an entry's existing mode. Every
// entry marked for encryption is encrypted under the password in effect
// when Save or Compose runs.
func (a *EditableArchive) SetPassword(password string) { a.password = password }

// SetComment sets the archive-level comment written at save time.
func (a *EditableArchive) SetComment(c string) { a.comment = c }

// SetEncoding sets the character encoding ("" or "utf-8" for UTF-8,
// "cp437"/"ibm437" for the legacy DOS code page) that member names and
// comments are written in at Save/Compose time (spec §6). It must be
// called before Save/Compose; changing it afterward has no effect on
// already-written output.
func (a *EditableArchive) SetEncoding(encoding string) { a.encoding = encoding }

// Dispatcher exposes the archive's compression dispatcher for codec
// registration (spec §4.5's "compression primitives are external
// collaborators").
func (a *EditableArchive) Dispatcher() *Dispatcher { return a.dsp }

func normalizeName(name string, isDir bool) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if !validArchiveName(name) {
		return "", fmt.Errorf("%w: %q", ErrIllegalPath, name)
	}
	name = path.Clean(name)
	if isDir && !strings.HasSuffix(name, "/") {
		name += "/"
	}
	return name, nil
}

// ensureAncestors auto-creates any missing parent directory entries for
// name, the ancestor-directory auto-creation invariant spec §3/§5
// describes for add_file/add_folder.
func (a *EditableArchive) ensureAncestors(name string) {
	dir := path.Dir(strings.TrimSuffix(name, "/"))
	if dir == "." || dir == "/" {
		return
	}
	parts := strings.Split(dir, "/")
	var prefix string
	for _, p := range parts {
		if p == "" {
			continue
		}
		prefix += p + "/"
		if _, ok := a.index[prefix]; !ok {
			a.put(&stagedEntry{
				name:    prefix,
				isDir:   true,
				method:  Stored,
				modTime: time.Now(),
			})
		}
	}
}

// put inserts or replaces the staged entry for e.name, preserving table
// position on replace.
func (a *EditableArchive) put(e *stagedEntry) {
	if i, ok := a.index[e.name]; ok {
		a.entries[i] = e
		return
	}
	a.index[e.name] = len(a.entries)
	a.entries = append(a.entries, e)
}

// CreateFile stages a new file entry with content taken directly from
// memory. Spec §5 create_file.
func (a *EditableArchive) CreateFile(name string, content []byte, method CompressionMethod, level CompressionLevel, comment string) error {
	name, err := normalizeName(name, false)
	if err != nil {
		return err
	}
	a.ensureAncestors(name)
	platform, attrs := a.env.Platform(), uint32(0)
	a.put(&stagedEntry{
		name:       name,
		method:     method,
		level:      level,
		encryption: a.encryptionMode(),
		modTime:    time.Now(),
		comment:    comment,
		payload:    content,
		platform:   platform,
		attrs:      attrs,
	})
	return nil
}

func (a *EditableArchive) encryptionMode() EncryptionMethod {
	if a.password != "" {
		return TraditionalZipCrypto
	}
	return Unencrypted
}

// AddFile stages a new file entry read from diskPath via the host
// environment. Spec §5 add_file.
func (a *EditableArchive) AddFile(name, diskPath string, method CompressionMethod, level CompressionLevel, comment string) error {
	content, err := a.env.ReadFile(diskPath)
	if err != nil {
		return err
	}
	info, err := a.env.Stat(diskPath)
	if err != nil {
		return err
	}
	name, err = normalizeName(name, false)
	if err != nil {
		return err
	}
	a.ensureAncestors(name)
	a.put(&stagedEntry{
		name:       name,
		method:     method,
		level:      level,
		encryption: a.encryptionMode(),
		modTime:    info.ModTime(),
		comment:    comment,
		payload:    content,
		platform:   a.env.Platform(),
		attrs:      a.env.FileMode(info),
	})
	return nil
}

// CreateFolder stages an empty directory entry. Spec §5 create_folder.
func (a *EditableArchive) CreateFolder(name string) error {
	name, err := normalizeName(name, true)
	if err != nil {
		return err
	}
	a.ensureAncestors(name)
	a.put(&stagedEntry{name: name, isDir: true, method: Stored, modTime: time.Now(), platform: a.env.Platform()})
	return nil
}

// folderFile is one file discovered under a disk folder during
// AddFolder's walk, read into memory by a worker goroutine.
type folderFile struct {
	archiveName string
	diskPath    string
	isDir       bool
	content     []byte
	modTime     time.Time
	attrs       uint32
}

// AddFolder stages every file and directory under diskPath beneath
// destName, reading files in parallel. Spec §5 add_folder / §9's
// redesign note replacing the original's multiprocessing with a
// goroutine worker pool (golang.org/x/sync/errgroup), the results of
// which are merged back into the table sequentially so table order stays
// deterministic regardless of which worker finishes first.
func (a *EditableArchive) AddFolder(destName, diskPath string, method CompressionMethod, level CompressionLevel, comment string) error {
	destName, err := normalizeName(destName, true)
	if err != nil {
		return err
	}

	var discovered []folderFile
	err = a.env.Walk(diskPath, func(p string, info os.FileInfo) error {
		rel := strings.TrimPrefix(strings.TrimPrefix(p, diskPath), "/")
		archiveName := destName + rel
		discovered = append(discovered, folderFile{
			archiveName: archiveName,
			diskPath:    p,
			isDir:       info.IsDir(),
			modTime:     info.ModTime(),
			attrs:       a.env.FileMode(info),
		})
		return nil
	})
	if err != nil {
		return err
	}

	g := new(errgroup.Group)
	for i := range discovered {
		i := i
		if discovered[i].isDir {
			continue
		}
		g.Go(func() error {
			content, err := a.env.ReadFile(discovered[i].diskPath)
			if err != nil {
				return err
			}
			discovered[i].content = content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	a.ensureAncestors(destName)
	a.put(&stagedEntry{name: destName, isDir: true, method: Stored, modTime: time.Now(), platform: a.env.Platform()})
	for _, f := range discovered {
		name := f.archiveName
		if f.isDir {
			name, _ = normalizeName(name, true)
			a.ensureAncestors(name)
			a.put(&stagedEntry{name: name, isDir: true, method: Stored, modTime: f.modTime, platform: a.env.Platform(), attrs: f.attrs})
			continue
		}
		a.ensureAncestors(name)
		a.put(&stagedEntry{
			name:       name,
			method:     method,
			level:      level,
			encryption: a.encryptionMode(),
			modTime:    f.modTime,
			comment:    comment,
			payload:    f.content,
			platform:   a.env.Platform(),
			attrs:      f.attrs,
		})
	}
	return nil
}

// AddFromArchive opens src, filters its decoded entries to those whose
// name starts with subtree (an exact member name is itself a singleton
// subtree), and re-inserts each one under destPrefix in place of its
// subtree prefix. Spec §5 add_from_archive / S8.
func (a *EditableArchive) AddFromArchive(src *Archive, subtree, destPrefix string) error {
	entries, err := src.PeekAll()
	if err != nil {
		return err
	}

	var matched []*DecodedEntry
	for _, d := range entries {
		if d.Name == subtree || strings.HasPrefix(d.Name, subtree) {
			matched = append(matched, d)
		}
	}
	if len(matched) == 0 {
		return fmt.Errorf("%w: %q", ErrFileNotFound, subtree)
	}

	for _, decoded := range matched {
		rel := strings.TrimPrefix(decoded.Name, subtree)
		destName := destPrefix
		if rel != "" {
			destName = strings.TrimSuffix(destPrefix, "/") + "/" + rel
		}
		destName, err = normalizeName(destName, decoded.IsDirectory)
		if err != nil {
			return err
		}
		a.ensureAncestors(destName)
		a.put(&stagedEntry{
			name:       destName,
			isDir:      decoded.IsDirectory,
			method:     decoded.Compression,
			level:      decoded.Level,
			encryption: decoded.Encryption,
			modTime:    timeOrNow(decoded.LastModTime),
			comment:    decoded.Comment,
			payload:    decoded.Payload,
			platform:   a.env.Platform(),
		})
	}
	return nil
}

func timeOrNow(t *time.Time) time.Time {
	if t == nil {
		return time.Now()
	}
	return *t
}

// EditFile replaces the content of an already-staged file entry. Spec §5
// edit_file.
func (a *EditableArchive) EditFile(name string, content []byte) error {
	name, err := normalizeName(name, false)
	if err != nil {
		return err
	}
	i, ok := a.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrFileNotFound, name)
	}
	if a.entries[i].isDir {
		return fmt.Errorf("%w: %q is a directory", ErrIllegalPath, name)
	}
	a.entries[i].payload = content
	a.entries[i].modTime = time.Now()
	return nil
}

// Remove deletes name (and, if it names a directory, every entry nested
// beneath it) from the staged table. Spec §5 remove/remove_file/remove_folder;
// §4.8 specifies that an empty path removes everything.
func (a *EditableArchive) Remove(name string) error {
	if name == "" {
		a.entries = nil
		a.index = make(map[string]int)
		return nil
	}

	dirName, _ := normalizeName(name, true)
	plainName, _ := normalizeName(name, false)
	if _, ok := a.index[plainName]; ok {
		name = plainName
	} else if _, ok := a.index[dirName]; ok {
		name = dirName
	} else {
		return fmt.Errorf("%w: %q", ErrFileNotFound, name)
	}

	kept := a.entries[:0:0]
	for _, e := range a.entries {
		if e.name == name || (strings.HasSuffix(name, "/") && strings.HasPrefix(e.name, name)) {
			continue
		}
		kept = append(kept, e)
	}
	a.entries = kept
	a.index = make(map[string]int, len(a.entries))
	for i, e := range a.entries {
		a.index[e.name] = i
	}
	return nil
}

// GetStructure returns every staged member name in table order, the
// counterpart of zippy's get_structure.
func (a *EditableArchive) GetStructure() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.name
	}
	return names
}

// Save encodes (compress, then optionally encrypt) every staged entry
// and writes the full container to w: LFHs in table order, a trailing
// central directory, and an EOCD. Per spec §9's resolution of the
// "offset zeroed at insert, fixed at save" Open Question, every entry
// stages with offset 0 and real offsets are assigned only here.
func (a *EditableArchive) Save(w io.Writer) error {
	// Entries are already in ancestors-before-children order: ensureAncestors
	// inserts a directory's entry before the put() of anything nested under
	// it, so table order alone satisfies the invariant without re-sorting.
	sorted := a.entries

	cw := &countWriter{w: w}
	central := make([]*CentralHeader, 0, len(sorted))

	for _, e := range sorted {
		encoded, flags, versionNeeded, err := a.encodeEntry(e)
		if err != nil {
			return fmt.Errorf("encoding %q: %w", e.name, err)
		}
		nameBytes, commentBytes, err := a.encodeNameAndComment(e)
		if err != nil {
			return fmt.Errorf("encoding name/comment of %q: %w", e.name, err)
		}
		modDate, modTime := timeToMsDosTime(e.modTime)
		offset := uint64(cw.count)

		raw := &RawEntry{
			VersionNeeded:    versionNeeded,
			Flags:            flags,
			Method:           e.method,
			ModTime:          modTime,
			ModDate:          modDate,
			CRC32:            crcOf(e.payload),
			CompressedSize:   uint64(len(encoded)),
			UncompressedSize: uint64(len(e.payload)),
			Name:             e.name,
			NameBytes:        nameBytes,
			Payload:          encoded,
		}
		if err := writeLocalHeader(cw, raw); err != nil {
			return err
		}

		central = append(central, &CentralHeader{
			VersionMadeBy:     zipVersion20,
			Platform:          e.platform,
			VersionNeeded:     versionNeeded,
			Flags:             flags,
			Method:            e.method,
			ModTime:           modTime,
			ModDate:           modDate,
			CRC32:             raw.CRC32,
			CompressedSize:    raw.CompressedSize,
			UncompressedSize:  raw.UncompressedSize,
			Name:              e.name,
			NameBytes:         nameBytes,
			Comment:           e.comment,
			CommentBytes:      commentBytes,
			ExternalAttrs:     e.attrs,
			LocalHeaderOffset: offset,
		})
	}

	_, err := writeCentralDirectoryTable(cw.count, central, cw, a.comment)
	return err
}

// encodeEntry compresses e.payload with the dispatcher, then encrypts
// the result with ZipCrypto if e.encryption requires it, and returns the
// final on-disk bytes plus the flags/version_needed the header must
// carry.
func (a *EditableArchive) encodeEntry(e *stagedEntry) (encoded []byte, flags uint16, versionNeeded uint16, err error) {
	versionNeeded = versionNeededFor(e.method, e.isDir, e.encryption)
	if e.isDir {
		return nil, prepareHeaderFlags(e.name, e.comment, 0, isUTF8Encoding(a.encoding)), versionNeeded, nil
	}

	var buf bytes.Buffer
	comp, err := a.dsp.compressor(e.method)
	if err != nil {
		return nil, 0, 0, err
	}
	cw, err := comp(&buf, e.level)
	if err != nil {
		return nil, 0, 0, err
	}
	if _, err := cw.Write(e.payload); err != nil {
		return nil, 0, 0, err
	}
	if err := cw.Close(); err != nil {
		return nil, 0, 0, err
	}
	encoded = buf.Bytes()

	switch e.level {
	case LevelMaximum:
		flags |= flagLevelMaximum
	case LevelFast:
		flags |= flagLevelFast
	case LevelSuperFast:
		flags |= flagLevelMaximum | flagLevelFast
	}

	if e.encryption == TraditionalZipCrypto {
		var encBuf bytes.Buffer
		zw, err := newZipCryptoWriter(&encBuf, a.password, crcOf(e.payload))
		if err != nil {
			return nil, 0, 0, err
		}
		if err := zw.writeRaw(encoded); err != nil {
			return nil, 0, 0, err
		}
		encoded = encBuf.Bytes()
		flags |= flagEncrypted
	}

	flags = prepareHeaderFlags(e.name, e.comment, flags, isUTF8Encoding(a.encoding))
	return encoded, flags, versionNeeded, nil
}

// encodeNameAndComment renders e's name/comment to wire bytes per the
// archive's encoding (spec §6), for file and directory entries alike.
func (a *EditableArchive) encodeNameAndComment(e *stagedEntry) (name, comment []byte, err error) {
	if name, err = encodeText(e.name, a.encoding); err != nil {
		return nil, nil, err
	}
	if comment, err = encodeText(e.comment, a.encoding); err != nil {
		return nil, nil, err
	}
	return name, comment, nil
}
