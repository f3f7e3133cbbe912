package zipkit

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateFileSaveOpenRoundTrip(t *testing.T) {
	lorem := bytes.Repeat([]byte("Lorem ipsum dolor sit amet. "), 95) // ~2700 bytes

	a := New(NewOSHostEnv())
	if err := a.CreateFile("lorem.txt", lorem, Deflate, LevelMaximum, "LOREM"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	a.SetComment("Lorem")

	var buf bytes.Buffer
	if err := a.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ar, err := Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ar.Comment() != "Lorem" {
		t.Errorf("archive comment = %q, want %q", ar.Comment(), "Lorem")
	}
	entries, err := ar.PeekAll()
	if err != nil {
		t.Fatalf("PeekAll: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if !bytes.Equal(e.Payload, lorem) {
		t.Errorf("payload mismatch")
	}
	if e.Comment != "LOREM" {
		t.Errorf("comment = %q, want LOREM", e.Comment)
	}
	if e.Compression != Deflate {
		t.Errorf("compression = %v, want Deflate", e.Compression)
	}
	if e.CRC32 != crcOf(lorem) {
		t.Errorf("crc mismatch")
	}
}

func TestStoredEmptyFileRoundTrip(t *testing.T) {
	a := New(NewOSHostEnv())
	if err := a.CreateFile("empty.txt", nil, Stored, LevelNormal, ""); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	var buf bytes.Buffer
	if err := a.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ar, err := Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	e, err := ar.Peek("empty.txt")
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if len(e.Payload) != 0 {
		t.Errorf("expected empty payload, got %d bytes", len(e.Payload))
	}
	if e.CRC32 != 0 {
		t.Errorf("expected crc 0, got %#x", e.CRC32)
	}
}

func TestCreateFolderStructure(t *testing.T) {
	a := New(NewOSHostEnv())
	if err := a.CreateFolder("test1/test2"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	got := a.GetStructure()
	want := []string{"test1/", "test1/test2/"}
	if len(got) != len(want) {
		t.Fatalf("GetStructure() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetStructure()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRemoveDescendants(t *testing.T) {
	a := New(NewOSHostEnv())
	if err := a.CreateFile("test1/test2/test.txt", []byte("TEXT"), Stored, LevelNormal, ""); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := a.Remove("test1/test2"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	got := a.GetStructure()
	if len(got) != 1 || got[0] != "test1/" {
		t.Errorf("GetStructure() = %v, want [test1/]", got)
	}
}

func TestRemoveFileNotFound(t *testing.T) {
	a := New(NewOSHostEnv())
	if err := a.Remove("nope"); err == nil {
		t.Fatal("expected error removing absent path")
	}
}

func TestRemoveEmptyPathClearsEverything(t *testing.T) {
	a := New(NewOSHostEnv())
	if err := a.CreateFolder("dir"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if err := a.CreateFile("dir/a.txt", []byte("hi"), Stored, LevelNormal, ""); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := a.Remove(""); err != nil {
		t.Fatalf("Remove(\"\"): %v", err)
	}
	if got := a.GetStructure(); len(got) != 0 {
		t.Errorf("GetStructure() after Remove(\"\") = %v, want empty", got)
	}
}

func TestCreateFileRejectsIllegalCharacters(t *testing.T) {
	a := New(NewOSHostEnv())
	for _, name := range []string{"a:b.txt", "q?.txt", "x*y.txt", `a"b.txt`} {
		if err := a.CreateFile(name, []byte("x"), Stored, LevelNormal, ""); err == nil {
			t.Errorf("CreateFile(%q) = nil error, want ErrIllegalPath", name)
		}
	}
}

func TestEditFileReplacesContent(t *testing.T) {
	a := New(NewOSHostEnv())
	if err := a.CreateFile("a.txt", []byte("v1"), Stored, LevelNormal, ""); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := a.EditFile("a.txt", []byte("v2")); err != nil {
		t.Fatalf("EditFile: %v", err)
	}
	var buf bytes.Buffer
	if err := a.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ar, err := Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	e, err := ar.Peek("a.txt")
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if string(e.Payload) != "v2" {
		t.Errorf("payload = %q, want v2", e.Payload)
	}
}

func TestEncryptedRoundTripAndWrongPassword(t *testing.T) {
	a := New(NewOSHostEnv())
	a.SetPassword("verysecurepassword")
	payload := []byte("top secret contents")
	if err := a.CreateFile("secret.txt", payload, Deflate, LevelNormal, ""); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	var buf bytes.Buffer
	if err := a.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ar, err := Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ar.SetPassword("verysecurepassword")
	e, err := ar.Peek("secret.txt")
	if err != nil {
		t.Fatalf("Peek with correct password: %v", err)
	}
	if !bytes.Equal(e.Payload, payload) {
		t.Errorf("payload mismatch after decrypt")
	}

	ar2, err := Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ar2.SetPassword("wrongpassword")
	if _, err := ar2.Peek("secret.txt"); err != ErrWrongPassword {
		t.Errorf("got error %v, want ErrWrongPassword", err)
	}
}

func TestAddFromArchive(t *testing.T) {
	src := New(NewOSHostEnv())
	if err := src.CreateFolder("goodbyedpi-0.2.2/inner"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if err := src.CreateFile("goodbyedpi-0.2.2/inner/readme.txt", []byte("hi"), Stored, LevelNormal, ""); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	var srcBuf bytes.Buffer
	if err := src.Save(&srcBuf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	srcAr, err := Open(bytes.NewReader(srcBuf.Bytes()), int64(srcBuf.Len()), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	dst := New(NewOSHostEnv())
	if err := dst.AddFromArchive(srcAr, "goodbyedpi-0.2.2/inner/readme.txt", "EXTRA FOLDER/readme.txt"); err != nil {
		t.Fatalf("AddFromArchive: %v", err)
	}
	got := dst.GetStructure()
	found := false
	for _, n := range got {
		if n == "EXTRA FOLDER/readme.txt" {
			found = true
		}
	}
	if !found {
		t.Errorf("GetStructure() = %v, missing EXTRA FOLDER/readme.txt", got)
	}
}

func TestAddFolderFromDisk(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "one.txt"), []byte("one"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "two.txt"), []byte("two"), 0644); err != nil {
		t.Fatal(err)
	}

	a := New(NewOSHostEnv())
	if err := a.AddFolder("payload", dir, Deflate, LevelNormal, ""); err != nil {
		t.Fatalf("AddFolder: %v", err)
	}
	var buf bytes.Buffer
	if err := a.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ar, err := Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	one, err := ar.Peek("payload/one.txt")
	if err != nil {
		t.Fatalf("Peek one.txt: %v", err)
	}
	if string(one.Payload) != "one" {
		t.Errorf("one.txt payload = %q", one.Payload)
	}
	two, err := ar.Peek("payload/sub/two.txt")
	if err != nil {
		t.Fatalf("Peek sub/two.txt: %v", err)
	}
	if string(two.Payload) != "two" {
		t.Errorf("sub/two.txt payload = %q", two.Payload)
	}
}

func TestComposeMatchesSave(t *testing.T) {
	build := func() *EditableArchive {
		a := New(NewOSHostEnv())
		a.SetComment("hello")
		_ = a.CreateFolder("dir")
		_ = a.CreateFile("dir/a.txt", []byte("aaaa"), Stored, LevelNormal, "")
		_ = a.CreateFile("b.bin", bytes.Repeat([]byte{1, 2, 3}, 50), Deflate, LevelFast, "")
		return a
	}

	var saved bytes.Buffer
	if err := build().Save(&saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rs, size, err := build().Compose()
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	composed := make([]byte, size)
	if _, err := rs.Read(composed); err != nil {
		t.Fatalf("reading composed: %v", err)
	}

	if !bytes.Equal(saved.Bytes(), composed) {
		t.Errorf("Compose output differs from Save output: %d vs %d bytes", len(composed), saved.Len())
	}
}

func TestPeekAllText(t *testing.T) {
	a := New(NewOSHostEnv())
	if err := a.CreateFolder("dir"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if err := a.CreateFile("dir/small.txt", []byte("hello"), Stored, LevelNormal, ""); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	big := bytes.Repeat([]byte("x"), 100)
	if err := a.CreateFile("dir/big.txt", big, Stored, LevelNormal, ""); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	var buf bytes.Buffer
	if err := a.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ar, err := Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	noDirs, err := ar.PeekAllText("", false, true, 8191)
	if err != nil {
		t.Fatalf("PeekAllText: %v", err)
	}
	if len(noDirs) != 2 {
		t.Fatalf("PeekAllText(includeDirs=false) returned %d entries, want 2", len(noDirs))
	}

	withDirs, err := ar.PeekAllText("", true, true, 8191)
	if err != nil {
		t.Fatalf("PeekAllText: %v", err)
	}
	if len(withDirs) != 3 {
		t.Fatalf("PeekAllText(includeDirs=true) returned %d entries, want 3", len(withDirs))
	}

	truncated, err := ar.PeekAllText("", false, false, 20)
	if err != nil {
		t.Fatalf("PeekAllText: %v", err)
	}
	for _, e := range truncated {
		if e.Name == "dir/big.txt" {
			if !e.IsText || len(e.Text) == 0 {
				t.Fatalf("big.txt peek = %+v, want truncated text", e)
			}
			if !strings.Contains(e.Text, truncationMarker) {
				t.Errorf("big.txt peek text = %q, want truncation marker", e.Text)
			}
		}
		if e.Name == "dir/small.txt" && e.Text != "hello" {
			t.Errorf("small.txt peek text = %q, want unchanged \"hello\"", e.Text)
		}
	}
}

func TestEncodingCP437RoundTrip(t *testing.T) {
	a := New(NewOSHostEnv())
	a.SetEncoding("cp437")
	name := "café.txt" // "café.txt"; é is representable in CP-437
	if err := a.CreateFile(name, []byte("coffee"), Stored, LevelNormal, ""); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	var buf bytes.Buffer
	if err := a.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ar, err := Open(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "cp437")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	e, err := ar.Peek(name)
	if err != nil {
		t.Fatalf("Peek(%q): %v, structure = %v", name, err, ar.Names())
	}
	if string(e.Payload) != "coffee" {
		t.Errorf("payload = %q", e.Payload)
	}
}
