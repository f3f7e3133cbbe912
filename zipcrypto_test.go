package zipkit

import (
	"bytes"
	"io"
	"testing"
)

func TestZipCryptoRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		password string
		payload  []byte
	}{
		{"short", "hunter2", []byte("hello, world")},
		{"empty payload", "pw", nil},
		{"binary", "p@ss w0rd!", []byte{0, 1, 2, 255, 254, 253, 10, 13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crc := crcOf(tt.payload)
			var buf bytes.Buffer
			zw, err := newZipCryptoWriter(&buf, tt.password, crc)
			if err != nil {
				t.Fatalf("newZipCryptoWriter: %v", err)
			}
			if err := zw.writeRaw(tt.payload); err != nil {
				t.Fatalf("writeRaw: %v", err)
			}

			zr, err := newZipCryptoReader(bytes.NewReader(buf.Bytes()), tt.password, crc)
			if err != nil {
				t.Fatalf("newZipCryptoReader: %v", err)
			}
			got := make([]byte, len(tt.payload))
			if _, err := io.ReadFull(zr, got); err != nil {
				t.Fatalf("reading decrypted payload: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("round trip mismatch: got %v, want %v", got, tt.payload)
			}
		})
	}
}

func TestZipCryptoWrongPassword(t *testing.T) {
	crc := crcOf([]byte("secret"))
	var buf bytes.Buffer
	zw, err := newZipCryptoWriter(&buf, "correct", crc)
	if err != nil {
		t.Fatalf("newZipCryptoWriter: %v", err)
	}
	if err := zw.writeRaw([]byte("secret")); err != nil {
		t.Fatalf("writeRaw: %v", err)
	}

	_, err = newZipCryptoReader(bytes.NewReader(buf.Bytes()), "wrong", crc)
	if err != ErrWrongPassword {
		t.Errorf("got error %v, want ErrWrongPassword", err)
	}
}
