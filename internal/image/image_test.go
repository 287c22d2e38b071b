package image

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		wantDigest string
	}{
		{
			name:       "empty",
			data:       nil,
			wantDigest: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:       "abc",
			data:       []byte("abc"),
			wantDigest: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im, err := Open(writeFile(t, tt.data))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer im.Close()

			if im.Size() != len(tt.data) {
				t.Errorf("Size() = %d, want %d", im.Size(), len(tt.data))
			}
			if string(im.Data()) != string(tt.data) {
				t.Errorf("Data() = %q, want %q", im.Data(), tt.data)
			}
			if got := im.Digest(); got != tt.wantDigest {
				t.Errorf("Digest() = %s, want %s", got, tt.wantDigest)
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Open() on a missing file succeeded")
	}
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("Open() on a directory succeeded")
	}
}

func TestClose(t *testing.T) {
	im, err := Open(writeFile(t, []byte{1, 2, 3, 4}))
	if err != nil {
		t.Fatal(err)
	}
	if err := im.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if im.Data() != nil {
		t.Error("Data() not cleared after Close()")
	}
	// Closing twice is harmless.
	if err := im.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestFromBytes(t *testing.T) {
	im := FromBytes("mem", []byte{0xaa})
	if im.Size() != 1 || im.Path != "mem" {
		t.Errorf("FromBytes() = %+v", im)
	}
	if err := im.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
