// Package image loads firmware images read-only.
package image

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"syscall"
)

// Image is a firmware image mapped into memory. Data must be treated as
// read-only; writing to a mapped image faults.
type Image struct {
	Path string
	data []byte
	f    *os.File

	mapped bool
	digest string
}

// Open maps the file at path read-only. Empty files are accepted and yield
// an empty image.
func Open(path string) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat image: %w", err)
	}
	if fi.IsDir() {
		f.Close()
		return nil, fmt.Errorf("open image: %s is a directory", path)
	}

	im := &Image{Path: path, f: f}
	if fi.Size() == 0 {
		im.data = []byte{}
		return im, nil
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap image: %w", err)
	}
	im.data = data
	im.mapped = true
	return im, nil
}

// FromBytes wraps an in-memory buffer. Close is a no-op for such images.
func FromBytes(name string, data []byte) *Image {
	return &Image{Path: name, data: data}
}

// Data returns the image bytes.
func (im *Image) Data() []byte { return im.data }

// Size returns the image length in bytes.
func (im *Image) Size() int { return len(im.data) }

// Digest returns the hex SHA-256 of the image. It is computed once.
func (im *Image) Digest() string {
	if im.digest == "" {
		sum := sha256.Sum256(im.data)
		im.digest = hex.EncodeToString(sum[:])
	}
	return im.digest
}

// Close unmaps the memory and closes the underlying file.
func (im *Image) Close() error {
	var err1, err2 error
	if im.mapped && im.data != nil {
		err1 = syscall.Munmap(im.data)
		im.mapped = false
	}
	im.data = nil
	if im.f != nil {
		err2 = im.f.Close()
		im.f = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}
