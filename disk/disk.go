package disk

import (
	"io"

	"github.com/pkg/errors"
	"github.com/tchajed/goose/machine/disk"
)

// Block is a byte buffer holding one or more whole blocks.
type Block = disk.Block

var (
	// ErrShortRead is returned when fewer bytes than requested exist at an
	// offset.
	ErrShortRead = io.ErrUnexpectedEOF
	// ErrShortWrite is returned when the OS accepts only part of a write.
	ErrShortWrite = io.ErrShortWrite
)

// Stat describes the file backing a Disk.
type Stat struct {
	Size uint64 // bytes
	Perm uint32 // permission bits
}

// Disk provides byte-addressed access to a disk image file.
//
// Reads and writes are all-or-nothing from the caller's point of view: a
// transfer that moves fewer bytes than len(b) is reported as ErrShortRead or
// ErrShortWrite and is never retried.
type Disk interface {
	// ReadAt fills b from offset off.
	ReadAt(b []byte, off uint64) error

	// WriteAt writes all of b at offset off.
	WriteAt(b []byte, off uint64) error

	// Stat reports the current size and permission bits of the image.
	Stat() (Stat, error)

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// disk
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}

// WriteBatch writes blocks back to back starting at off.
func WriteBatch(d Disk, off uint64, blocks []Block) error {
	for _, b := range blocks {
		if err := d.WriteAt(b, off); err != nil {
			return err
		}
		off += uint64(len(b))
	}
	return nil
}

func shortRead(off uint64, n int, want int) error {
	return errors.Wrapf(ErrShortRead, "read at %d: got %d of %d bytes", off, n, want)
}

func shortWrite(off uint64, n int, want int) error {
	return errors.Wrapf(ErrShortWrite, "write at %d: wrote %d of %d bytes", off, n, want)
}
