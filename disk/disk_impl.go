package disk

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-store/util"
)

var _ Disk = (*FileDisk)(nil)

// FileDisk is a Disk backed by a host file descriptor.
type FileDisk struct {
	fd   int
	path string
}

// CreateFile creates path exclusively with permission bits perm, regardless
// of the process umask. It fails with unix.EEXIST if anything is already at
// path.
func CreateFile(path string, perm uint32) (*FileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, perm)
	if err != nil {
		return nil, err
	}
	if err := unix.Fchmod(fd, perm); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "fchmod %q", path)
	}
	util.DPrintf(1, "CreateFile: %s fd %d\n", path, fd)
	return &FileDisk{fd: fd, path: path}, nil
}

// OpenFile opens an existing image read-only. It never creates path.
func OpenFile(path string) (*FileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	util.DPrintf(1, "OpenFile: %s fd %d\n", path, fd)
	return &FileDisk{fd: fd, path: path}, nil
}

// Truncate sets the file length to size bytes without allocating blocks.
func (d *FileDisk) Truncate(size uint64) error {
	if size > 1<<63-1 {
		return errors.Errorf("size %d too large", size)
	}
	return unix.Ftruncate(d.fd, int64(size))
}

func (d *FileDisk) ReadAt(b []byte, off uint64) error {
	n, err := unix.Pread(d.fd, b, int64(off))
	if err != nil {
		return errors.Wrapf(err, "pread %q at %d", d.path, off)
	}
	if n != len(b) {
		return shortRead(off, n, len(b))
	}
	return nil
}

func (d *FileDisk) WriteAt(b []byte, off uint64) error {
	n, err := unix.Pwrite(d.fd, b, int64(off))
	if err != nil {
		return errors.Wrapf(err, "pwrite %q at %d", d.path, off)
	}
	if n != len(b) {
		return shortWrite(off, n, len(b))
	}
	return nil
}

func (d *FileDisk) Stat() (Stat, error) {
	var st unix.Stat_t
	if err := unix.Fstat(d.fd, &st); err != nil {
		return Stat{}, errors.Wrapf(err, "fstat %q", d.path)
	}
	return Stat{Size: uint64(st.Size), Perm: uint32(st.Mode) & 0777}, nil
}

func (d *FileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	if err := unix.Fsync(d.fd); err != nil {
		return errors.Wrapf(err, "fsync %q", d.path)
	}
	util.DPrintf(5, "barrier %s\n", d.path)
	return nil
}

func (d *FileDisk) Close() error {
	return unix.Close(d.fd)
}

// SyncDir makes the directory entries under dir durable.
func SyncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return errors.Wrapf(err, "open dir %q", dir)
	}
	defer unix.Close(fd)
	if err := unix.Fsync(fd); err != nil {
		return errors.Wrapf(err, "fsync dir %q", dir)
	}
	return nil
}

/////////////////////////
/////////////////////////
/////////////////////////
/////////////////////////

var _ Disk = (*MemDisk)(nil)

// MemDisk is an in-memory Disk, used by tests.
type MemDisk struct {
	l    *sync.RWMutex
	data []byte
	perm uint32
}

func NewMemDisk(size uint64, perm uint32) *MemDisk {
	return &MemDisk{l: new(sync.RWMutex), data: make([]byte, size), perm: perm}
}

func (d *MemDisk) ReadAt(b []byte, off uint64) error {
	d.l.RLock()
	defer d.l.RUnlock()
	if off >= uint64(len(d.data)) {
		return shortRead(off, 0, len(b))
	}
	n := copy(b, d.data[off:])
	if n != len(b) {
		return shortRead(off, n, len(b))
	}
	return nil
}

// WriteAt grows the disk when writing past the end, like a sparse file.
func (d *MemDisk) WriteAt(b []byte, off uint64) error {
	d.l.Lock()
	defer d.l.Unlock()
	end := off + uint64(len(b))
	if end > uint64(len(d.data)) {
		grown := make([]byte, end)
		copy(grown, d.data)
		d.data = grown
	}
	copy(d.data[off:], b)
	return nil
}

func (d *MemDisk) Stat() (Stat, error) {
	d.l.RLock()
	defer d.l.RUnlock()
	return Stat{Size: uint64(len(d.data)), Perm: d.perm}, nil
}

// Bytes returns a copy of the disk contents.
func (d *MemDisk) Bytes() []byte {
	d.l.RLock()
	defer d.l.RUnlock()
	return append([]byte(nil), d.data...)
}

func (d *MemDisk) Barrier() error { return nil }

func (d *MemDisk) Close() error { return nil }
