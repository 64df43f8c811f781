package image

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-store/common"
	"github.com/mit-pdos/go-store/disk"
	"github.com/mit-pdos/go-store/super"
)

// Verified is an image that passed Verify, with the superblock read at
// that time.
type Verified struct {
	Path  string
	Super super.Superblock
}

// Exists reports ErrNotFound when nothing is at path, including when a
// directory on the way is missing. It creates nothing.
func Exists(path string) error {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return verifyErr(path, ErrNotFound, nil)
		}
		return verifyErr(path, ErrUnreadable, err)
	}
	return nil
}

// Verify checks that path holds a store image that may be used: it opens
// and has mode 0644, begins with a whole superblock carrying the store
// magic, and is exactly as large as that superblock says. The first failed
// check is reported. Verify never creates or modifies path.
func Verify(path string) (*Verified, error) {
	d, err := disk.OpenFile(path)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil, verifyErr(path, ErrNotFound, nil)
		}
		return nil, verifyErr(path, ErrUnreadable, err)
	}
	defer d.Close()
	return verify(path, d)
}

func verify(path string, d disk.Disk) (*Verified, error) {
	st, err := d.Stat()
	if err != nil {
		return nil, verifyErr(path, ErrUnreadable, err)
	}
	if st.Perm != common.FILEMODE {
		return nil, verifyErr(path, ErrModeMismatch,
			errors.Errorf("mode %#o, want %#o", st.Perm, common.FILEMODE))
	}

	sb, err := super.Read(d)
	if err != nil {
		if errors.Is(err, disk.ErrShortRead) {
			return nil, verifyErr(path, ErrTruncatedSuperblock, err)
		}
		return nil, verifyErr(path, ErrUnreadable, err)
	}
	if sb.Magic != common.MAGIC {
		return nil, verifyErr(path, ErrBadMagic,
			errors.Errorf("magic %#08x, want %#08x", sb.Magic, common.MAGIC))
	}
	if sb.DiskSize != st.Size {
		return nil, verifyErr(path, ErrSizeMismatch,
			errors.Errorf("superblock says %d bytes, file has %d", sb.DiskSize, st.Size))
	}

	logrus.WithFields(logrus.Fields{"path": path, "size": sb.DiskSize}).Debug("image verified")
	return &Verified{Path: path, Super: sb}, nil
}
