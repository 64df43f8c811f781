// Package alloc decides whether a pending write fits in the free space an
// image records in its superblock.
package alloc

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/mit-pdos/go-store/common"
	"github.com/mit-pdos/go-store/disk"
	"github.com/mit-pdos/go-store/image"
	"github.com/mit-pdos/go-store/super"
	"github.com/mit-pdos/go-store/util"
)

var (
	ErrInsufficientSpace = errors.New("not enough space left on disk image")
	ErrNoData            = errors.New("no data to write")
)

// AdmissionError reports a write that must not proceed.
type AdmissionError struct {
	Path    string
	Kind    error
	Pending uint64
	Left    uint64
}

func (e *AdmissionError) Error() string {
	if e.Kind == ErrInsufficientSpace {
		return fmt.Sprintf("admit %s: %v: need %d bytes, %d left", e.Path, e.Kind, e.Pending, e.Left)
	}
	return fmt.Sprintf("admit %s: %v", e.Path, e.Kind)
}

func (e *AdmissionError) Is(target error) bool {
	return target == e.Kind
}

// Check admits pending bytes against sb. It reads nothing.
func Check(sb *super.Superblock, pending uint64) error {
	if pending == 0 {
		return &AdmissionError{Kind: ErrNoData, Left: sb.DataSpaceLeft}
	}
	if pending > sb.DataSpaceLeft {
		return &AdmissionError{Kind: ErrInsufficientSpace, Pending: pending, Left: sb.DataSpaceLeft}
	}
	return nil
}

// Admit re-reads the superblock of the verified image v and admits pending
// bytes against its free-space counter. The superblock cached in v is not
// trusted, since the image may have changed since it was verified. Admit
// reserves nothing and writes nothing.
func Admit(v *image.Verified, pending uint64) error {
	d, err := disk.OpenFile(v.Path)
	if err != nil {
		return errors.Wrapf(err, "open %q", v.Path)
	}
	defer d.Close()

	sb, err := super.Read(d)
	if err != nil {
		return errors.Wrapf(err, "reread superblock of %q", v.Path)
	}
	if sb.Magic != common.MAGIC {
		return &image.VerifyError{Path: v.Path, Kind: image.ErrBadMagic}
	}
	util.DPrintf(1, "Admit: %s pending %d left %d\n", v.Path, pending, sb.DataSpaceLeft)

	if err := Check(&sb, pending); err != nil {
		err.(*AdmissionError).Path = v.Path
		return err
	}
	return nil
}
