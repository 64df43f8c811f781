// Package image builds store disk images and verifies existing ones before
// they are used.
package image

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mit-pdos/go-store/common"
	"github.com/mit-pdos/go-store/config"
	"github.com/mit-pdos/go-store/disk"
	"github.com/mit-pdos/go-store/inode"
	"github.com/mit-pdos/go-store/layout"
	"github.com/mit-pdos/go-store/super"
	"github.com/mit-pdos/go-store/util"
)

// inode records per write while formatting the table
const inodesPerWrite uint64 = 512

// Params describe the image Create builds.
type Params struct {
	Path        string
	DiskSize    uint64
	BlockSize   uint32 // 0 means common.DEFAULTBLKSZ
	Ratio       layout.InodeRatio
	Compression bool
}

func ParamsFromConfig(c config.Config) Params {
	return Params{
		Path:        c.DiskPath,
		DiskSize:    c.DiskSize,
		BlockSize:   c.BlockSize,
		Ratio:       c.Ratio(),
		Compression: c.Compression,
	}
}

// imageFile is what the builder needs from a freshly created file.
type imageFile interface {
	disk.Disk
	Truncate(size uint64) error
}

var createFile = func(path string, perm uint32) (imageFile, error) {
	return disk.CreateFile(path, perm)
}

// Superblock plans the image described by p and returns the superblock
// Create would write. It touches nothing.
func (p Params) Superblock() (super.Superblock, error) {
	if p.BlockSize == 0 {
		p.BlockSize = common.DEFAULTBLKSZ
	}
	if p.Ratio == 0 {
		p.Ratio = layout.Balanced
	}
	plan, err := layout.MkPlan(p.DiskSize, p.BlockSize, p.Ratio, common.SBSZ, common.INODESZ)
	if err != nil {
		return super.Superblock{}, err
	}
	sb, err := super.MkSuperblock(super.Params{
		DiskSize:        p.DiskSize,
		BlockSize:       p.BlockSize,
		Compression:     p.Compression,
		CompressionMode: common.CompressionNone,
		ChecksumMode:    common.ChecksumNone,
	}, plan)
	if err != nil {
		return super.Superblock{}, err
	}
	if p.DiskSize < uint64(sb.Block) {
		return super.Superblock{}, errors.Wrapf(layout.ErrInvalidCapacity,
			"disk size %d is smaller than one %d byte block", p.DiskSize, sb.Block)
	}
	if end := sb.InodeTableOffset() + sb.InodeTableBytes(); end > p.DiskSize {
		return super.Superblock{}, errors.Wrapf(layout.ErrInvalidCapacity,
			"inode table ends at %d, past disk size %d", end, p.DiskSize)
	}
	return sb, nil
}

func tmpName(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, fmt.Sprintf(".%s.%d.%d.tmp", base, os.Getpid(), time.Now().UnixNano()))
}

// Precheck runs the checks Create makes before it touches the filesystem:
// the layout must fit, nothing may exist at p.Path, and its directory must.
func (p Params) Precheck() (super.Superblock, error) {
	if p.DiskSize == 0 {
		return super.Superblock{}, &config.Error{Field: "disk-size", Err: config.ErrZeroDiskSize}
	}
	sb, err := p.Superblock()
	if err != nil {
		return super.Superblock{}, buildErr(p.Path, layout.ErrInvalidCapacity, err)
	}
	if _, err := os.Lstat(p.Path); err == nil {
		return super.Superblock{}, buildErr(p.Path, ErrAlreadyExists, nil)
	} else if !os.IsNotExist(err) {
		return super.Superblock{}, buildErr(p.Path, ErrAllocation, err)
	}
	dir := filepath.Dir(p.Path)
	fi, err := os.Stat(dir)
	if err != nil {
		return super.Superblock{}, buildErr(p.Path, ErrAllocation, err)
	}
	if !fi.IsDir() {
		return super.Superblock{}, buildErr(p.Path, ErrAllocation, errors.Errorf("%q is not a directory", dir))
	}
	return sb, nil
}

// Create builds a new image at p.Path: a superblock in block 0 followed by
// an inode table of empty slots. The file is assembled under a temporary
// name and linked into place only once it is complete and synced, so on
// failure p.Path is left as it was.
func Create(p Params) (super.Superblock, error) {
	sb, err := p.Precheck()
	if err != nil {
		return super.Superblock{}, err
	}

	tmp := tmpName(p.Path)
	f, err := createFile(tmp, common.FILEMODE)
	if err != nil {
		return super.Superblock{}, buildErr(p.Path, ErrAllocation, errors.Wrapf(err, "create %q", tmp))
	}
	published := false
	defer func() {
		if !published {
			os.Remove(tmp)
		}
	}()

	if err := f.Truncate(p.DiskSize); err != nil {
		f.Close()
		return super.Superblock{}, buildErr(p.Path, ErrAllocation, errors.Wrapf(err, "truncate %q", tmp))
	}
	if err := format(f, &sb); err != nil {
		f.Close()
		return super.Superblock{}, buildErr(p.Path, ErrWrite, err)
	}
	if err := f.Barrier(); err != nil {
		f.Close()
		return super.Superblock{}, buildErr(p.Path, ErrWrite, err)
	}
	if err := f.Close(); err != nil {
		return super.Superblock{}, buildErr(p.Path, ErrWrite, errors.Wrapf(err, "close %q", tmp))
	}

	// link fails rather than replacing anything that appeared at p.Path
	if err := os.Link(tmp, p.Path); err != nil {
		if os.IsExist(err) {
			return super.Superblock{}, buildErr(p.Path, ErrAlreadyExists, nil)
		}
		return super.Superblock{}, buildErr(p.Path, ErrWrite, err)
	}
	published = true
	if err := os.Remove(tmp); err != nil {
		logrus.WithError(err).Warnf("cannot remove %s", tmp)
	}
	if err := disk.SyncDir(filepath.Dir(p.Path)); err != nil {
		logrus.WithError(err).Warn("image created but directory not synced")
	}

	logrus.WithFields(logrus.Fields{
		"path":   p.Path,
		"size":   sb.DiskSize,
		"inodes": sb.NInodes(),
		"data":   sb.DataSpaceLeft,
	}).Debug("image created")
	return sb, nil
}

// format writes sb and an empty inode table to d.
func format(d disk.Disk, sb *super.Superblock) error {
	if err := sb.Write(d); err != nil {
		return errors.Wrap(err, "write superblock")
	}
	util.DPrintf(3, "format: superblock %v\n", sb)

	tmpl := inode.MkTemplate(sb).Encode()
	n := sb.NInodes()
	chunk := bytes.Repeat(tmpl, int(util.Min(n, inodesPerWrite)))
	var chunks []disk.Block
	for n > 0 {
		k := util.Min(n, inodesPerWrite)
		chunks = append(chunks, chunk[:k*common.INODESZ])
		n -= k
	}
	if err := disk.WriteBatch(d, sb.InodeTableOffset(), chunks); err != nil {
		return errors.Wrap(err, "write inode table")
	}
	util.DPrintf(3, "format: %d inodes from %d\n", sb.NInodes(), sb.InodeTableOffset())
	return nil
}
