// Package layout plans how a disk image is split between the superblock,
// the inode table, and the data region.
//
// Planning is pure arithmetic. The image builder commits the resulting plan
// to disk and the verifier later trusts it, so MkPlan must give the same
// answer for the same inputs every time.
package layout

import (
	"math/bits"

	"github.com/pkg/errors"

	"github.com/mit-pdos/go-store/util"
)

// InodeRatio is the share of usable space, in parts per thousand, that is
// reserved for the inode table.
type InodeRatio uint64

const (
	Large    InodeRatio = 1
	Balanced InodeRatio = 10
	Small    InodeRatio = 40
)

const ppt = 1000

func (r InodeRatio) String() string {
	switch r {
	case Large:
		return "large"
	case Balanced:
		return "balanced"
	case Small:
		return "small"
	}
	return "custom"
}

var ErrInvalidCapacity = errors.New("invalid capacity")

// Plan is the byte budget of one image.
type Plan struct {
	NInodes         uint64
	InodeTableBytes uint64
	DataRegionBytes uint64
}

// MkPlan partitions diskSize bytes. The superblock takes sbSize bytes off
// the top, ratio/1000 of the rest (rounded down to whole inode records)
// becomes the inode table, and everything else is the data region.
//
// blockSize does not enter the arithmetic; it only has to be able to hold
// the superblock.
func MkPlan(diskSize uint64, blockSize uint32, ratio InodeRatio, sbSize uint64, inodeSize uint64) (Plan, error) {
	if diskSize <= sbSize {
		return Plan{}, errors.Wrapf(ErrInvalidCapacity,
			"disk size %d does not exceed superblock size %d", diskSize, sbSize)
	}
	if inodeSize == 0 {
		return Plan{}, errors.Wrap(ErrInvalidCapacity, "zero inode size")
	}
	if uint64(blockSize) < sbSize {
		return Plan{}, errors.Wrapf(ErrInvalidCapacity,
			"block size %d cannot hold a %d byte superblock", blockSize, sbSize)
	}
	if ratio == 0 || ratio > ppt {
		return Plan{}, errors.Wrapf(ErrInvalidCapacity, "inode ratio %d out of range", ratio)
	}

	usable := diskSize - sbSize
	// usable*ratio can exceed 64 bits for very large images; ratio <= 1000
	// keeps the high word below the divisor.
	hi, lo := bits.Mul64(usable, uint64(ratio))
	budget, _ := bits.Div64(hi, lo, ppt)

	n := budget / inodeSize
	table := n * inodeSize
	p := Plan{
		NInodes:         n,
		InodeTableBytes: table,
		DataRegionBytes: usable - table,
	}
	util.DPrintf(5, "MkPlan: disk %d usable %d budget %d -> %+v\n",
		diskSize, usable, budget, p)
	return p, nil
}

// TableBlocks is the number of whole blocks the inode records span.
func (p Plan) TableBlocks(blockSize uint32) uint64 {
	return util.RoundUp(p.InodeTableBytes, uint64(blockSize))
}
