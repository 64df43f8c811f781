// Package super holds the superblock: the first block of every store image,
// recording where the inode table and the data region live and how much of
// the data region is still writable.
package super

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-store/common"
	"github.com/mit-pdos/go-store/disk"
	"github.com/mit-pdos/go-store/layout"
	"github.com/mit-pdos/go-store/util"
)

type Superblock struct {
	Magic         uint32
	Version       uint16
	Flags         common.Flags
	DiskSize      uint64
	Block         uint32
	InodeStart    uint32
	InodeEnd      uint32
	DataStart     uint32
	DataSpaceLeft uint64
	Compression   common.Compression
	Checksum      common.Checksum
	Reserved      uint16
	SbCksum       uint64 // not computed yet, always 0
}

// Params are the image-wide choices recorded in a new superblock.
type Params struct {
	DiskSize    uint64
	BlockSize   uint32
	Compression bool
	// Mode fields; CompressionNone and ChecksumNone are the only values.
	CompressionMode common.Compression
	ChecksumMode    common.Checksum
}

// MkSuperblock lays out an image according to plan p.
//
// Block 0 holds the superblock and the inode table starts at block 1. The
// table's last block index is inode_start + n_inodes - 1 and the data region
// starts right after it.
func MkSuperblock(prm Params, p layout.Plan) (Superblock, error) {
	end := uint64(common.INODESTART) + p.NInodes - 1
	if util.SumOverflows(end, 1) || end+1 > math.MaxUint32 {
		return Superblock{}, errors.Wrapf(layout.ErrInvalidCapacity,
			"%d inodes do not fit 32-bit block indices", p.NInodes)
	}
	var flags common.Flags
	if prm.Compression {
		flags |= common.FlagCompression
	}
	sb := Superblock{
		Magic:         common.MAGIC,
		Version:       common.VERSION,
		Flags:         flags,
		DiskSize:      prm.DiskSize,
		Block:         prm.BlockSize,
		InodeStart:    uint32(common.INODESTART),
		InodeEnd:      uint32(end),
		DataStart:     uint32(end + 1),
		DataSpaceLeft: p.DataRegionBytes,
		Compression:   prm.CompressionMode,
		Checksum:      prm.ChecksumMode,
		Reserved:      0,
		SbCksum:       0,
	}
	return sb, nil
}

func (sb *Superblock) HasFlag(f common.Flags) bool {
	return sb.Flags&f != 0
}

// NInodes is the number of inode slots the table was laid out with.
func (sb *Superblock) NInodes() uint64 {
	return uint64(sb.DataStart) - uint64(sb.InodeStart)
}

// Plan recovers the layout plan sb was made from.
func (sb *Superblock) Plan() layout.Plan {
	return layout.Plan{
		NInodes:         sb.NInodes(),
		InodeTableBytes: sb.InodeTableBytes(),
		DataRegionBytes: sb.DataSpaceLeft,
	}
}

// InodeTableOffset is the byte offset of inode slot 0.
func (sb *Superblock) InodeTableOffset() uint64 {
	return uint64(sb.InodeStart) * uint64(sb.Block)
}

// InodeTableBytes is the size of the packed inode records.
func (sb *Superblock) InodeTableBytes() uint64 {
	return sb.NInodes() * common.INODESZ
}

// DataOffset is the byte offset of block data_start.
func (sb *Superblock) DataOffset() uint64 {
	return uint64(sb.DataStart) * uint64(sb.Block)
}

// Encode serializes sb into one block: SBSZ bytes of fields followed by
// zero padding up to sb.Block bytes.
func (sb *Superblock) Encode() disk.Block {
	sz := util.Max(uint64(sb.Block), common.SBSZ)
	enc := marshal.NewEnc(sz)
	enc.PutInt32(sb.Magic)
	enc.PutInt32(uint32(sb.Version) | uint32(sb.Flags)<<16)
	enc.PutInt(sb.DiskSize)
	enc.PutInt32(sb.Block)
	enc.PutInt32(sb.InodeStart)
	enc.PutInt32(sb.InodeEnd)
	enc.PutInt32(sb.DataStart)
	enc.PutInt(sb.DataSpaceLeft)
	enc.PutInt32(uint32(sb.Compression) | uint32(sb.Checksum)<<8 | uint32(sb.Reserved)<<16)
	enc.PutInt32(0)
	enc.PutInt(sb.SbCksum)
	return enc.Finish()
}

// Decode parses the first SBSZ bytes of b.
func Decode(b []byte) (Superblock, error) {
	if uint64(len(b)) < common.SBSZ {
		return Superblock{}, errors.Wrapf(disk.ErrShortRead,
			"superblock needs %d bytes, have %d", common.SBSZ, len(b))
	}
	dec := marshal.NewDec(b[:common.SBSZ])
	var sb Superblock
	sb.Magic = dec.GetInt32()
	vf := dec.GetInt32()
	sb.Version = uint16(vf)
	sb.Flags = common.Flags(vf >> 16)
	sb.DiskSize = dec.GetInt()
	sb.Block = dec.GetInt32()
	sb.InodeStart = dec.GetInt32()
	sb.InodeEnd = dec.GetInt32()
	sb.DataStart = dec.GetInt32()
	sb.DataSpaceLeft = dec.GetInt()
	pol := dec.GetInt32()
	sb.Compression = common.Compression(pol)
	sb.Checksum = common.Checksum(pol >> 8)
	sb.Reserved = uint16(pol >> 16)
	dec.GetInt32()
	sb.SbCksum = dec.GetInt()
	return sb, nil
}

// Read loads the superblock from offset 0 of d.
func Read(d disk.Disk) (Superblock, error) {
	b := make([]byte, common.SBSZ)
	if err := d.ReadAt(b, 0); err != nil {
		return Superblock{}, err
	}
	return Decode(b)
}

// Write stores sb, padded to a full block, at offset 0 of d.
func (sb *Superblock) Write(d disk.Disk) error {
	return d.WriteAt(sb.Encode(), 0)
}

func (sb Superblock) String() string {
	return fmt.Sprintf("sb{magic %#08x v%d flags %#x disk %d block %d inodes [%d,%d] data %d left %d}",
		sb.Magic, sb.Version, uint16(sb.Flags), sb.DiskSize, sb.Block,
		sb.InodeStart, sb.InodeEnd, sb.DataStart, sb.DataSpaceLeft)
}
