package inode

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-store/addr"
	"github.com/mit-pdos/go-store/common"
	"github.com/mit-pdos/go-store/disk"
	"github.com/mit-pdos/go-store/super"
)

const nameOff uint64 = 8

var (
	ErrNameTooLong = errors.New("inode name too long")
	ErrNoSlot      = errors.New("no such inode slot")
)

// Inode is one fixed-size record of the inode table. A record of all zero
// bytes is a free slot.
type Inode struct {
	Inum        common.Inum
	Flags       common.Flags
	Name        string
	Size        uint64
	StartBlock  uint64
	BlockCount  uint64
	Compression common.Compression
	Checksum    uint64
}

// MkTemplate returns the record every slot is initialized with: empty,
// but carrying the image-wide flags and compression mode of sb.
func MkTemplate(sb *super.Superblock) *Inode {
	return &Inode{
		Flags:       sb.Flags,
		Compression: sb.Compression,
	}
}

// SetName stores name, which must leave room for the NUL terminator.
func (ip *Inode) SetName(name string) error {
	if uint64(len(name)) >= common.INODENAME {
		return errors.Wrapf(ErrNameTooLong, "%d bytes, max %d", len(name), common.INODENAME-1)
	}
	if bytes.IndexByte([]byte(name), 0) >= 0 {
		return errors.Errorf("inode name %q contains NUL", name)
	}
	ip.Name = name
	return nil
}

func (ip *Inode) IsFree() bool {
	return *ip == Inode{}
}

func (ip *Inode) Encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	enc.PutInt32(uint32(ip.Inum))
	enc.PutInt32(uint32(ip.Flags))
	enc.PutInts(make([]uint64, common.INODENAME/8)) // name, copied in below
	enc.PutInt(ip.Size)
	enc.PutInt(ip.StartBlock)
	enc.PutInt(ip.BlockCount)
	enc.PutInt(uint64(ip.Compression)) // compression + 7 reserved bytes
	enc.PutInt(ip.Checksum)
	b := enc.Finish()
	copy(b[nameOff:nameOff+common.INODENAME-1], ip.Name)
	return b
}

func Decode(b []byte) (*Inode, error) {
	if uint64(len(b)) < common.INODESZ {
		return nil, errors.Wrapf(disk.ErrShortRead,
			"inode needs %d bytes, have %d", common.INODESZ, len(b))
	}
	dec := marshal.NewDec(b[:common.INODESZ])
	ip := &Inode{}
	ip.Inum = common.Inum(dec.GetInt32())
	ip.Flags = common.Flags(dec.GetInt32())
	dec.GetInts(common.INODENAME / 8)
	name := b[nameOff : nameOff+common.INODENAME]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	ip.Name = string(name)
	ip.Size = dec.GetInt()
	ip.StartBlock = dec.GetInt()
	ip.BlockCount = dec.GetInt()
	ip.Compression = common.Compression(dec.GetInt())
	ip.Checksum = dec.GetInt()
	return ip, nil
}

// ReadSlot loads inode slot inum of the table described by sb.
func ReadSlot(d disk.Disk, sb *super.Superblock, inum common.Inum) (*Inode, error) {
	if uint64(inum) >= sb.NInodes() {
		return nil, errors.Wrapf(ErrNoSlot, "inode %d of %d", inum, sb.NInodes())
	}
	a := addr.MkInodeAddr(common.Bnum(sb.InodeStart), inum, sb.Block)
	b := make([]byte, common.INODESZ)
	if err := d.ReadAt(b, a.Flatid(sb.Block)); err != nil {
		return nil, err
	}
	return Decode(b)
}
