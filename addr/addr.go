package addr

import (
	"github.com/mit-pdos/go-store/common"
)

// Addr identifies the start of a disk object.
//
// Blkno is the block number containing the object, and Off is the location of
// the object within the block (expressed as a byte offset). The size of the
// object is determined by the context in which Addr is used.
type Addr struct {
	Blkno common.Bnum
	Off   uint64 // offset in bytes
}

// Flatid is the absolute byte offset of a in an image with blocks of bsz
// bytes.
func (a Addr) Flatid(bsz uint32) uint64 {
	return uint64(a.Blkno)*uint64(bsz) + a.Off
}

func MkAddr(blkno common.Bnum, off uint64) Addr {
	return Addr{Blkno: blkno, Off: off}
}

// MkRecordAddr locates the n-th record of recsz bytes in a table that starts
// at block start. Records are packed back to back, so a record may begin in
// any block of the table.
func MkRecordAddr(start common.Bnum, n uint64, recsz uint64, bsz uint32) Addr {
	off := n * recsz
	i := off / uint64(bsz)
	addr := MkAddr(start+common.Bnum(i), off%uint64(bsz))
	return addr
}

// MkInodeAddr locates inode slot inum of the table starting at block start.
func MkInodeAddr(start common.Bnum, inum common.Inum, bsz uint32) Addr {
	return MkRecordAddr(start, uint64(inum), common.INODESZ, bsz)
}
