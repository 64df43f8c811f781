package common

import (
	"strings"

	"github.com/tchajed/goose/machine/disk"
)

// On-disk layout of a store image:
//
//	[ block 0 ]              superblock, zero-padded to one block
//	[ block 1 .. inode_end ] inode table, INODESZ records back to back
//	[ block data_start .. ]  data region
const (
	MAGIC   uint32 = 0x53544F52 // "STOR"
	VERSION uint16 = 0

	SBSZ      uint64 = 64  // on-disk size of the superblock
	INODESZ   uint64 = 112 // on-disk size of an inode record
	INODENAME uint64 = 64  // inode name buffer, including the NUL

	DEFAULTBLKSZ uint32 = uint32(disk.BlockSize)
	MINBLKSZ     uint32 = 512
	MAXBLKSZ     uint32 = 64 * 1024

	// Images are created with, and verified against, exactly this mode.
	FILEMODE uint32 = 0644

	MAXPATH uint64 = 255
)

type Bnum = uint64
type Inum uint64

// The inode table always starts in the block after the superblock.
const INODESTART Bnum = 1

// Flags is the feature bitset shared by the superblock and inodes.
type Flags uint16

const (
	FlagCompression Flags = 1 << iota
	FlagReadOnly
	FlagHidden
	FlagEncrypted
	FlagDirectory
)

var flagNames = []string{"compression", "read-only", "hidden", "encrypted", "directory"}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for i, n := range flagNames {
		if f&(1<<uint(i)) != 0 {
			names = append(names, n)
		}
	}
	if rest := f &^ (1<<uint(len(flagNames)) - 1); rest != 0 {
		names = append(names, "unknown")
	}
	return strings.Join(names, ",")
}

// Compression selects a compression scheme. Only CompressionNone exists.
type Compression uint8

const CompressionNone Compression = 0

// Checksum selects a checksum scheme. Only ChecksumNone exists.
type Checksum uint8

const ChecksumNone Checksum = 0
