package super

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-store/common"
	"github.com/mit-pdos/go-store/disk"
	"github.com/mit-pdos/go-store/layout"
)

func fourMiB(t *testing.T, compression bool) Superblock {
	p, err := layout.MkPlan(4*1024*1024, 4096, layout.Balanced, common.SBSZ, common.INODESZ)
	require.NoError(t, err)
	sb, err := MkSuperblock(Params{
		DiskSize:    4 * 1024 * 1024,
		BlockSize:   4096,
		Compression: compression,
	}, p)
	require.NoError(t, err)
	return sb
}

func TestMkSuperblock(t *testing.T) {
	sb := fourMiB(t, false)
	want := Superblock{
		Magic:         0x53544F52,
		DiskSize:      4194304,
		Block:         4096,
		InodeStart:    1,
		InodeEnd:      374,
		DataStart:     375,
		DataSpaceLeft: 4152352,
	}
	if diff := cmp.Diff(want, sb); diff != "" {
		t.Errorf("superblock mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, uint64(374), sb.NInodes())
	assert.Equal(t, uint64(41888), sb.InodeTableBytes())
	assert.Equal(t, uint64(4096), sb.InodeTableOffset())
	assert.Equal(t, uint64(375*4096), sb.DataOffset())
	assert.False(t, sb.HasFlag(common.FlagCompression))
}

func TestMkSuperblockCompression(t *testing.T) {
	sb := fourMiB(t, true)
	assert.Equal(t, common.FlagCompression, sb.Flags, "only the compression bit is set")
	assert.Equal(t, common.CompressionNone, sb.Compression)
}

func TestMkSuperblockNoInodes(t *testing.T) {
	sb, err := MkSuperblock(Params{DiskSize: 200, BlockSize: 4096},
		layout.Plan{NInodes: 0, DataRegionBytes: 136})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), sb.InodeEnd)
	assert.Equal(t, uint32(1), sb.DataStart)
	assert.Equal(t, uint64(0), sb.NInodes())
}

func TestMkSuperblockTooManyInodes(t *testing.T) {
	_, err := MkSuperblock(Params{DiskSize: 1 << 50, BlockSize: 4096},
		layout.Plan{NInodes: 1 << 32})
	assert.True(t, errors.Is(err, layout.ErrInvalidCapacity))
}

func TestEncodeLayout(t *testing.T) {
	sb := fourMiB(t, true)
	sb.Reserved = 0xBEEF
	b := sb.Encode()
	require.Len(t, b, 4096, "superblock is padded to a full block")

	le := binary.LittleEndian
	assert.Equal(t, uint32(0x53544F52), le.Uint32(b[0:]))
	assert.Equal(t, uint16(0), le.Uint16(b[4:]))
	assert.Equal(t, uint16(common.FlagCompression), le.Uint16(b[6:]))
	assert.Equal(t, uint64(4194304), le.Uint64(b[8:]))
	assert.Equal(t, uint32(4096), le.Uint32(b[16:]))
	assert.Equal(t, uint32(1), le.Uint32(b[20:]))
	assert.Equal(t, uint32(374), le.Uint32(b[24:]))
	assert.Equal(t, uint32(375), le.Uint32(b[28:]))
	assert.Equal(t, uint64(4152352), le.Uint64(b[32:]))
	assert.Equal(t, byte(0), b[40])
	assert.Equal(t, byte(0), b[41])
	assert.Equal(t, uint16(0xBEEF), le.Uint16(b[42:]))
	assert.Equal(t, uint64(0), le.Uint64(b[48:]))
	assert.True(t, bytes.Equal(make([]byte, 4096-common.SBSZ), b[common.SBSZ:]),
		"padding must be zero")
}

func TestDecodeEncode(t *testing.T) {
	sb := fourMiB(t, true)
	sb.Reserved = 7
	got, err := Decode(sb.Encode())
	require.NoError(t, err)
	if diff := cmp.Diff(sb, got); diff != "" {
		t.Errorf("decoded superblock mismatch (-want +got):\n%s", diff)
	}

	_, err = Decode(make([]byte, common.SBSZ-1))
	assert.True(t, errors.Is(err, disk.ErrShortRead))
}

func TestReadWrite(t *testing.T) {
	sb := fourMiB(t, false)
	d := disk.NewMemDisk(4*4096, 0644)
	require.NoError(t, sb.Write(d))
	got, err := Read(d)
	require.NoError(t, err)
	assert.Equal(t, sb, got)

	_, err = Read(disk.NewMemDisk(10, 0644))
	assert.True(t, errors.Is(err, disk.ErrShortRead))
}
