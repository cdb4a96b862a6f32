package memory_test

import (
	"strings"
	"testing"

	"netvardump/packages/Memory/memory"
	"netvardump/packages/Memory/memory/memtest"

	"github.com/stretchr/testify/require"
)

func TestParsePatternHandlesWildcards(t *testing.T) {
	p, err := memory.ParsePattern("A1 ?? ? 00 C3")
	require.NoError(t, err)

	require.Equal(t, []byte{0xA1, 0x00, 0x00, 0x00, 0xC3}, p.Bytes)
	require.Equal(t, []bool{true, false, false, true, true}, p.Mask)
}

func TestParsePatternTreatsTextAsLiteral(t *testing.T) {
	p, err := memory.ParsePattern("VClient017")
	require.NoError(t, err)

	require.Equal(t, []byte("VClient017"), p.Bytes)
	require.Len(t, p.Mask, len("VClient017"))
}

func TestFindPatternMatchesRealZeroBytes(t *testing.T) {
	p, err := memory.ParsePattern("B8 00 ?? 10")
	require.NoError(t, err)

	data := []byte{0xB8, 0x01, 0xFF, 0x10, 0xB8, 0x00, 0x7F, 0x10}
	require.Equal(t, uintptr(0x1004), memory.FindPattern(data, p, 0x1000))
}

func TestFindAllPatternsReturnsEveryMatch(t *testing.T) {
	p, err := memory.ParsePattern("CC ??")
	require.NoError(t, err)

	data := []byte{0xCC, 0x01, 0x90, 0xCC, 0x02}
	require.Equal(t, []uintptr{0x10, 0x13}, memory.FindAllPatterns(data, p, 0x10))
	require.Zero(t, memory.FindPattern([]byte{0x90}, p, 0x10))
}

func TestScanModuleSearchesOnlyTheModule(t *testing.T) {
	im := memtest.New(0x400000, 4)
	outside := im.String("VClient017")
	mod := im.AddModule("client.dll", 0x40)
	im.PutBytes(mod.BaseAddress+0x20, []byte("VClient017"))

	found, err := memory.ScanModule(im, "client.dll", "VClient017", true)
	require.NoError(t, err)
	require.Equal(t, []uintptr{mod.BaseAddress + 0x20}, found)
	require.NotContains(t, found, outside)

	_, err = memory.ScanModule(im, "engine.dll", "VClient017", false)
	require.ErrorIs(t, err, memory.ErrModuleNotFound)
}

func TestReadStringStopsAtTerminator(t *testing.T) {
	im := memtest.New(0x1000, 4)
	addr := im.String("DT_BaseEntity")

	s, err := memory.ReadString(im, addr, 256)
	require.NoError(t, err)
	require.Equal(t, "DT_BaseEntity", s)
}

func TestReadStringHonoursLongBounds(t *testing.T) {
	im := memtest.New(0x1000, 4)
	long := "m_" + strings.Repeat("x", 1500)
	addr := im.String(long)

	s, err := memory.ReadString(im, addr, 2048)
	require.NoError(t, err)
	require.Equal(t, long, s)

	s, err = memory.ReadString(im, addr, 5)
	require.NoError(t, err)
	require.Equal(t, "m_xxx", s)
}

func TestReadStringRejectsZeroBound(t *testing.T) {
	im := memtest.New(0x1000, 4)
	addr := im.String("DT_BaseEntity")

	_, err := memory.ReadString(im, addr, 0)
	require.ErrorIs(t, err, memory.ErrZeroLength)
}

func TestReadPointerFollowsTargetWidth(t *testing.T) {
	im := memtest.New(0x1000, 8)
	slot := im.Alloc(8)
	im.PutPointer(slot, 0x1122334455)

	p, err := memory.ReadPointer(im, slot)
	require.NoError(t, err)
	require.Equal(t, uintptr(0x1122334455), p)
}
