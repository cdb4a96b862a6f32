package interfaces

import (
	"testing"

	"netvardump/packages/Memory/memory"
	"netvardump/packages/Memory/memory/memtest"
	"netvardump/packages/Memory/recvtable"
	"netvardump/packages/Memory/utils"

	"github.com/stretchr/testify/require"
)

func newResolver(b *memtest.ClientBuilder) *Resolver {
	return NewResolver(b.Im, recvtable.Options{Offsets: b.Off})
}

func TestExportAddressFindsCreateInterface(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)

	addr, err := ExportAddress(b.Im, "client.dll", CreateInterfaceExport)
	require.NoError(t, err)
	require.True(t, b.Module.Contains(addr))

	code, err := b.Im.ReadMemory(addr+4, 1)
	require.NoError(t, err)
	require.Equal(t, byte(0xE9), code[0])
}

func TestExportAddressMissingExport(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)

	_, err := ExportAddress(b.Im, "client.dll", "CreateInterfaceEx")
	require.ErrorIs(t, err, ErrExportNotFound)
}

func TestExportAddressMissingModule(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)

	_, err := ExportAddress(b.Im, "engine.dll", CreateInterfaceExport)
	require.ErrorIs(t, err, memory.ErrModuleNotFound)
}

func TestExportAddressRejectsNonPEModule(t *testing.T) {
	im := memtest.New(0x400000, 4)
	im.AddModule("junk.dll", 0x100)

	_, err := ExportAddress(im, "junk.dll", CreateInterfaceExport)
	require.ErrorContains(t, err, "DOS signature")
}

func TestInterfacesListsRegistrationsInOrder(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)
	b.Interface("VClientEntityList003")
	b.Interface("VClient017")
	b.Interface("VClientPrediction001")

	regs, err := newResolver(b).Interfaces("client.dll")
	require.NoError(t, err)

	var names []string
	for _, r := range regs {
		names = append(names, r.Name)
	}
	require.Equal(t, []string{"VClientEntityList003", "VClient017", "VClientPrediction001"}, names)
}

func TestInstanceDecodesFactory(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)
	b.Interface("VClientEntityList003")
	want := b.Interface("VClient017")

	got, err := newResolver(b).Instance("client.dll", "VClient017")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestInstanceRequiresExactVersion(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)
	b.Interface("VClient017")

	_, err := newResolver(b).Instance("client.dll", "VClient017")
	require.ErrorIs(t, err, ErrInterfaceNotFound)

	_, err = newResolver(b).Instance("client.dll", "VClient")
	require.ErrorIs(t, err, ErrInterfaceNotFound)
}

func TestInstanceRejectsUnexpectedCreateInterface(t *testing.T) {
	off := utils.OffsetsSource2013
	b := memtest.NewClientBuilder(off)
	b.Interface("VClient017")

	off.CreateInterfaceJmp = 0
	_, err := NewResolver(b.Im, recvtable.Options{Offsets: off}).Instance("client.dll", "VClient017")
	require.ErrorIs(t, err, memory.ErrUnexpectedCode)
}

func TestResolveReturnsWorkingClient(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)
	table := b.Table("DT_CSPlayer", memtest.Prop{Name: "m_iHealth", Type: 0})
	b.Class("CCSPlayer", 40, table)
	b.Interface("VClient017")

	client, err := newResolver(b).Resolve("client.dll", "VClient017")
	require.NoError(t, err)

	classes, err := client.Classes()
	require.NoError(t, err)
	require.Len(t, classes, 1)
	require.Equal(t, "CCSPlayer", classes[0].Name)
	require.Equal(t, "DT_CSPlayer", classes[0].Table.Name)
	require.Equal(t, "m_iHealth", classes[0].Table.Props[0].Name)
}
