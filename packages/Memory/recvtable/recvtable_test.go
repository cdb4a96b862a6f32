package recvtable

import (
	"bytes"
	"testing"

	"netvardump/packages/Memory/memory"
	"netvardump/packages/Memory/memory/memtest"
	"netvardump/packages/Memory/netvar"
	"netvardump/packages/Memory/utils"

	"github.com/stretchr/testify/require"
)

const (
	tagInt       = 0
	tagFloat     = 1
	tagVector    = 2
	tagString    = 4
	tagArray     = 5
	tagDataTable = 6
	tagInt64     = 7
)

func options() Options {
	return Options{Offsets: utils.OffsetsSource2013, Module: "client.dll"}
}

func TestClassesDecodesListAndTables(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)

	inventory := b.Table("DT_Inventory", memtest.Prop{Name: "m_count", Type: tagInt, Offset: 0x10})
	player := b.Table("DT_Player",
		memtest.Prop{Name: "DT_Item", Type: tagDataTable, Table: inventory},
		memtest.Prop{Name: "m_health", Type: tagInt, Offset: 0x100},
		memtest.Prop{Name: "m_szLastPlaceName", Type: tagString, StringSize: 18},
		memtest.Prop{Name: "m_vecOrigin", Type: tagVector},
		memtest.Prop{Name: "m_iAmmo", Type: tagArray, Elements: 32, Stride: 4,
			Element: &memtest.Prop{Name: "m_iAmmo", Type: tagInt}},
		memtest.Prop{Name: "m_nTick", Type: tagInt64},
	)
	b.Class("CCSPlayer", 40, player)
	b.Class("CDummy", 7, 0)
	b.Class("CInventory", 12, inventory)
	obj := b.Interface("VClient017")

	classes, err := NewClient(b.Im, obj, options()).Classes()
	require.NoError(t, err)
	require.Len(t, classes, 3)

	require.Equal(t, "CCSPlayer", classes[0].Name)
	require.Equal(t, int32(40), classes[0].ID)
	require.Equal(t, "CDummy", classes[1].Name)
	require.Nil(t, classes[1].Table)

	pt := classes[0].Table
	require.Equal(t, "DT_Player", pt.Name)
	require.Equal(t, player, pt.Address)
	require.Equal(t, 6, pt.Count())

	item := pt.Props[0]
	require.Equal(t, netvar.KindDataTable, item.Kind)
	nested, ok := item.NestedTable()
	require.True(t, ok)
	require.Same(t, classes[2].Table, nested)
	require.Equal(t, int32(0x10), nested.Props[0].Offset)

	require.Equal(t, int32(0x100), pt.Props[1].Offset)
	require.Equal(t, int32(18), pt.Props[2].StringBufferSize)
	require.Equal(t, netvar.KindVector, pt.Props[3].Kind)

	ammo := pt.Props[4]
	require.Equal(t, netvar.KindArray, ammo.Kind)
	require.NotNil(t, ammo.Array)
	require.Equal(t, int32(32), ammo.Array.Elements)
	require.Equal(t, int32(4), ammo.Array.Stride)
	require.Equal(t, "m_iAmmo", ammo.Array.Element.Name)
	require.Equal(t, netvar.KindInt, ammo.Array.Element.Kind)

	require.Equal(t, netvar.KindInt64, pt.Props[5].Kind)
}

func TestClassesFeedDumper(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)
	inventory := b.Table("DT_Inventory", memtest.Prop{Name: "m_count", Type: tagInt})
	player := b.Table("DT_Player",
		memtest.Prop{Name: "DT_Item", Type: tagDataTable, Table: inventory},
		memtest.Prop{Name: "m_health", Type: tagInt},
		memtest.Prop{Name: "003", Type: tagInt},
	)
	b.Class("CPlayer", 1, player)
	obj := b.Interface("VClient017")

	classes, err := NewClient(b.Im, obj, options()).Classes()
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = netvar.Dump(&buf, classes[0].Table)
	require.NoError(t, err)
	require.Equal(t, "DT_Inventory->m_count\nDT_Player->DT_Item\nDT_Player->m_health\n", buf.String())
}

func TestClassesUnnamedPropDecodesAsNil(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)
	table := b.Table("DT_Sparse", memtest.Unnamed(), memtest.Prop{Name: "m_a", Type: tagFloat})
	b.Class("CSparse", 3, table)
	obj := b.Interface("VClient017")

	classes, err := NewClient(b.Im, obj, options()).Classes()
	require.NoError(t, err)
	require.Nil(t, classes[0].Table.Props[0])
	require.Equal(t, netvar.KindFloat, classes[0].Table.Props[1].Kind)
}

func TestClassesKeepsTableCycles(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)
	a := b.Table("DT_A", memtest.Prop{Name: "next", Type: tagDataTable})
	bt := b.Table("DT_B", memtest.Prop{Name: "back", Type: tagDataTable, Table: a})
	b.SetPropTable(a, 0, bt)
	b.Class("CA", 1, a)
	obj := b.Interface("VClient017")

	classes, err := NewClient(b.Im, obj, options()).Classes()
	require.NoError(t, err)

	ta := classes[0].Table
	tb, ok := ta.Props[0].NestedTable()
	require.True(t, ok)
	back, ok := tb.Props[0].NestedTable()
	require.True(t, ok)
	require.Same(t, ta, back)

	var buf bytes.Buffer
	_, err = netvar.Dump(&buf, ta)
	require.NoError(t, err)
	require.Equal(t, "DT_B->back\nDT_A->next\n", buf.String())
}

func TestClassesRejectsLoopingClassList(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)
	first := b.Class("CFirst", 1, 0)
	second := b.Class("CSecond", 2, 0)
	b.Link(second, first)
	obj := b.Interface("VClient017")

	_, err := NewClient(b.Im, obj, options()).Classes()
	require.ErrorContains(t, err, "loops back")
}

func TestClassesEnforcesPropLimit(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)
	table := b.Table("DT_Big",
		memtest.Prop{Name: "a", Type: tagInt},
		memtest.Prop{Name: "b", Type: tagInt},
		memtest.Prop{Name: "c", Type: tagInt},
	)
	b.Class("CBig", 1, table)
	obj := b.Interface("VClient017")

	opts := options()
	opts.MaxProps = 2
	_, err := NewClient(b.Im, obj, opts).Classes()
	require.ErrorContains(t, err, "declares 3 props")
}

func TestClassHeadFallsBackToSignature(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)
	b.Class("CWorld", 1, b.Table("DT_World", memtest.Prop{Name: "m_flWaveHeight", Type: tagFloat}))
	obj := b.Interface("VClient017")
	b.BreakGetAllClasses()

	_, err := NewClient(b.Im, obj, options()).ClassHead()
	require.ErrorIs(t, err, memory.ErrUnexpectedCode)

	opts := options()
	opts.AllClassesPattern = utils.DefaultConfig().AllClassesPattern
	classes, err := NewClient(b.Im, obj, opts).Classes()
	require.NoError(t, err)
	require.Len(t, classes, 1)
	require.Equal(t, "DT_World", classes[0].Table.Name)
}

func TestClassesRejectsPropLayoutOutsideStruct(t *testing.T) {
	b := memtest.NewClientBuilder(utils.OffsetsSource2013)
	obj := b.Interface("VClient017")

	opts := options()
	opts.Offsets.RecvPropSize = 0x20
	_, err := NewClient(b.Im, obj, opts).Classes()
	require.ErrorContains(t, err, "recv_prop_size")
}
