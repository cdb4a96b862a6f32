package memtest

import (
	"netvardump/packages/Memory/memory"
	"netvardump/packages/Memory/utils"
)

// Layout of the fake client module, as RVAs.
const (
	rvaExportDir     = 0x100
	rvaFunctions     = 0x140
	rvaNames         = 0x144
	rvaOrdinals      = 0x148
	rvaExportName    = 0x160
	rvaCreate        = 0x180
	rvaCreateInner   = 0x1A0
	rvaRegsVar       = 0x1E0
	rvaGetAllClasses = 0x200
	rvaClassHeadVar  = 0x220
	rvaSignature     = 0x240
	rvaFactories     = 0x280
	factorySize      = 0x10
	moduleSize       = 0x800
)

// Prop describes one RecvProp written by ClientBuilder.
type Prop struct {
	Name       string
	Type       int32
	Offset     int32
	Table      uintptr
	Element    *Prop
	Elements   int32
	Stride     int32
	StringSize int32
}

// ClientBuilder lays out a 32-bit client.dll with a CreateInterface export,
// an InterfaceReg list and a ClientClass list, using the given offsets.
type ClientBuilder struct {
	Im     *Image
	Off    utils.Offsets
	Module memory.ModuleInfo

	lastClass uintptr
	lastReg   uintptr
	factories int
	headVar   uintptr
}

func NewClientBuilder(off utils.Offsets) *ClientBuilder {
	im := New(0x10000000, 4)
	b := &ClientBuilder{Im: im, Off: off}
	b.Module = im.AddModule("client.dll", moduleSize)
	b.headVar = b.rva(rvaClassHeadVar)
	b.writeHeaders()
	b.writeCode()
	return b
}

func (b *ClientBuilder) rva(r uintptr) uintptr {
	return b.Module.BaseAddress + r
}

func (b *ClientBuilder) writeHeaders() {
	im := b.Im
	im.PutUint16(b.rva(0), 0x5A4D)
	im.PutUint32(b.rva(0x3C), 0x40)
	im.PutUint32(b.rva(0x40), 0x00004550)
	im.PutUint16(b.rva(0x40+4+20), 0x10b)
	im.PutUint32(b.rva(0x40+4+20+96), rvaExportDir)

	dir := b.rva(rvaExportDir)
	im.PutUint32(dir+0x14, 1) // NumberOfFunctions
	im.PutUint32(dir+0x18, 1) // NumberOfNames
	im.PutUint32(dir+0x1C, rvaFunctions)
	im.PutUint32(dir+0x20, rvaNames)
	im.PutUint32(dir+0x24, rvaOrdinals)

	im.PutUint32(b.rva(rvaFunctions), rvaCreate)
	im.PutUint32(b.rva(rvaNames), rvaExportName)
	im.PutUint16(b.rva(rvaOrdinals), 0)
	im.PutBytes(b.rva(rvaExportName), []byte("CreateInterface\x00"))
}

func (b *ClientBuilder) writeCode() {
	im := b.Im

	// CreateInterface: push ebp; mov ebp, esp; pop ebp; jmp CreateInterfaceInternal
	create := b.rva(rvaCreate)
	im.PutBytes(create, []byte{0x55, 0x8B, 0xEC, 0x5D})
	jmp := create + uintptr(b.Off.CreateInterfaceJmp)
	im.PutBytes(jmp, []byte{0xE9})
	im.PutUint32(jmp+1, uint32(int32(b.rva(rvaCreateInner))-int32(jmp+5)))

	// CreateInterfaceInternal: push ebp; mov ebp, esp; push esi; mov esi, [s_pInterfaceRegs]
	inner := b.rva(rvaCreateInner)
	im.PutBytes(inner, []byte{0x55, 0x8B, 0xEC, 0x56, 0x8B, 0x35})
	im.PutUint32(inner+uintptr(b.Off.InterfaceRegsRef), uint32(b.rva(rvaRegsVar)))

	// GetAllClasses: mov eax, [g_pClientClassHead]; ret
	fn := b.rva(rvaGetAllClasses)
	im.PutBytes(fn, []byte{0xA1})
	im.PutUint32(fn+1, uint32(b.headVar))
	im.PutBytes(fn+5, []byte{0xC3})
}

// BreakGetAllClasses overwrites GetAllClasses with nops, so the class list
// can only be found through the module signature.
func (b *ClientBuilder) BreakGetAllClasses() {
	nops := make([]byte, 0x10)
	for i := range nops {
		nops[i] = 0x90
	}
	b.Im.PutBytes(b.rva(rvaGetAllClasses), nops)

	sig := b.rva(rvaSignature)
	b.Im.PutBytes(sig, []byte{0xA1, 0, 0, 0, 0, 0xC3, 0xCC, 0xCC, 0xA1, 0, 0, 0, 0, 0xB9})
	b.Im.PutUint32(sig+1, uint32(b.headVar))
}

// Interface registers name and returns the object its factory hands out.
// Objects get a vtable whose GetAllClasses slot points at the real function.
func (b *ClientBuilder) Interface(name string) uintptr {
	im := b.Im

	slots := int(b.Off.GetAllClassesIndex) + 1
	vtable := im.Alloc(slots * 4)
	im.PutPointer(vtable+uintptr(b.Off.GetAllClassesIndex)*4, b.rva(rvaGetAllClasses))
	object := im.Alloc(16)
	im.PutPointer(object, vtable)

	factory := b.rva(rvaFactories + uintptr(b.factories)*factorySize)
	b.factories++
	// push ebp; mov ebp, esp; mov eax, object; pop ebp; ret
	im.PutBytes(factory, []byte{0x55, 0x8B, 0xEC, 0xB8})
	im.PutUint32(factory+4, uint32(object))
	im.PutBytes(factory+8, []byte{0x5D, 0xC3})

	reg := im.Alloc(int(max(b.Off.InterfaceRegCreateFn, b.Off.InterfaceRegName, b.Off.InterfaceRegNext)) + 4)
	im.PutPointer(reg+uintptr(b.Off.InterfaceRegCreateFn), factory)
	im.PutPointer(reg+uintptr(b.Off.InterfaceRegName), im.String(name))
	if b.lastReg == 0 {
		im.PutPointer(b.rva(rvaRegsVar), reg)
	} else {
		im.PutPointer(b.lastReg+uintptr(b.Off.InterfaceRegNext), reg)
	}
	b.lastReg = reg
	return object
}

// Table writes a RecvTable and its contiguous RecvProp array.
func (b *ClientBuilder) Table(name string, props ...Prop) uintptr {
	im := b.Im
	off := b.Off

	table := im.Alloc(int(max(off.RecvTableProps, off.RecvTableCount, off.RecvTableName)) + 4)
	im.PutPointer(table+uintptr(off.RecvTableName), im.String(name))
	im.PutUint32(table+uintptr(off.RecvTableCount), uint32(len(props)))
	if len(props) == 0 {
		return table
	}

	size := uintptr(off.RecvPropSize)
	array := im.Alloc(int(size) * len(props))
	im.PutPointer(table+uintptr(off.RecvTableProps), array)
	for i, p := range props {
		b.writeProp(array+uintptr(i)*size, p)
	}
	return table
}

// Unnamed returns a prop whose name pointer is null.
func Unnamed() Prop {
	return Prop{}
}

func (b *ClientBuilder) writeProp(at uintptr, p Prop) {
	im := b.Im
	off := b.Off

	if p.Name != "" {
		im.PutPointer(at+uintptr(off.RecvPropName), im.String(p.Name))
	}
	im.PutUint32(at+uintptr(off.RecvPropType), uint32(p.Type))
	im.PutUint32(at+uintptr(off.RecvPropOffset), uint32(p.Offset))
	im.PutUint32(at+uintptr(off.RecvPropStringBuffer), uint32(p.StringSize))
	im.PutUint32(at+uintptr(off.RecvPropElements), uint32(p.Elements))
	im.PutUint32(at+uintptr(off.RecvPropStride), uint32(p.Stride))
	if p.Table != 0 {
		im.PutPointer(at+uintptr(off.RecvPropDataTable), p.Table)
	}
	if p.Element != nil {
		elem := im.Alloc(int(off.RecvPropSize))
		b.writeProp(elem, *p.Element)
		im.PutPointer(at+uintptr(off.RecvPropArrayProp), elem)
	}
}

// Class appends a ClientClass to the list.
func (b *ClientBuilder) Class(name string, id int32, table uintptr) uintptr {
	im := b.Im
	off := b.Off

	class := im.Alloc(int(max(off.ClientClassName, off.ClientClassTable, off.ClientClassNext, off.ClientClassID)) + 4)
	im.PutPointer(class+uintptr(off.ClientClassName), im.String(name))
	im.PutPointer(class+uintptr(off.ClientClassTable), table)
	im.PutUint32(class+uintptr(off.ClientClassID), uint32(id))
	if b.lastClass == 0 {
		im.PutPointer(b.headVar, class)
	} else {
		im.PutPointer(b.lastClass+uintptr(off.ClientClassNext), class)
	}
	b.lastClass = class
	return class
}

// Link points the next field of class at target, for building loops.
func (b *ClientBuilder) Link(class, target uintptr) {
	b.Im.PutPointer(class+uintptr(b.Off.ClientClassNext), target)
}

// SetPropTable rewrites the data table pointer of prop index i of table.
func (b *ClientBuilder) SetPropTable(table uintptr, i int, target uintptr) {
	array, err := memory.ReadPointer(b.Im, table+uintptr(b.Off.RecvTableProps))
	if err != nil {
		panic(err)
	}
	b.Im.PutPointer(array+uintptr(i)*uintptr(b.Off.RecvPropSize)+uintptr(b.Off.RecvPropDataTable), target)
}
