package utils

// Offsets describes the x86 layout of the client structures that are read.
// All values are byte offsets from the start of the structure unless noted.
type Offsets struct {
	// InterfaceReg
	InterfaceRegCreateFn uint64
	InterfaceRegName     uint64
	InterfaceRegNext     uint64

	// CreateInterface -> CreateInterfaceInternal -> s_pInterfaceRegs
	CreateInterfaceJmp uint64
	InterfaceRegsRef   uint64

	// IBaseClientDLL vtable index of GetAllClasses
	GetAllClassesIndex uint64

	// ClientClass
	ClientClassName  uint64
	ClientClassTable uint64
	ClientClassNext  uint64
	ClientClassID    uint64

	// RecvTable
	RecvTableProps uint64
	RecvTableCount uint64
	RecvTableName  uint64

	// RecvProp
	RecvPropSize         uint64
	RecvPropName         uint64
	RecvPropType         uint64
	RecvPropStringBuffer uint64
	RecvPropArrayProp    uint64
	RecvPropDataTable    uint64
	RecvPropOffset       uint64
	RecvPropStride       uint64
	RecvPropElements     uint64
}

// OffsetsSource2013 is the 32-bit Source 2013 layout shipped by the Garry's Mod
// client.
var OffsetsSource2013 = Offsets{
	InterfaceRegCreateFn: 0x0,
	InterfaceRegName:     0x4,
	InterfaceRegNext:     0x8,

	CreateInterfaceJmp: 0x4,
	InterfaceRegsRef:   0x6,

	GetAllClassesIndex: 8,

	ClientClassName:  0x8,
	ClientClassTable: 0xC,
	ClientClassNext:  0x10,
	ClientClassID:    0x14,

	RecvTableProps: 0x0,
	RecvTableCount: 0x4,
	RecvTableName:  0xC,

	RecvPropSize:         0x3C,
	RecvPropName:         0x0,
	RecvPropType:         0x4,
	RecvPropStringBuffer: 0xC,
	RecvPropArrayProp:    0x18,
	RecvPropDataTable:    0x28,
	RecvPropOffset:       0x2C,
	RecvPropStride:       0x30,
	RecvPropElements:     0x34,
}
