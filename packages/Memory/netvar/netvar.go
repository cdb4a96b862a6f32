// Package netvar models the client's network class descriptors and writes
// them out as a flat list of Table->Property names.
//
// Every value in this package is an immutable copy of structures that the
// game owns and keeps mutating. A snapshot is taken without any
// synchronization with the game, so it may contain torn or stale data.
package netvar

import "fmt"

// Kind is the send type of a property.
type Kind int

const (
	KindUnknown Kind = iota - 1
	KindInt
	KindFloat
	KindVector
	KindVectorXY
	KindString
	KindArray
	KindDataTable
	KindInt64
)

// KindFromTag maps the engine's raw type tag onto a Kind.
func KindFromTag(tag int32) Kind {
	if tag < int32(KindInt) || tag > int32(KindInt64) {
		return KindUnknown
	}
	return Kind(tag)
}

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindVector:
		return "vector"
	case KindVectorXY:
		return "vectorxy"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindDataTable:
		return "datatable"
	case KindInt64:
		return "int64"
	case KindUnknown:
		return "unknown"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type ClassDescriptor struct {
	Name  string
	ID    int32
	Table *PropertyTable
}

type PropertyTable struct {
	Name string
	// Address identifies the table in the game's address space.
	Address uintptr
	Props   []*Property
}

func (t *PropertyTable) Count() int {
	return len(t.Props)
}

type Property struct {
	Name   string
	Kind   Kind
	Offset int32

	// Array is set for KindArray.
	Array *ArrayInfo
	// Table is set for KindDataTable, and may still be nil.
	Table *PropertyTable
	// StringBufferSize is set for KindString.
	StringBufferSize int32
}

type ArrayInfo struct {
	Stride   int32
	Elements int32
	Element  *Property
}

// NestedTable returns the table a KindDataTable property points at.
func (p *Property) NestedTable() (*PropertyTable, bool) {
	if p == nil || p.Kind != KindDataTable || p.Table == nil {
		return nil, false
	}
	return p.Table, true
}

// Client is a resolved client interface.
type Client interface {
	// Classes snapshots the class list in the order the game keeps it.
	Classes() ([]*ClassDescriptor, error)
}

// Resolver finds a versioned interface inside a loaded module.
type Resolver interface {
	Resolve(module, name string) (Client, error)
}
