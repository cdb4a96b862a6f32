// Package recvtable reads the client's ClientClass list and RecvTables out
// of another process and turns them into netvar snapshots.
package recvtable

import (
	"encoding/binary"
	"errors"
	"fmt"

	"netvardump/packages/Memory/memory"
	"netvardump/packages/Memory/netvar"
	"netvardump/packages/Memory/utils"

	"github.com/eapache/queue"
)

const maxNameLength = 256

type Options struct {
	Offsets utils.Offsets
	// Module and AllClassesPattern locate the class list head by signature
	// when the GetAllClasses vtable entry cannot be decoded.
	Module            string
	AllClassesPattern string
	MaxClasses        int
	MaxProps          int
}

func OptionsFromConfig(cfg utils.Config) Options {
	return Options{
		Offsets:           cfg.Offsets,
		Module:            cfg.Module,
		AllClassesPattern: cfg.AllClassesPattern,
		MaxClasses:        cfg.MaxClasses,
		MaxProps:          cfg.MaxProps,
	}
}

// Client is a resolved IBaseClientDLL instance in the target process.
type Client struct {
	Mem     memory.Process
	Address uintptr
	opts    Options
}

var _ netvar.Client = (*Client)(nil)

func NewClient(mem memory.Process, address uintptr, opts Options) *Client {
	if opts.MaxClasses <= 0 {
		opts.MaxClasses = 4096
	}
	if opts.MaxProps <= 0 {
		opts.MaxProps = 4096
	}
	return &Client{Mem: mem, Address: address, opts: opts}
}

// ClassHead returns the address of the first ClientClass.
func (c *Client) ClassHead() (uintptr, error) {
	head, err := c.headFromVtable()
	if err == nil || !errors.Is(err, memory.ErrUnexpectedCode) || c.opts.AllClassesPattern == "" {
		return head, err
	}
	return c.headFromPattern()
}

func (c *Client) headFromVtable() (uintptr, error) {
	vtable, err := memory.ReadPointer(c.Mem, c.Address)
	if err != nil {
		return 0, fmt.Errorf("read vtable of %#x: %w", c.Address, err)
	}
	slot := vtable + uintptr(c.opts.Offsets.GetAllClassesIndex)*c.Mem.PointerSize()
	fn, err := memory.ReadPointer(c.Mem, slot)
	if err != nil {
		return 0, fmt.Errorf("read GetAllClasses slot %#x: %w", slot, err)
	}
	ref, err := memory.MemoryMovEax(c.Mem, fn)
	if err != nil {
		return 0, err
	}
	return memory.ReadPointer(c.Mem, ref)
}

func (c *Client) headFromPattern() (uintptr, error) {
	found, err := memory.ScanModule(c.Mem, c.opts.Module, c.opts.AllClassesPattern, false)
	if err != nil {
		return 0, fmt.Errorf("scan %s for class list: %w", c.opts.Module, err)
	}
	if len(found) == 0 {
		return 0, fmt.Errorf("class list signature not found in %s: %w", c.opts.Module, memory.ErrUnexpectedCode)
	}
	ref, err := memory.ReadUint32(c.Mem, found[0]+1)
	if err != nil {
		return 0, err
	}
	return memory.ReadPointer(c.Mem, uintptr(ref))
}

// Classes walks the ClientClass list and copies every reachable RecvTable.
// Each table address becomes exactly one *netvar.PropertyTable, so shared
// tables stay shared and reference cycles survive as pointer cycles.
func (c *Client) Classes() ([]*netvar.ClassDescriptor, error) {
	if err := checkPropLayout(c.opts.Offsets, c.Mem.PointerSize()); err != nil {
		return nil, err
	}
	head, err := c.ClassHead()
	if err != nil {
		return nil, err
	}

	s := &snapshot{
		c:       c,
		tables:  map[uintptr]*netvar.PropertyTable{},
		pending: queue.New(),
	}

	var classes []*netvar.ClassDescriptor
	seen := map[uintptr]struct{}{}
	off := c.opts.Offsets

	for addr := head; addr != 0; {
		if _, ok := seen[addr]; ok {
			return nil, fmt.Errorf("class list loops back to %#x", addr)
		}
		if len(classes) >= c.opts.MaxClasses {
			return nil, fmt.Errorf("class list longer than %d entries", c.opts.MaxClasses)
		}
		seen[addr] = struct{}{}

		class, next, err := s.class(addr, off)
		if err != nil {
			return nil, err
		}
		classes = append(classes, class)
		addr = next
	}

	if err := s.drain(); err != nil {
		return nil, err
	}
	return classes, nil
}

// checkPropLayout makes sure every RecvProp field lies inside RecvPropSize.
func checkPropLayout(off utils.Offsets, ptrSize uintptr) error {
	ptr := uint64(ptrSize)
	need := max(
		off.RecvPropName+ptr,
		off.RecvPropType+4,
		off.RecvPropStringBuffer+4,
		off.RecvPropArrayProp+ptr,
		off.RecvPropDataTable+ptr,
		off.RecvPropOffset+4,
		off.RecvPropStride+4,
		off.RecvPropElements+4,
	)
	if need > off.RecvPropSize {
		return fmt.Errorf("RecvProp fields need %#x bytes but recv_prop_size is %#x", need, off.RecvPropSize)
	}
	return nil
}

type snapshot struct {
	c       *Client
	tables  map[uintptr]*netvar.PropertyTable
	pending *queue.Queue
}

func (s *snapshot) class(addr uintptr, off utils.Offsets) (*netvar.ClassDescriptor, uintptr, error) {
	mem := s.c.Mem

	namePtr, err := memory.ReadPointer(mem, addr+uintptr(off.ClientClassName))
	if err != nil {
		return nil, 0, fmt.Errorf("class %#x name: %w", addr, err)
	}
	name := ""
	if namePtr != 0 {
		if name, err = memory.ReadString(mem, namePtr, maxNameLength); err != nil {
			return nil, 0, fmt.Errorf("class %#x name: %w", addr, err)
		}
	}
	tablePtr, err := memory.ReadPointer(mem, addr+uintptr(off.ClientClassTable))
	if err != nil {
		return nil, 0, fmt.Errorf("class %s table: %w", name, err)
	}
	id, err := memory.ReadInt32(mem, addr+uintptr(off.ClientClassID))
	if err != nil {
		return nil, 0, fmt.Errorf("class %s id: %w", name, err)
	}
	next, err := memory.ReadPointer(mem, addr+uintptr(off.ClientClassNext))
	if err != nil {
		return nil, 0, fmt.Errorf("class %s next: %w", name, err)
	}

	return &netvar.ClassDescriptor{Name: name, ID: id, Table: s.table(tablePtr)}, next, nil
}

// table returns the view for addr, queueing it to be filled on first sight.
func (s *snapshot) table(addr uintptr) *netvar.PropertyTable {
	if addr == 0 {
		return nil
	}
	if t, ok := s.tables[addr]; ok {
		return t
	}
	t := &netvar.PropertyTable{Address: addr}
	s.tables[addr] = t
	s.pending.Add(addr)
	return t
}

func (s *snapshot) drain() error {
	for s.pending.Length() > 0 {
		addr := s.pending.Remove().(uintptr)
		if err := s.fill(s.tables[addr]); err != nil {
			return err
		}
	}
	return nil
}

func (s *snapshot) fill(t *netvar.PropertyTable) error {
	mem := s.c.Mem
	off := s.c.opts.Offsets

	namePtr, err := memory.ReadPointer(mem, t.Address+uintptr(off.RecvTableName))
	if err != nil {
		return fmt.Errorf("table %#x name: %w", t.Address, err)
	}
	if namePtr != 0 {
		if t.Name, err = memory.ReadString(mem, namePtr, maxNameLength); err != nil {
			return fmt.Errorf("table %#x name: %w", t.Address, err)
		}
	}

	count, err := memory.ReadInt32(mem, t.Address+uintptr(off.RecvTableCount))
	if err != nil {
		return fmt.Errorf("table %s count: %w", t.Name, err)
	}
	if count < 0 || int(count) > s.c.opts.MaxProps {
		return fmt.Errorf("table %s declares %d props", t.Name, count)
	}
	if count == 0 {
		return nil
	}

	props, err := memory.ReadPointer(mem, t.Address+uintptr(off.RecvTableProps))
	if err != nil {
		return fmt.Errorf("table %s props: %w", t.Name, err)
	}
	if props == 0 {
		return nil
	}

	size := uintptr(off.RecvPropSize)
	raw, err := mem.ReadMemory(props, size*uintptr(count))
	if err != nil {
		return fmt.Errorf("table %s props at %#x: %w", t.Name, props, err)
	}

	t.Props = make([]*netvar.Property, count)
	for i := range t.Props {
		p, err := s.prop(raw[uintptr(i)*size:uintptr(i+1)*size], true)
		if err != nil {
			return fmt.Errorf("table %s prop %d: %w", t.Name, i, err)
		}
		t.Props[i] = p
	}
	return nil
}

// prop decodes one RecvProp. An entry without a name pointer decodes as nil.
func (s *snapshot) prop(raw []byte, followArray bool) (*netvar.Property, error) {
	mem := s.c.Mem
	off := s.c.opts.Offsets

	namePtr := s.pointerAt(raw, off.RecvPropName)
	if namePtr == 0 {
		return nil, nil
	}
	name, err := memory.ReadString(mem, namePtr, maxNameLength)
	if err != nil {
		return nil, err
	}

	p := &netvar.Property{
		Name:   name,
		Kind:   netvar.KindFromTag(int32At(raw, off.RecvPropType)),
		Offset: int32At(raw, off.RecvPropOffset),
	}

	switch p.Kind {
	case netvar.KindDataTable:
		p.Table = s.table(s.pointerAt(raw, off.RecvPropDataTable))
	case netvar.KindString:
		p.StringBufferSize = int32At(raw, off.RecvPropStringBuffer)
	case netvar.KindArray:
		p.Array = &netvar.ArrayInfo{
			Stride:   int32At(raw, off.RecvPropStride),
			Elements: int32At(raw, off.RecvPropElements),
		}
		if elem := s.pointerAt(raw, off.RecvPropArrayProp); elem != 0 && followArray {
			b, err := mem.ReadMemory(elem, uintptr(off.RecvPropSize))
			if err != nil {
				return nil, fmt.Errorf("array element of %s: %w", name, err)
			}
			if p.Array.Element, err = s.prop(b, false); err != nil {
				return nil, fmt.Errorf("array element of %s: %w", name, err)
			}
		}
	}
	return p, nil
}

func (s *snapshot) pointerAt(raw []byte, off uint64) uintptr {
	if s.c.Mem.PointerSize() == 8 {
		return uintptr(binary.LittleEndian.Uint64(raw[off:]))
	}
	return uintptr(binary.LittleEndian.Uint32(raw[off:]))
}

func int32At(raw []byte, off uint64) int32 {
	return int32(binary.LittleEndian.Uint32(raw[off:]))
}
