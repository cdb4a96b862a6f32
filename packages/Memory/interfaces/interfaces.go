// Package interfaces finds versioned engine interfaces in another process by
// walking the InterfaceReg list behind a module's CreateInterface export.
package interfaces

import (
	"errors"
	"fmt"

	"netvardump/packages/Memory/memory"
	"netvardump/packages/Memory/netvar"
	"netvardump/packages/Memory/recvtable"
)

const (
	CreateInterfaceExport = "CreateInterface"

	maxRegistrations = 1024
)

var (
	ErrExportNotFound    = errors.New("export not found")
	ErrInterfaceNotFound = errors.New("interface not found")
)

// Registration is one InterfaceReg node.
type Registration struct {
	Name     string
	CreateFn uintptr
	Address  uintptr
}

type Resolver struct {
	Mem  memory.Process
	opts recvtable.Options
}

var _ netvar.Resolver = (*Resolver)(nil)

func NewResolver(mem memory.Process, opts recvtable.Options) *Resolver {
	return &Resolver{Mem: mem, opts: opts}
}

// Resolve returns the client interface named name, for example "VClient017".
// The name has to match exactly, version suffix included.
func (r *Resolver) Resolve(module, name string) (netvar.Client, error) {
	addr, err := r.Instance(module, name)
	if err != nil {
		return nil, err
	}
	opts := r.opts
	opts.Module = module
	return recvtable.NewClient(r.Mem, addr, opts), nil
}

// Instance returns the address of the object the named factory hands out.
func (r *Resolver) Instance(module, name string) (uintptr, error) {
	regs, err := r.Interfaces(module)
	if err != nil {
		return 0, err
	}
	for _, reg := range regs {
		if reg.Name == name {
			addr, err := memory.ImmediateMovEax(r.Mem, reg.CreateFn)
			if err != nil {
				return 0, fmt.Errorf("factory of %s: %w", name, err)
			}
			return addr, nil
		}
	}
	return 0, fmt.Errorf("%s in %s: %w", name, module, ErrInterfaceNotFound)
}

// Interfaces lists every interface module registers, in list order.
func (r *Resolver) Interfaces(module string) ([]Registration, error) {
	off := r.opts.Offsets

	create, err := ExportAddress(r.Mem, module, CreateInterfaceExport)
	if err != nil {
		return nil, err
	}
	internal, err := memory.JmpTarget(r.Mem, create+uintptr(off.CreateInterfaceJmp))
	if err != nil {
		return nil, fmt.Errorf("CreateInterface of %s: %w", module, err)
	}
	regsRef, err := memory.ReadPointer(r.Mem, internal+uintptr(off.InterfaceRegsRef))
	if err != nil {
		return nil, fmt.Errorf("s_pInterfaceRegs reference: %w", err)
	}
	node, err := memory.ReadPointer(r.Mem, regsRef)
	if err != nil {
		return nil, fmt.Errorf("s_pInterfaceRegs: %w", err)
	}

	var regs []Registration
	for node != 0 {
		if len(regs) >= maxRegistrations {
			return nil, fmt.Errorf("interface list of %s longer than %d entries", module, maxRegistrations)
		}
		reg, next, err := r.registration(node)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
		node = next
	}
	return regs, nil
}

func (r *Resolver) registration(node uintptr) (Registration, uintptr, error) {
	off := r.opts.Offsets

	fn, err := memory.ReadPointer(r.Mem, node+uintptr(off.InterfaceRegCreateFn))
	if err != nil {
		return Registration{}, 0, fmt.Errorf("InterfaceReg %#x: %w", node, err)
	}
	namePtr, err := memory.ReadPointer(r.Mem, node+uintptr(off.InterfaceRegName))
	if err != nil {
		return Registration{}, 0, fmt.Errorf("InterfaceReg %#x: %w", node, err)
	}
	name, err := memory.ReadString(r.Mem, namePtr, 128)
	if err != nil {
		return Registration{}, 0, fmt.Errorf("InterfaceReg %#x name: %w", node, err)
	}
	next, err := memory.ReadPointer(r.Mem, node+uintptr(off.InterfaceRegNext))
	if err != nil {
		return Registration{}, 0, fmt.Errorf("InterfaceReg %#x: %w", node, err)
	}
	return Registration{Name: name, CreateFn: fn, Address: node}, next, nil
}
