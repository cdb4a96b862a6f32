package utils

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

const DefaultConfigFile = "netvardump.hcl"

type Config struct {
	Process   string
	Module    string
	Interface string
	Output    string

	// AllClassesPattern is an optional signature for the instruction that
	// loads the class list head, used when the vtable decode fails.
	AllClassesPattern string

	MaxClasses int
	MaxProps   int

	Offsets Offsets
}

func DefaultConfig() Config {
	return Config{
		Process:           "hl2.exe",
		Module:            "client.dll",
		Interface:         "VClient017",
		Output:            "netvar_dump.txt",
		AllClassesPattern: "A1 ?? ?? ?? ?? C3 CC CC A1 ?? ?? ?? ?? B9",
		MaxClasses:        4096,
		MaxProps:          4096,
		Offsets:           OffsetsSource2013,
	}
}

type fileConfig struct {
	Target  *targetBlock  `hcl:"target,block"`
	Offsets *offsetsBlock `hcl:"offsets,block"`
}

type targetBlock struct {
	Process           *string `hcl:"process,optional"`
	Module            *string `hcl:"module,optional"`
	Interface         *string `hcl:"interface,optional"`
	Output            *string `hcl:"output,optional"`
	AllClassesPattern *string `hcl:"all_classes_pattern,optional"`
	MaxClasses        *int    `hcl:"max_classes,optional"`
	MaxProps          *int    `hcl:"max_props,optional"`
}

type offsetsBlock struct {
	InterfaceRegCreateFn *uint64 `hcl:"interface_reg_create_fn,optional"`
	InterfaceRegName     *uint64 `hcl:"interface_reg_name,optional"`
	InterfaceRegNext     *uint64 `hcl:"interface_reg_next,optional"`
	CreateInterfaceJmp   *uint64 `hcl:"create_interface_jmp,optional"`
	InterfaceRegsRef     *uint64 `hcl:"interface_regs_ref,optional"`
	GetAllClassesIndex   *uint64 `hcl:"get_all_classes_index,optional"`
	ClientClassName      *uint64 `hcl:"client_class_name,optional"`
	ClientClassTable     *uint64 `hcl:"client_class_table,optional"`
	ClientClassNext      *uint64 `hcl:"client_class_next,optional"`
	ClientClassID        *uint64 `hcl:"client_class_id,optional"`
	RecvTableProps       *uint64 `hcl:"recv_table_props,optional"`
	RecvTableCount       *uint64 `hcl:"recv_table_count,optional"`
	RecvTableName        *uint64 `hcl:"recv_table_name,optional"`
	RecvPropSize         *uint64 `hcl:"recv_prop_size,optional"`
	RecvPropName         *uint64 `hcl:"recv_prop_name,optional"`
	RecvPropType         *uint64 `hcl:"recv_prop_type,optional"`
	RecvPropStringBuffer *uint64 `hcl:"recv_prop_string_buffer,optional"`
	RecvPropArrayProp    *uint64 `hcl:"recv_prop_array_prop,optional"`
	RecvPropDataTable    *uint64 `hcl:"recv_prop_data_table,optional"`
	RecvPropOffset       *uint64 `hcl:"recv_prop_offset,optional"`
	RecvPropStride       *uint64 `hcl:"recv_prop_stride,optional"`
	RecvPropElements     *uint64 `hcl:"recv_prop_elements,optional"`
}

// LoadConfig returns the defaults overlaid with whatever path sets. A missing
// file is not an error when optional is true.
func LoadConfig(path string, optional bool) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return cfg, fmt.Errorf("parse %s: %s", path, diags.Error())
	}

	var fc fileConfig
	if diags := gohcl.DecodeBody(f.Body, nil, &fc); diags.HasErrors() {
		return cfg, fmt.Errorf("decode %s: %s", path, diags.Error())
	}

	if t := fc.Target; t != nil {
		set(&cfg.Process, t.Process)
		set(&cfg.Module, t.Module)
		set(&cfg.Interface, t.Interface)
		set(&cfg.Output, t.Output)
		set(&cfg.AllClassesPattern, t.AllClassesPattern)
		set(&cfg.MaxClasses, t.MaxClasses)
		set(&cfg.MaxProps, t.MaxProps)
	}

	if o := fc.Offsets; o != nil {
		off := &cfg.Offsets
		set(&off.InterfaceRegCreateFn, o.InterfaceRegCreateFn)
		set(&off.InterfaceRegName, o.InterfaceRegName)
		set(&off.InterfaceRegNext, o.InterfaceRegNext)
		set(&off.CreateInterfaceJmp, o.CreateInterfaceJmp)
		set(&off.InterfaceRegsRef, o.InterfaceRegsRef)
		set(&off.GetAllClassesIndex, o.GetAllClassesIndex)
		set(&off.ClientClassName, o.ClientClassName)
		set(&off.ClientClassTable, o.ClientClassTable)
		set(&off.ClientClassNext, o.ClientClassNext)
		set(&off.ClientClassID, o.ClientClassID)
		set(&off.RecvTableProps, o.RecvTableProps)
		set(&off.RecvTableCount, o.RecvTableCount)
		set(&off.RecvTableName, o.RecvTableName)
		set(&off.RecvPropSize, o.RecvPropSize)
		set(&off.RecvPropName, o.RecvPropName)
		set(&off.RecvPropType, o.RecvPropType)
		set(&off.RecvPropStringBuffer, o.RecvPropStringBuffer)
		set(&off.RecvPropArrayProp, o.RecvPropArrayProp)
		set(&off.RecvPropDataTable, o.RecvPropDataTable)
		set(&off.RecvPropOffset, o.RecvPropOffset)
		set(&off.RecvPropStride, o.RecvPropStride)
		set(&off.RecvPropElements, o.RecvPropElements)
	}

	if cfg.Output == "" {
		return cfg, fmt.Errorf("config %s: output must not be empty", path)
	}
	if cfg.Offsets.RecvPropSize == 0 {
		return cfg, fmt.Errorf("config %s: recv_prop_size must not be zero", path)
	}

	return cfg, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
