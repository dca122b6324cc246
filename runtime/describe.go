package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// FunctionInfo describes one exported function.
type FunctionInfo struct {
	Name    string
	WIT     string // declared signature, empty when none
	Params  []api.ValueType
	Results []api.ValueType
}

// ModuleInfo describes a loaded module.
type ModuleInfo struct {
	Name      string
	Origin    string
	Functions []FunctionInfo
}

// Describe loads module name, if needed, and lists its callable exports.
func (b *Bridge) Describe(ctx context.Context, name string) (*ModuleInfo, error) {
	if err := b.init(ctx); err != nil {
		return nil, err
	}
	m, err := b.resolver.module(ctx, name, "")
	if err != nil {
		return nil, err
	}

	info := &ModuleInfo{Name: name, Origin: m.wasm.Origin()}
	for _, export := range m.wasm.Functions() {
		fname := export.Name
		fi := FunctionInfo{
			Name:    fname,
			Params:  export.Definition.ParamTypes(),
			Results: export.Definition.ResultTypes(),
		}
		sig, err := m.signature(fname)
		if err != nil {
			return nil, err
		}
		if sig != nil {
			fi.WIT = sig.String()
		}
		info.Functions = append(info.Functions, fi)
	}
	return info, nil
}
