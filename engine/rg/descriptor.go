package rg

import "fmt"

// NameResolver is satisfied by anything that can map a shader-reflected
// binding variable name to its backend binding index within a bind
// group, such as engine/renderer/shader.Shader's
// BindGroupFromVarName/BindGroupVarName pair. Declared here as a small
// duck-typed interface rather than importing the shader package directly
// so the render graph core stays independent of the WGSL-specific
// reflection machinery that produces the names.
type NameResolver interface {
	BindGroupFromVarName(group int, varName string) (int, bool)
}

// ResolveByName looks up the binding index for varName within group
// using resolver, matching spec.md's requirement that the descriptor
// resolver bind shader reflection names rather than hardcoded slot
// numbers. An unknown name fails with ErrKindInvalidArgument and leaves
// the caller's descriptor set unmodified, since this call never mutates
// anything itself.
func ResolveByName(resolver NameResolver, group int, varName string) (binding int, err error) {
	binding, ok := resolver.BindGroupFromVarName(group, varName)
	if !ok {
		return 0, newErr(ErrKindInvalidArgument, fmt.Errorf("descriptor name %q not declared in group %d", varName, group))
	}
	return binding, nil
}
