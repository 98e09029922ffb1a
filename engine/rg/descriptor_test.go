package rg

import (
	"errors"
	"testing"
)

type fakeResolver map[int]map[string]int

func (f fakeResolver) BindGroupFromVarName(group int, varName string) (int, bool) {
	bindings, ok := f[group]
	if !ok {
		return -1, false
	}
	b, ok := bindings[varName]
	return b, ok
}

func TestResolveByName(t *testing.T) {
	resolver := fakeResolver{
		0: {"uCamera": 0, "uLights": 1},
	}

	binding, err := ResolveByName(resolver, 0, "uLights")
	if err != nil || binding != 1 {
		t.Fatalf("expected binding 1 for uLights, got %d err=%v", binding, err)
	}

	_, err = ResolveByName(resolver, 0, "uMissing")
	if err == nil {
		t.Fatalf("expected ResolveByName to fail for an undeclared name")
	}
	var rgErr *Error
	if !errors.As(err, &rgErr) || rgErr.Kind != ErrKindInvalidArgument {
		t.Fatalf("expected ErrKindInvalidArgument, got %v", err)
	}

	if _, err := ResolveByName(resolver, 5, "uCamera"); err == nil {
		t.Fatalf("expected ResolveByName to fail for an undeclared group")
	}
}
