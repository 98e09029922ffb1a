package driver

import "testing"

type fakeDriver struct{ name string }

func (f *fakeDriver) Name() string { return f.name }
func (f *fakeDriver) Open(kind BackendKind, surface any) (GPU, error) { return nil, nil }

func TestRegisterAndOpen(t *testing.T) {
	name := "fake-test-driver"
	Register(name, &fakeDriver{name: name})

	found := false
	for _, n := range Drivers() {
		if n == name {
			found = true
		}
	}
	if !found {
		t.Fatalf("Drivers() did not include %q after Register", name)
	}

	if _, err := Open(name, KindVulkan, nil); err != nil {
		t.Fatalf("Open(%q) returned unexpected error: %v", name, err)
	}
}

func TestOpenUnregisteredDriver(t *testing.T) {
	if _, err := Open("does-not-exist", KindVulkan, nil); err != ErrNotInstalled {
		t.Fatalf("expected ErrNotInstalled, got %v", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	name := "dup-test-driver"
	Register(name, &fakeDriver{name: name})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected Register to panic on duplicate name %q", name)
		}
	}()
	Register(name, &fakeDriver{name: name})
}

func TestBackendKindString(t *testing.T) {
	cases := map[BackendKind]string{
		KindVulkan: "vulkan",
		KindD3D12:  "d3d12",
		KindMetal:  "metal",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("BackendKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestImageUsageHas(t *testing.T) {
	u := ImageUsageColorAttachment | ImageUsageShaderRead
	if !u.Has(ImageUsageColorAttachment) {
		t.Errorf("expected ImageUsageColorAttachment to be set")
	}
	if u.Has(ImageUsageDepthStencilAttachment) {
		t.Errorf("did not expect ImageUsageDepthStencilAttachment to be set")
	}
}
