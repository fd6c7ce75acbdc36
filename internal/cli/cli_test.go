package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-logr/logr"

	"github.com/vmsops/vmsctl/config"
	"github.com/vmsops/vmsctl/faults"
	"github.com/vmsops/vmsctl/resource"
	"github.com/vmsops/vmsctl/schema"
	"github.com/vmsops/vmsctl/server"
)

// stubRemote serves collections from memory plus the cluster version probe.
type stubRemote struct {
	collections map[string][]resource.Object
	swVersion   string
	nextID      int64
}

var _ server.RemoteState = (*stubRemote)(nil)

func newStubRemote() *stubRemote {
	return &stubRemote{
		collections: map[string][]resource.Object{},
		swVersion:   "5.4.2.11",
		nextID:      10,
	}
}

func (s *stubRemote) List(_ context.Context, descriptor schema.Descriptor) ([]resource.Object, error) {
	return s.collections[descriptor.Collection], nil
}

func (s *stubRemote) Create(_ context.Context, descriptor schema.Descriptor, attrs resource.Attributes) (resource.Object, error) {
	key, _ := attrs.Get(descriptor.NaturalKey)
	for _, existing := range s.collections[descriptor.Collection] {
		if value, ok := existing.Field(descriptor.NaturalKey); ok && value == key {
			return resource.Object{}, faults.NewTypedError(faults.ConflictError, "object exists", nil)
		}
	}
	s.nextID++
	payload := attrs.Map()
	payload["id"] = s.nextID
	object := resource.Object{ID: strconv.FormatInt(s.nextID, 10), Payload: payload}
	s.collections[descriptor.Collection] = append(s.collections[descriptor.Collection], object)
	return object, nil
}

func (s *stubRemote) Update(_ context.Context, descriptor schema.Descriptor, id string, attrs resource.Attributes) (resource.Object, error) {
	for idx, existing := range s.collections[descriptor.Collection] {
		if existing.ID == id {
			for _, field := range attrs {
				existing.Payload[field.Name] = field.Value
			}
			s.collections[descriptor.Collection][idx] = existing
			return existing, nil
		}
	}
	return resource.Object{}, faults.NewTypedError(faults.NotFoundError, "no object "+id, nil)
}

func (s *stubRemote) Delete(_ context.Context, descriptor schema.Descriptor, id string) (resource.Object, error) {
	objects := s.collections[descriptor.Collection]
	for idx, existing := range objects {
		if existing.ID == id {
			s.collections[descriptor.Collection] = append(objects[:idx:idx], objects[idx+1:]...)
			return resource.Object{}, nil
		}
	}
	return resource.Object{}, faults.NewTypedError(faults.NotFoundError, "no object "+id, nil)
}

func (s *stubRemote) Request(_ context.Context, _ string, path string, _ map[string]string, _ resource.Value) (resource.Value, error) {
	if path == "clusters" {
		return []any{map[string]any{"sw_version": s.swVersion}}, nil
	}
	return nil, faults.NewTypedError(faults.NotFoundError, "no handler for "+path, nil)
}

func testConfig() config.Config {
	return config.Config{
		Endpoint: config.Endpoint{
			BaseURL: "https://vms.example.com",
			Auth:    &config.Auth{BearerToken: &config.BearerTokenAuth{Token: "token"}},
		},
	}
}

func testDependencies(remote *stubRemote) Dependencies {
	return Dependencies{
		Log: logr.Discard(),
		LoadConfig: func(string) (config.Config, error) {
			return testConfig(), nil
		},
		NewRemote: func(config.Endpoint, logr.Logger) (server.RemoteState, error) {
			return remote, nil
		},
		ReadPassword: func(string) (string, error) {
			return "", faults.NewTypedError(faults.InternalError, "unexpected prompt", nil)
		},
	}
}

func runCommand(t *testing.T, deps Dependencies, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(deps)
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeSpecFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resources.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const vipPoolSpecYAML = `
resources:
  - kind: vippool
    operation: create
    attributes:
      name: main
      start_ip: 15.0.0.2
      end_ip: 15.0.0.5
`

func TestApplyCommand(t *testing.T) {
	remote := newStubRemote()
	path := writeSpecFile(t, vipPoolSpecYAML)

	out, err := runCommand(t, testDependencies(remote), "apply", path)
	if err != nil {
		t.Fatalf("apply failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "created") || !strings.Contains(out, `vippool "main"`) {
		t.Fatalf("output = %q", out)
	}
	if !strings.Contains(out, "1 resource(s) applied, 0 failed") {
		t.Fatalf("output = %q", out)
	}
	if len(remote.collections["vippools"]) != 1 {
		t.Fatalf("remote holds %d vip pools, want 1", len(remote.collections["vippools"]))
	}
}

func TestApplyCommandDryRun(t *testing.T) {
	remote := newStubRemote()
	path := writeSpecFile(t, vipPoolSpecYAML)

	out, err := runCommand(t, testDependencies(remote), "apply", path, "--dry-run")
	if err != nil {
		t.Fatalf("apply failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "(planned)") {
		t.Fatalf("output = %q", out)
	}
	if len(remote.collections["vippools"]) != 0 {
		t.Fatal("dry run must not mutate remote state")
	}
}

func TestApplyCommandVersionGate(t *testing.T) {
	remote := newStubRemote()
	remote.swVersion = "5.3.0"
	path := writeSpecFile(t, vipPoolSpecYAML)

	_, err := runCommand(t, testDependencies(remote), "apply", path)
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("err = %v, want validation error for unsupported version", err)
	}
	if len(remote.collections["vippools"]) != 0 {
		t.Fatal("gate failure must stop the run before mutations")
	}

	out, err := runCommand(t, testDependencies(remote), "apply", path, "--skip-version-check")
	if err != nil {
		t.Fatalf("apply with --skip-version-check failed: %v\n%s", err, out)
	}
}

func TestApplyCommandReportsFailures(t *testing.T) {
	remote := newStubRemote()
	path := writeSpecFile(t, `
resources:
  - kind: viewpolicy
    operation: create
    attributes:
      name: broken
      vip_pools:
        - missing
`)

	out, err := runCommand(t, testDependencies(remote), "apply", path)
	if err == nil {
		t.Fatalf("apply must fail when a resource fails\n%s", out)
	}
	if !strings.Contains(out, "unresolved-reference") {
		t.Fatalf("output = %q", out)
	}
	if got := ExitCodeForError(err); got != 8 {
		t.Fatalf("exit code = %d, want 8", got)
	}
}

func TestApplyCommandPromptsForPassword(t *testing.T) {
	remote := newStubRemote()
	path := writeSpecFile(t, vipPoolSpecYAML)

	prompted := false
	deps := testDependencies(remote)
	deps.LoadConfig = func(string) (config.Config, error) {
		cfg := testConfig()
		cfg.Endpoint.Auth = &config.Auth{BasicAuth: &config.BasicAuth{Username: "admin"}}
		return cfg, nil
	}
	deps.NewRemote = func(endpoint config.Endpoint, _ logr.Logger) (server.RemoteState, error) {
		if endpoint.Auth.BasicAuth.Password != "hunter2" {
			return nil, faults.NewTypedError(faults.AuthError, "password not threaded through", nil)
		}
		return remote, nil
	}
	deps.ReadPassword = func(prompt string) (string, error) {
		prompted = true
		if !strings.Contains(prompt, "admin") {
			t.Fatalf("prompt = %q", prompt)
		}
		return "hunter2", nil
	}

	if out, err := runCommand(t, deps, "apply", path); err != nil {
		t.Fatalf("apply failed: %v\n%s", err, out)
	}
	if !prompted {
		t.Fatal("empty basic auth password must trigger a prompt")
	}
}

func TestGetCommand(t *testing.T) {
	remote := newStubRemote()
	remote.collections["vippools"] = []resource.Object{
		{ID: "1", Payload: map[string]any{"id": int64(1), "name": "main"}},
		{ID: "2", Payload: map[string]any{"id": int64(2), "name": "standby"}},
	}
	deps := testDependencies(remote)

	out, err := runCommand(t, deps, "get", "vippool")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "name: main") || !strings.Contains(out, "name: standby") {
		t.Fatalf("output = %q", out)
	}

	out, err = runCommand(t, deps, "get", "vippool", "main")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "name: main") || strings.Contains(out, "standby") {
		t.Fatalf("output = %q", out)
	}

	_, err = runCommand(t, deps, "get", "vippool", "absent")
	if !faults.IsCategory(err, faults.NotFoundError) {
		t.Fatalf("err = %v, want not found", err)
	}

	_, err = runCommand(t, deps, "get", "bucket")
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("err = %v, want validation error for unknown kind", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, Dependencies{Log: logr.Discard()}, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, Version) {
		t.Fatalf("output = %q", out)
	}
}

func TestExitCodeForError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", context.Canceled, 1},
		{"validation", faults.NewTypedError(faults.ValidationError, "bad", nil), 2},
		{"not found", faults.NewTypedError(faults.NotFoundError, "missing", nil), 3},
		{"auth", faults.NewTypedError(faults.AuthError, "denied", nil), 4},
		{"conflict", faults.NewTypedError(faults.ConflictError, "exists", nil), 5},
		{"transport", faults.NewTypedError(faults.TransportError, "down", nil), 6},
		{"ambiguous", faults.NewTypedError(faults.AmbiguousMatchError, "two", nil), 7},
		{"unresolved", faults.NewTypedError(faults.UnresolvedReferenceError, "dangling", nil), 8},
		{"internal", faults.NewTypedError(faults.InternalError, "bug", nil), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCodeForError(tc.err); got != tc.want {
				t.Fatalf("ExitCodeForError = %d, want %d", got, tc.want)
			}
		})
	}
}
