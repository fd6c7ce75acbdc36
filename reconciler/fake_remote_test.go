package reconciler

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/vmsops/vmsctl/faults"
	"github.com/vmsops/vmsctl/resource"
	"github.com/vmsops/vmsctl/schema"
	"github.com/vmsops/vmsctl/server"
)

// fakeRemote is an in-memory RemoteState: collections of objects addressed by
// auto-assigned numeric ids, with create conflicting on the natural key the
// way the appliance does.
type fakeRemote struct {
	mu          sync.Mutex
	collections map[string][]resource.Object
	nextID      int64

	listCalls   map[string]int
	updateCalls int
	deleteCalls int

	// mutationExtra is merged into create/update response payloads, used to
	// simulate async task markers.
	mutationExtra map[string]any
	// taskStates feeds successive vtasks polls per task id.
	taskStates map[string][]map[string]any
	// swVersion backs the clusters probe.
	swVersion string
}

var _ server.RemoteState = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		collections: map[string][]resource.Object{},
		nextID:      100,
		listCalls:   map[string]int{},
		taskStates:  map[string][]map[string]any{},
		swVersion:   "5.4.0.20.10960402906660116571",
	}
}

func (f *fakeRemote) List(_ context.Context, descriptor schema.Descriptor) ([]resource.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls[descriptor.Collection]++
	objects := f.collections[descriptor.Collection]
	listed := make([]resource.Object, len(objects))
	copy(listed, objects)
	return listed, nil
}

func (f *fakeRemote) Create(_ context.Context, descriptor schema.Descriptor, attrs resource.Attributes) (resource.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, _ := attrs.Get(descriptor.NaturalKey)
	for _, existing := range f.collections[descriptor.Collection] {
		if value, ok := existing.Field(descriptor.NaturalKey); ok && value == key {
			return resource.Object{}, faults.NewTypedError(
				faults.ConflictError,
				fmt.Sprintf("%s with %s %v already exists", descriptor.Collection, descriptor.NaturalKey, key),
				nil,
			)
		}
	}

	f.nextID++
	payload := attrs.Map()
	payload["id"] = f.nextID
	for name, value := range f.mutationExtra {
		payload[name] = value
	}

	object := resource.Object{ID: strconv.FormatInt(f.nextID, 10), Payload: payload}
	f.collections[descriptor.Collection] = append(f.collections[descriptor.Collection], object)
	return object, nil
}

func (f *fakeRemote) Update(_ context.Context, descriptor schema.Descriptor, id string, attrs resource.Attributes) (resource.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id == "" {
		return resource.Object{}, faults.NewTypedError(faults.ValidationError, "update issued with empty identifier", nil)
	}
	f.updateCalls++

	objects := f.collections[descriptor.Collection]
	for idx, existing := range objects {
		if existing.ID != id {
			continue
		}
		for _, field := range attrs {
			existing.Payload[field.Name] = field.Value
		}
		response := resource.Object{ID: existing.ID, Payload: map[string]any{}}
		for name, value := range existing.Payload {
			response.Payload[name] = value
		}
		for name, value := range f.mutationExtra {
			response.Payload[name] = value
		}
		objects[idx] = existing
		return response, nil
	}
	return resource.Object{}, faults.NewTypedError(faults.NotFoundError, "no object "+id+" in "+descriptor.Collection, nil)
}

func (f *fakeRemote) Delete(_ context.Context, descriptor schema.Descriptor, id string) (resource.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id == "" {
		return resource.Object{}, faults.NewTypedError(faults.ValidationError, "delete issued with empty identifier", nil)
	}
	f.deleteCalls++

	objects := f.collections[descriptor.Collection]
	for idx, existing := range objects {
		if existing.ID == id {
			f.collections[descriptor.Collection] = append(objects[:idx:idx], objects[idx+1:]...)
			response := resource.Object{Payload: map[string]any{}}
			for name, value := range f.mutationExtra {
				response.Payload[name] = value
			}
			return response, nil
		}
	}
	return resource.Object{}, faults.NewTypedError(faults.NotFoundError, "no object "+id+" in "+descriptor.Collection, nil)
}

func (f *fakeRemote) Request(_ context.Context, method string, path string, query map[string]string, _ resource.Value) (resource.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch path {
	case "vtasks":
		taskID := query["id"]
		states := f.taskStates[taskID]
		if len(states) == 0 {
			return nil, faults.NewTypedError(faults.NotFoundError, "task "+taskID+" not found", nil)
		}
		state := states[0]
		if len(states) > 1 {
			f.taskStates[taskID] = states[1:]
		}
		return []any{state}, nil
	case "clusters":
		return []any{map[string]any{"id": int64(1), "sw_version": f.swVersion}}, nil
	default:
		return nil, faults.NewTypedError(faults.NotFoundError, "no fake handler for "+method+" "+path, nil)
	}
}

// seed inserts an object directly, bypassing conflict checks.
func (f *fakeRemote) seed(collection string, payload map[string]any) resource.Object {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	if _, ok := payload["id"]; !ok {
		payload["id"] = f.nextID
	}
	object := resource.Object{ID: fmt.Sprintf("%v", payload["id"]), Payload: payload}
	f.collections[collection] = append(f.collections[collection], object)
	return object
}

func (f *fakeRemote) object(collection string, id string) (resource.Object, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.collections[collection] {
		if existing.ID == id {
			return existing, true
		}
	}
	return resource.Object{}, false
}
