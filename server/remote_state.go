package server

import (
	"context"

	"github.com/vmsops/vmsctl/resource"
	"github.com/vmsops/vmsctl/schema"
)

// RemoteState is the appliance-side listing/create/update contract the
// reconciler depends on. The appliance is the only source of truth: there is
// no local cache beyond a single run, and every run rediscovers state by
// listing. Tests substitute an in-memory implementation.
type RemoteState interface {
	List(ctx context.Context, descriptor schema.Descriptor) ([]resource.Object, error)
	Create(ctx context.Context, descriptor schema.Descriptor, body resource.Attributes) (resource.Object, error)
	Update(ctx context.Context, descriptor schema.Descriptor, id string, body resource.Attributes) (resource.Object, error)
	// Delete returns the response object because asynchronous deletions carry
	// their task marker in the response payload.
	Delete(ctx context.Context, descriptor schema.Descriptor, id string) (resource.Object, error)

	// Request issues an arbitrary call against the management endpoint. Used
	// for collections outside the descriptor registry, such as task status
	// polling and the cluster version probe.
	Request(ctx context.Context, method string, endpointPath string, query map[string]string, body resource.Value) (resource.Value, error)
}
