package resource

import (
	"fmt"
	"strings"

	"github.com/vmsops/vmsctl/faults"
)

type Value = any

// Kind identifies one of the appliance resource families the tool manages.
type Kind string

const (
	KindDNS              Kind = "dns"
	KindActiveDirectory  Kind = "activedirectory"
	KindVipPool          Kind = "vippool"
	KindViewPolicy       Kind = "viewpolicy"
	KindView             Kind = "view"
	KindQuota            Kind = "quota"
	KindProtectionPolicy Kind = "protectionpolicy"
	KindProtectedPath    Kind = "protectedpath"
	KindReplicationPeer  Kind = "replicationpeer"
)

type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

func ParseOperation(raw string) (Operation, error) {
	switch Operation(strings.ToLower(strings.TrimSpace(raw))) {
	case OperationCreate:
		return OperationCreate, nil
	case OperationUpdate:
		return OperationUpdate, nil
	case OperationDelete:
		return OperationDelete, nil
	}
	return "", faults.NewTypedError(
		faults.ValidationError,
		fmt.Sprintf("operation must be one of create, update, delete, got %q", raw),
		nil,
	)
}

// Spec is one declared resource read from configuration. Key holds the value
// of the kind's natural key attribute and must be non-empty; Attributes keep
// declaration order and never contain absent fields.
type Spec struct {
	Kind       Kind
	Operation  Operation
	Key        string
	Attributes Attributes
}

func (s Spec) Validate() error {
	if strings.TrimSpace(string(s.Kind)) == "" {
		return faults.NewTypedError(faults.ValidationError, "resource kind is required", nil)
	}
	if _, err := ParseOperation(string(s.Operation)); err != nil {
		return err
	}
	if strings.TrimSpace(s.Key) == "" {
		return faults.NewTypedError(faults.ValidationError, "resource key is required", nil)
	}
	return nil
}

// Object is the appliance's serialized representation of a resource. The
// appliance owns it; the reconciler reads it and mutates only the attributes a
// spec names. ID is opaque and may originate from a JSON number or string.
type Object struct {
	ID      string
	Payload map[string]any
}

// Field reads an attribute from the remote payload, following the convention
// that a declared `<ref>_id` attribute may be returned as a nested `<ref>`
// object carrying an `id` field.
func (o Object) Field(name string) (any, bool) {
	if o.Payload == nil {
		return nil, false
	}
	if value, ok := o.Payload[name]; ok && value != nil {
		return value, true
	}
	if suffix, found := strings.CutSuffix(name, "_id"); found {
		nested, ok := o.Payload[suffix]
		if !ok {
			return nil, false
		}
		switch typed := nested.(type) {
		case map[string]any:
			id, ok := typed["id"]
			return id, ok
		case int64, float64, string:
			return typed, true
		}
	}
	return nil, false
}
