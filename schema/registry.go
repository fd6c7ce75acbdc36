package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vmsops/vmsctl/faults"
	"github.com/vmsops/vmsctl/resource"
)

// Registry maps resource kinds to their descriptors.
type Registry struct {
	descriptors map[resource.Kind]Descriptor
}

func NewRegistry(descriptors ...Descriptor) *Registry {
	registry := &Registry{descriptors: make(map[resource.Kind]Descriptor, len(descriptors))}
	for _, descriptor := range descriptors {
		registry.descriptors[descriptor.Kind] = descriptor
	}
	return registry
}

func (r *Registry) Lookup(kind resource.Kind) (Descriptor, error) {
	descriptor, ok := r.descriptors[resource.Kind(strings.ToLower(strings.TrimSpace(string(kind))))]
	if !ok {
		return Descriptor{}, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("unknown resource kind %q, supported kinds: %s", kind, strings.Join(r.kindNames(), ", ")),
			nil,
		)
	}
	return descriptor, nil
}

func (r *Registry) Kinds() []resource.Kind {
	kinds := make([]resource.Kind, 0, len(r.descriptors))
	for kind := range r.descriptors {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (r *Registry) kindNames() []string {
	names := make([]string, 0, len(r.descriptors))
	for _, kind := range r.Kinds() {
		names = append(names, string(kind))
	}
	return names
}

// Default returns the registry covering every VMS resource family the tool
// manages. Field classifications mirror what the appliance actually returns
// and refuses to change.
func Default() *Registry {
	return NewRegistry(
		Descriptor{
			Kind:           resource.KindDNS,
			Collection:     "dns",
			NaturalKey:     "name",
			ReadOnlyFields: NewFieldSet("id", "guid", "url"),
			SetLikeLists:   NewFieldSet("domain_suffixes", "vip_pools"),
		},
		Descriptor{
			Kind:       resource.KindActiveDirectory,
			Collection: "activedirectory",
			NaturalKey: "machine_account_name",
			ReadOnlyFields: NewFieldSet(
				"id", "guid", "url", "created", "state", "enabled",
				"ldap_id", "ldap_urls", "title", "name", "tenant_id",
				"last_ma_pwd_renewal_status", "scheduled_ma_pwd_change_enabled",
				"ma_pwd_change_frequency", "ma_pwd_update_time", "preferred_dc_list",
			),
			// Stored in the linked LDAP config after the join; updates are rejected.
			ImmutableFields: NewFieldSet(
				"binddn", "bindpw", "method", "port", "use_tls", "use_ldaps",
				"use_auto_discovery", "searchbase", "group_searchbase", "urls",
			),
			EphemeralFields: NewFieldSet("admin_passwd", "bindpw"),
			AsyncUpdate:     true,
		},
		Descriptor{
			Kind:            resource.KindVipPool,
			Collection:      "vippools",
			NaturalKey:      "name",
			ReadOnlyFields:  NewFieldSet("id", "guid", "url", "created", "active_connections", "state"),
			ImmutableFields: NewFieldSet("role"),
			SetLikeLists:    NewFieldSet("cnode_ids", "vlan_ids"),
		},
		Descriptor{
			Kind:       resource.KindViewPolicy,
			Collection: "viewpolicies",
			NaturalKey: "name",
			References: []Reference{
				{Attribute: "vip_pools", Kind: resource.KindVipPool, List: true},
			},
			ReadOnlyFields:  NewFieldSet("id", "guid", "url", "created", "cluster", "tenant_name", "views_count"),
			ImmutableFields: NewFieldSet("tenant_id"),
			SetLikeLists:    NewFieldSet("protocols_audit", "trash_access", "vip_pools"),
		},
		Descriptor{
			Kind:       resource.KindView,
			Collection: "views",
			NaturalKey: "path",
			References: []Reference{
				{Attribute: "policy_id", Kind: resource.KindViewPolicy},
			},
			ReadOnlyFields: NewFieldSet(
				"id", "guid", "url", "created", "title", "internal", "sync",
				"sync_time", "is_remote", "directory", "physical_capacity",
				"logical_capacity", "cluster", "cluster_id", "tenant_name",
			),
			ImmutableFields: NewFieldSet("path", "tenant_id"),
			EphemeralFields: NewFieldSet("create_dir"),
			SetLikeLists:    NewFieldSet("protocols", "abac_tags", "abe_protocols"),
		},
		Descriptor{
			Kind:       resource.KindQuota,
			Collection: "quotas",
			NaturalKey: "path",
			ReadOnlyFields: NewFieldSet(
				"id", "guid", "url", "state", "used_capacity", "used_inodes",
				"used_capacity_tb", "used_effective_capacity_tb", "effective_quota_capacity_tb",
			),
			ImmutableFields: NewFieldSet("path"),
			CapacityFields:  NewFieldSet("soft_limit_capacity", "hard_limit_capacity"),
		},
		Descriptor{
			Kind:           resource.KindProtectionPolicy,
			Collection:     "protectionpolicies",
			NaturalKey:     "name",
			ReadOnlyFields: NewFieldSet("id", "guid", "url", "created", "protected_paths_count", "streams_count"),
		},
		Descriptor{
			Kind:       resource.KindProtectedPath,
			Collection: "protectedpaths",
			NaturalKey: "name",
			References: []Reference{
				{Attribute: "protection_policy_id", Kind: resource.KindProtectionPolicy},
			},
			ReadOnlyFields:  NewFieldSet("id", "guid", "url", "created", "remote_target_path", "last_run_state"),
			ImmutableFields: NewFieldSet("source_dir"),
		},
		Descriptor{
			Kind:       resource.KindReplicationPeer,
			Collection: "nativereplicationremotetargets",
			NaturalKey: "name",
			References: []Reference{
				{Attribute: "pool_id", Kind: resource.KindVipPool},
			},
			ReadOnlyFields: NewFieldSet("id", "guid", "url", "created", "state"),
			CreateOnly:     true,
		},
	)
}
