// Package provider defines the provider-agnostic API over DNS hosting
// services and the pieces bindings compose to implement it.
package provider

import (
	"context"

	"github.com/sapslaj/rrsets/credentials"
	"github.com/sapslaj/rrsets/model"
	"github.com/sapslaj/rrsets/paging"
)

// Provider describes a DNS hosting service binding.
type Provider interface {
	// Name is used in configuration and in credential error messages.
	Name() string
	// URL is the default API endpoint.
	URL() string
	// CredentialRequirement lists the credential shapes the binding accepts.
	CredentialRequirement() credentials.Requirement
}

// Zone is a hosted zone as listed by a provider.
type Zone struct {
	Name string `json:"name" yaml:"name"`
	ID   string `json:"id" yaml:"id"`
}

// ZoneAPI lists the zones of an account.
type ZoneAPI interface {
	Iterator(ctx context.Context) paging.Seq[Zone]
}

// ResourceRecordSetAPI exposes the record sets of one zone. Iterators are
// lazy: nothing is fetched, and no credentials are requested, until the
// first call to Next.
type ResourceRecordSetAPI interface {
	// Iterator lists every record set in the zone.
	Iterator(ctx context.Context) paging.Seq[model.ResourceRecordSet]
	// IterateByName lists the record sets whose name is exactly name.
	IterateByName(ctx context.Context, name string) paging.Seq[model.ResourceRecordSet]
	// GetByNameAndType returns the first record set with the given name and
	// type, or nil when there is none.
	GetByNameAndType(ctx context.Context, name, typ string) (*model.ResourceRecordSet, error)
	// Put creates or replaces a record set. Bindings without write support
	// return ErrUnsupported.
	Put(ctx context.Context, rrset model.ResourceRecordSet) error
	// DeleteByNameAndType removes the record sets with the given name and
	// type. Bindings without write support return ErrUnsupported.
	DeleteByNameAndType(ctx context.Context, name, typ string) error
}

// QualifiedRecordSetAPI is implemented by record set APIs that can tell
// apart sets sharing a name and type, such as weighted or geo routed sets.
type QualifiedRecordSetAPI interface {
	ResourceRecordSetAPI
	// IterateByNameAndType lists every set with the given name and type, one
	// per qualifier.
	IterateByNameAndType(ctx context.Context, name, typ string) paging.Seq[model.ResourceRecordSet]
	// GetByNameTypeAndQualifier returns the set with the given key or nil.
	GetByNameTypeAndQualifier(ctx context.Context, name, typ, qualifier string) (*model.ResourceRecordSet, error)
}

// Client is a configured connection to one provider account.
type Client interface {
	Provider() Provider
	Zones() ZoneAPI
	// RecordSetsInZone returns the API for zoneID. It does not contact the
	// provider.
	RecordSetsInZone(zoneID string) (ResourceRecordSetAPI, error)
}

// NamedClient pairs a Client with the name it was configured under.
type NamedClient struct {
	Name   string
	Client Client
}
