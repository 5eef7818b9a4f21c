package provider

import (
	"context"

	"github.com/sapslaj/rrsets/grouping"
	"github.com/sapslaj/rrsets/model"
	"github.com/sapslaj/rrsets/paging"
)

// FilterMode tells how name and type lookups are answered.
type FilterMode int

const (
	// ClientFilter groups the whole zone and picks matching sets, so a lookup
	// may page through unrelated records.
	ClientFilter FilterMode = iota
	// ServerFilter asks the provider for the matching records only. An empty
	// or not found answer ends the lookup without listing anything else.
	ServerFilter
)

func (m FilterMode) String() string {
	if m == ServerFilter {
		return "server"
	}
	return "client"
}

// PagedRecordSets implements ResourceRecordSetAPI on top of paginated
// listings of vendor records of type R.
//
// Every listing is wrapped with paging.EmptyOnNotFound using NotFound, so a
// zone or name the provider does not know yields no sets instead of an
// error.
type PagedRecordSets[R any] struct {
	// ProviderName is used in ErrUnsupported messages.
	ProviderName string
	// List returns a fetcher over every record of the zone, clustered by
	// name, type and qualifier. It is called once per listing.
	List func() paging.Fetcher[R]
	// ListByName optionally returns a fetcher limited to one name.
	ListByName func(name string) paging.Fetcher[R]
	// ListByNameAndType optionally returns a fetcher limited to one name and
	// type. Setting it switches lookups to ServerFilter.
	ListByNameAndType func(name, typ string) paging.Fetcher[R]
	// Normalizer turns vendor records into record sets.
	Normalizer grouping.Normalizer[R]
	// NotFound decides which listing errors mean "does not exist". Nil uses
	// paging.IsNotFound.
	NotFound func(error) bool
	// PutFunc and DeleteFunc implement writes. Nil means unsupported.
	PutFunc    func(ctx context.Context, rrset model.ResourceRecordSet) error
	DeleteFunc func(ctx context.Context, name, typ string) error
}

var _ QualifiedRecordSetAPI = (*PagedRecordSets[struct{}])(nil)

// FilterMode reports how GetByNameAndType is answered.
func (p *PagedRecordSets[R]) FilterMode() FilterMode {
	if p.ListByNameAndType != nil {
		return ServerFilter
	}
	return ClientFilter
}

func (p *PagedRecordSets[R]) group(ctx context.Context, fetch paging.Fetcher[R]) paging.Seq[model.ResourceRecordSet] {
	return grouping.Group(ctx, paging.EmptyOnNotFound(fetch, p.NotFound), p.Normalizer)
}

func (p *PagedRecordSets[R]) Iterator(ctx context.Context) paging.Seq[model.ResourceRecordSet] {
	return p.group(ctx, p.List())
}

func (p *PagedRecordSets[R]) IterateByName(ctx context.Context, name string) paging.Seq[model.ResourceRecordSet] {
	if p.ListByName != nil {
		return paging.Filter(p.group(ctx, p.ListByName(name)), model.NameEqualTo(name))
	}
	return paging.Filter(p.Iterator(ctx), model.NameEqualTo(name))
}

func (p *PagedRecordSets[R]) nameAndType(ctx context.Context, name, typ string) paging.Seq[model.ResourceRecordSet] {
	if p.ListByNameAndType != nil {
		return paging.Filter(p.group(ctx, p.ListByNameAndType(name, typ)), model.NameAndTypeEqualTo(name, typ))
	}
	return paging.Filter(p.Iterator(ctx), model.NameAndTypeEqualTo(name, typ))
}

func (p *PagedRecordSets[R]) IterateByNameAndType(ctx context.Context, name, typ string) paging.Seq[model.ResourceRecordSet] {
	return p.nameAndType(ctx, name, typ)
}

func (p *PagedRecordSets[R]) GetByNameAndType(ctx context.Context, name, typ string) (*model.ResourceRecordSet, error) {
	return first(p.nameAndType(ctx, name, typ))
}

func (p *PagedRecordSets[R]) GetByNameTypeAndQualifier(ctx context.Context, name, typ, qualifier string) (*model.ResourceRecordSet, error) {
	return first(paging.Filter(p.nameAndType(ctx, name, typ), model.QualifierEqualTo(qualifier)))
}

func (p *PagedRecordSets[R]) Put(ctx context.Context, rrset model.ResourceRecordSet) error {
	if p.PutFunc == nil {
		return Unsupported(p.ProviderName, "put")
	}
	return p.PutFunc(ctx, rrset)
}

func (p *PagedRecordSets[R]) DeleteByNameAndType(ctx context.Context, name, typ string) error {
	if p.DeleteFunc == nil {
		return Unsupported(p.ProviderName, "deleteByNameAndType")
	}
	return p.DeleteFunc(ctx, name, typ)
}

func first(seq paging.Seq[model.ResourceRecordSet]) (*model.ResourceRecordSet, error) {
	rrset, ok, err := paging.First(seq)
	if err != nil || !ok {
		return nil, err
	}
	return &rrset, nil
}
