package model

import "errors"

var (
	ErrMissingName = errors.New("resource record set name is required")
	ErrMissingType = errors.New("resource record set type is required")
)

// Builder accumulates the parts of a ResourceRecordSet. The zero value is
// ready to use.
type Builder struct {
	name      string
	typ       string
	qualifier string
	ttl       *uint32
	records   []RecordData
	profile   map[string]any
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

func (b *Builder) Type(typ string) *Builder {
	b.typ = typ
	return b
}

func (b *Builder) Qualifier(qualifier string) *Builder {
	b.qualifier = qualifier
	return b
}

func (b *Builder) TTL(ttl uint32) *Builder {
	b.ttl = &ttl
	return b
}

// Add appends one record.
func (b *Builder) Add(rdata RecordData) *Builder {
	b.records = append(b.records, rdata)
	return b
}

// AddAll appends records in order.
func (b *Builder) AddAll(rdata ...RecordData) *Builder {
	b.records = append(b.records, rdata...)
	return b
}

// Profile merges key into the profile map, replacing a previous value.
func (b *Builder) Profile(key string, value any) *Builder {
	if b.profile == nil {
		b.profile = make(map[string]any)
	}
	b.profile[key] = value
	return b
}

// Key returns the key of the set under construction.
func (b *Builder) Key() Key {
	return Key{Name: b.name, Type: b.typ, Qualifier: b.qualifier}
}

// Len returns the number of records added so far.
func (b *Builder) Len() int {
	return len(b.records)
}

// Build returns the finished set. The builder can keep being used; later
// changes do not leak into sets already built.
func (b *Builder) Build() (ResourceRecordSet, error) {
	if b.name == "" {
		return ResourceRecordSet{}, ErrMissingName
	}
	if b.typ == "" {
		return ResourceRecordSet{}, ErrMissingType
	}
	rrset := ResourceRecordSet{
		Name:      b.name,
		Type:      b.typ,
		Qualifier: b.qualifier,
		Records:   make([]RecordData, len(b.records)),
	}
	copy(rrset.Records, b.records)
	if b.ttl != nil {
		ttl := *b.ttl
		rrset.TTL = &ttl
	}
	if len(b.profile) > 0 {
		rrset.Profile = make(map[string]any, len(b.profile))
		for k, v := range b.profile {
			rrset.Profile[k] = v
		}
	}
	return rrset, nil
}

// MustBuild is like Build but panics on error. Meant for literals in tests and
// examples.
func (b *Builder) MustBuild() ResourceRecordSet {
	rrset, err := b.Build()
	if err != nil {
		panic(err)
	}
	return rrset
}
