package model

import (
	"strings"
)

// Key identifies a resource record set. Two sets with the same Key are merged
// into one.
type Key struct {
	Name      string
	Type      string
	Qualifier string
}

func (k Key) String() string {
	if k.Qualifier == "" {
		return k.Name + "/" + k.Type
	}
	return k.Name + "/" + k.Type + "/" + k.Qualifier
}

// ResourceRecordSet is a group of records sharing a name, type and optional
// qualifier. Values are immutable once built; use Builder to create them.
type ResourceRecordSet struct {
	// Owner name of the set
	Name string `json:"name" yaml:"name"`
	// Record type, e.g. A or CNAME
	Type string `json:"type" yaml:"type"`
	// Distinguishes sets with the same name and type (weighted or geo
	// routing). Empty when not used.
	Qualifier string `json:"qualifier,omitempty" yaml:"qualifier,omitempty"`
	// TTL shared by every record, nil when the provider does not report one
	TTL *uint32 `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// Record payloads in the order the provider returned them
	Records []RecordData `json:"records" yaml:"records"`
	// Provider specific routing data, left uninterpreted
	Profile map[string]any `json:"profile,omitempty" yaml:"profile,omitempty"`
}

// Key returns the merge key of the set.
func (r ResourceRecordSet) Key() Key {
	return Key{Name: r.Name, Type: r.Type, Qualifier: r.Qualifier}
}

// Mergeable reports whether r and other share name, type and qualifier.
func (r ResourceRecordSet) Mergeable(other ResourceRecordSet) bool {
	return r.Key() == other.Key()
}

// Equal compares every field of the two sets.
func (r ResourceRecordSet) Equal(other ResourceRecordSet) bool {
	if r.Key() != other.Key() {
		return false
	}
	if (r.TTL == nil) != (other.TTL == nil) {
		return false
	}
	if r.TTL != nil && *r.TTL != *other.TTL {
		return false
	}
	if len(r.Records) != len(other.Records) {
		return false
	}
	for i := range r.Records {
		if !r.Records[i].Equal(other.Records[i]) {
			return false
		}
	}
	return equalValues(r.Profile, other.Profile)
}

// NameEqualTo returns a predicate matching sets by exact name.
func NameEqualTo(name string) func(ResourceRecordSet) bool {
	return func(r ResourceRecordSet) bool {
		return r.Name == name
	}
}

// NameAndTypeEqualTo returns a predicate matching sets by exact name and type.
func NameAndTypeEqualTo(name, typ string) func(ResourceRecordSet) bool {
	return func(r ResourceRecordSet) bool {
		return r.Name == name && r.Type == typ
	}
}

// QualifierEqualTo returns a predicate matching sets by qualifier.
func QualifierEqualTo(qualifier string) func(ResourceRecordSet) bool {
	return func(r ResourceRecordSet) bool {
		return r.Qualifier == qualifier
	}
}

// NormalizeName lower cases a DNS name and strips the trailing dot so names
// from providers that disagree on FQDN presentation compare equal.
func NormalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".")
}
