package domain

import (
	"fmt"
	"strings"
)

// IndexType is the direction or special type of a single index key.
type IndexType string

const (
	IndexAscending   IndexType = "asc"
	IndexDescending  IndexType = "dsc"
	Index2D          IndexType = "2d"
	Index2DSphere    IndexType = "2dsphere"
	IndexGeoHaystack IndexType = "geoHaystack"
	IndexText        IndexType = "text"
	IndexHashed      IndexType = "hashed"
)

// PrimaryKeyIndexName is the name of the index the server maintains on _id.
// It is never part of a diff and must never be dropped.
const PrimaryKeyIndexName = "_id_"

// Valid reports whether t is one of the supported key types.
func (t IndexType) Valid() bool {
	switch t {
	case IndexAscending, IndexDescending, Index2D, Index2DSphere,
		IndexGeoHaystack, IndexText, IndexHashed:
		return true
	}
	return false
}

// KeyValue returns the value stored under the field name in a server-side
// index key document: int32(1), int32(-1), or the type string.
func (t IndexType) KeyValue() interface{} {
	switch t {
	case IndexAscending:
		return int32(1)
	case IndexDescending:
		return int32(-1)
	default:
		return string(t)
	}
}

// nameSuffix is the fragment used for this key type when deriving an index
// name the same way the server does ("email_1", "loc_2dsphere", ...).
func (t IndexType) nameSuffix() string {
	switch t {
	case IndexAscending:
		return "1"
	case IndexDescending:
		return "-1"
	default:
		return string(t)
	}
}

// IndexKey is one (fieldPath, type) pair of an index key sequence. Field
// paths use dot-notation for embedded documents. Order of keys within a
// spec is semantically significant: it defines prefix matching behavior.
type IndexKey struct {
	Field string
	Type  IndexType
}

// IndexOptions is the option surface supported for secondary indexes. The
// zero value means "no options". Pointer fields distinguish "unset" from
// an explicit zero so option changes are detected by the diff.
type IndexOptions struct {
	Unique             bool
	Sparse             bool
	Background         bool
	ExpireAfterSeconds *int32
	Weights            map[string]int32
	DefaultLanguage    string
	LanguageOverride   string
	Bits               *int32
	Min                *float64
	Max                *float64
	BucketSize         *int32
}

// IndexSpec is the canonical, order-preserving declaration of one secondary
// index on a model's collection.
type IndexSpec struct {
	Name    string
	Keys    []IndexKey
	Options IndexOptions
}

// DefaultName derives the index name from the key sequence, following the
// server's own convention: field and direction/type joined by underscores.
func (s IndexSpec) DefaultName() string {
	parts := make([]string, 0, len(s.Keys))
	for _, key := range s.Keys {
		parts = append(parts, fmt.Sprintf("%s_%s", key.Field, key.Type.nameSuffix()))
	}
	return strings.Join(parts, "_")
}

// ResolvedName returns the explicit name if one was declared, otherwise the
// derived default.
func (s IndexSpec) ResolvedName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.DefaultName()
}

// ExistingIndex is an index as read back from the live collection. It has
// the same shape as a spec; the primary-key index always appears here.
type ExistingIndex struct {
	Name    string
	Keys    []IndexKey
	Options IndexOptions
}

// IsPrimaryKey reports whether this is the implicit _id index.
func (e ExistingIndex) IsPrimaryKey() bool {
	return e.Name == PrimaryKeyIndexName
}

// SyncReport summarizes what one reconciliation pass did to a collection.
type SyncReport struct {
	Collection string   `json:"collection"`
	Kept       []string `json:"kept,omitempty"`
	Dropped    []string `json:"dropped,omitempty"`
	Created    []string `json:"created,omitempty"`
}

// Mutations returns the number of server mutations the pass performed. A
// repeat pass over unchanged declarations must report zero.
func (r *SyncReport) Mutations() int {
	return len(r.Dropped) + len(r.Created)
}
