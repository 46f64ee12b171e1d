package domain

// ModelDescriptor ties one record type to its backing collection: the
// collection name, the consistency/routing policies to open it with, the
// indexes that must exist on it, and the migrations that bring old documents
// in line with the current schema.
//
// A descriptor is built once from static model metadata, resolved once per
// process, and read-only afterwards. Index order and migration order are
// both preserved; migration order matters because earlier migrations'
// effects may be prerequisites for later ones' filters.
type ModelDescriptor struct {
	Collection     string
	ReadConcern    ReadConcern
	WriteConcern   *WriteConcern
	ReadPreference ReadPreference
	Indexes        []IndexSpec
	Migrations     []Migration
}

// Config returns the collection policies to pass to Database.Collection.
func (m *ModelDescriptor) Config() CollectionConfig {
	return CollectionConfig{
		ReadConcern:    m.ReadConcern,
		WriteConcern:   m.WriteConcern,
		ReadPreference: m.ReadPreference,
	}
}
