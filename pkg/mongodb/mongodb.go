// Package mongodb adapts a MongoDB database to the collection contract in
// pkg/domain. It owns all driver-specific translation: index models, index
// listing, and per-collection read/write policies.
package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/adfharrison1/go-odm/pkg/domain"
)

// Database wraps a driver database and hands out collection handles with the
// model's consistency policies applied. It implements domain.Database.
type Database struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials the server, verifies connectivity with a ping, and returns a
// handle on the named database.
func Connect(ctx context.Context, uri, dbName string) (*Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &domain.ConnectivityError{Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, &domain.ConnectivityError{Op: "ping", Err: err}
	}
	return &Database{client: client, db: client.Database(dbName)}, nil
}

// NewDatabase wraps an already-connected driver database.
func NewDatabase(db *mongo.Database) *Database {
	return &Database{client: db.Client(), db: db}
}

// Disconnect tears down the underlying client.
func (d *Database) Disconnect(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// Collection returns a handle on the named collection with cfg's policies
// applied as driver collection options.
func (d *Database) Collection(name string, cfg domain.CollectionConfig) domain.CollectionHandle {
	return &Collection{coll: d.db.Collection(name, collectionOptions(cfg))}
}

// collectionOptions maps the domain-level policies onto driver options.
// Unset policies are omitted so the driver inherits client defaults.
func collectionOptions(cfg domain.CollectionConfig) *options.CollectionOptions {
	opts := options.Collection()
	if rc := readConcern(cfg.ReadConcern); rc != nil {
		opts.SetReadConcern(rc)
	}
	if wc := writeConcern(cfg.WriteConcern); wc != nil {
		opts.SetWriteConcern(wc)
	}
	if rp := readPreference(cfg.ReadPreference); rp != nil {
		opts.SetReadPreference(rp)
	}
	return opts
}

func readConcern(rc domain.ReadConcern) *readconcern.ReadConcern {
	switch rc {
	case domain.ReadConcernLocal:
		return readconcern.Local()
	case domain.ReadConcernMajority:
		return readconcern.Majority()
	case domain.ReadConcernAvailable:
		return readconcern.Available()
	case domain.ReadConcernLinearizable:
		return readconcern.Linearizable()
	case domain.ReadConcernSnapshot:
		return readconcern.Snapshot()
	}
	return nil
}

func writeConcern(wc *domain.WriteConcern) *writeconcern.WriteConcern {
	if wc == nil {
		return nil
	}
	out := &writeconcern.WriteConcern{WTimeout: wc.WTimeout}
	if wc.Majority {
		out.W = "majority"
	} else if wc.W > 0 {
		out.W = wc.W
	}
	if wc.Journal {
		journal := true
		out.Journal = &journal
	}
	return out
}

func readPreference(rp domain.ReadPreference) *readpref.ReadPref {
	switch rp {
	case domain.ReadPrimary:
		return readpref.Primary()
	case domain.ReadPrimaryPreferred:
		return readpref.PrimaryPreferred()
	case domain.ReadSecondary:
		return readpref.Secondary()
	case domain.ReadSecondaryPreferred:
		return readpref.SecondaryPreferred()
	case domain.ReadNearest:
		return readpref.Nearest()
	}
	return nil
}
