// Package store opens the key-value store holding the download checkpoint and
// the category sheet cache.
package store

import (
	"path"

	"github.com/philippgille/gokv"
	"github.com/philippgille/gokv/leveldb"
)

// Open opens (or creates) the leveldb store under stateDir.
func Open(stateDir string) (gokv.Store, error) {
	db, err := leveldb.NewStore(leveldb.Options{Path: path.Join(stateDir, "state")})
	if err != nil {
		return nil, err
	}

	return db, nil
}
