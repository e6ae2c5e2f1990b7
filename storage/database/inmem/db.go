// Package inmemdb is an in-memory implementation of every repository,
// used as a fake store in tests.
package inmemdb

import (
	"fmt"
	"sync"
)

type DB struct {
	mutex sync.RWMutex

	rawCourses []rawCourseEntry
	courses    map[string]courseEntry
	outcomes   map[string]outcomeEntry
	templates  map[string]templateEntry
	sows       map[string]sowEntry // keyed by course id

	pkCount int

	// writes remaining before failNext stops firing; see FailNextWrites
	failRemaining int
	failErr       error
}

func Open() (*DB, error) {
	db := &DB{
		courses:   make(map[string]courseEntry),
		outcomes:  make(map[string]outcomeEntry),
		templates: make(map[string]templateEntry),
		sows:      make(map[string]sowEntry),
	}
	return db, nil
}

// FailNextWrites makes the next n write operations return err; used to
// exercise the writer's retry policy.
func (db *DB) FailNextWrites(n int, err error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.failRemaining = n
	db.failErr = err
}

// nextPK mints a document id. Callers must hold the write lock.
func (db *DB) nextPK(prefix string) string {
	db.pkCount++
	return fmt.Sprintf("%s_%06d", prefix, db.pkCount)
}

// failNext pops one injected failure. Callers must hold the write lock.
func (db *DB) failNext() error {
	if db.failRemaining > 0 {
		db.failRemaining--
		return db.failErr
	}
	return nil
}
