package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/course"
	"github.com/trezcool/classroom/core/notification"
	"github.com/trezcool/classroom/core/user"
)

type (
	// row keeps the insertion sequence next to the stored value.
	row[T any] struct {
		seq int64
		val T
	}

	tables struct {
		users         map[string]row[user.User]
		courses       map[string]row[course.Course]
		invites       map[string]row[course.Invite]
		notifications map[string]row[notification.Notification]
	}

	// DB is an in-memory database for tests and local runs.
	DB struct {
		mu   sync.RWMutex
		txMu sync.Mutex
		seq  int64
		tables
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{tables: newTables()}
}

func newTables() tables {
	return tables{
		users:         make(map[string]row[user.User]),
		courses:       make(map[string]row[course.Course]),
		invites:       make(map[string]row[course.Invite]),
		notifications: make(map[string]row[notification.Notification]),
	}
}

func cloneMap[T any](m map[string]row[T]) map[string]row[T] {
	c := make(map[string]row[T], len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (db *DB) snapshot() tables {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return tables{
		users:         cloneMap(db.users),
		courses:       cloneMap(db.courses),
		invites:       cloneMap(db.invites),
		notifications: cloneMap(db.notifications),
	}
}

// RunInTx restores every table to its state before fn when fn fails.
// Transactions are serialized; writes made outside of them while one runs may be lost on rollback.
func (db *DB) RunInTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	if err := fn(nil); err != nil {
		db.mu.Lock()
		db.tables = snap
		db.mu.Unlock()
		return err
	}
	return nil
}

// Reset drops all data.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables = newTables()
}

// nextSeq must be called with db.mu held.
func (db *DB) nextSeq() int64 {
	db.seq++
	return db.seq
}
