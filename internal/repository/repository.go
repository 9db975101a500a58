// Package repository holds the persistence contract and the repositories
// built on top of it.
//
// All state lives in three named slots of a KeyValueStore:
//
//	users  []model.User       registry of every known account
//	user   *model.User        the current session (null when logged out)
//	todos  []model.UserTodos  one entry per user who has ever added a todo
//
// Every mutation reads the whole slot, changes it in memory and writes the
// whole slot back. Writers inside one process are serialized by the
// repositories; two processes sharing a store can still lose writes (last
// write wins).
package repository

import (
	"context"
)

// Slot names.
const (
	SlotUsers   = "users"
	SlotSession = "user"
	SlotTodos   = "todos"
)

// KeyValueStore is a get/set capability over named slots holding JSON values.
type KeyValueStore interface {
	// Get decodes the slot into dst and reports whether a value was present.
	// A missing slot, a stored null, an unreadable medium and corrupt data
	// all report false; Get never fails.
	Get(ctx context.Context, key string, dst any) bool

	// Set encodes value as JSON and overwrites the slot. A nil value stores
	// null.
	Set(ctx context.Context, key string, value any) error
}
