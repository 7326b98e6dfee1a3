/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package index

import (
	"bytes"
	"sort"
	"sync"
)

/*
EntryStore stores the entries of secondary indexes. Entries of an index are
kept in key order.
*/
type EntryStore interface {

	/*
		Put stores an entry.
	*/
	Put(indexID int, key []byte, value []byte) error

	/*
		Delete removes an entry.
	*/
	Delete(indexID int, key []byte) error

	/*
		Scan calls a function for all entries of an index which start with a
		given prefix. The scan stops if the function returns false.
	*/
	Scan(indexID int, prefix []byte, f func(key []byte, value []byte) bool) error

	/*
		Count returns the number of entries of an index.
	*/
	Count(indexID int) (int, error)

	/*
		Drop removes all entries of an index.
	*/
	Drop(indexID int) error

	/*
		Close closes the store.
	*/
	Close() error
}

type memoryEntry struct {
	key   []byte
	value []byte
}

/*
MemoryEntryStore is an EntryStore which keeps all entries in memory.
*/
type MemoryEntryStore struct {
	indexes map[int][]memoryEntry
	mutex   *sync.RWMutex
}

/*
NewMemoryEntryStore creates a new memory based entry store.
*/
func NewMemoryEntryStore() *MemoryEntryStore {
	return &MemoryEntryStore{make(map[int][]memoryEntry), &sync.RWMutex{}}
}

/*
Put stores an entry.
*/
func (ms *MemoryEntryStore) Put(indexID int, key []byte, value []byte) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	entries := ms.indexes[indexID]
	pos, found := ms.search(entries, key)

	e := memoryEntry{append([]byte(nil), key...), append([]byte(nil), value...)}

	if found {
		entries[pos] = e
	} else {
		entries = append(entries, memoryEntry{})
		copy(entries[pos+1:], entries[pos:])
		entries[pos] = e
	}

	ms.indexes[indexID] = entries

	return nil
}

/*
Delete removes an entry.
*/
func (ms *MemoryEntryStore) Delete(indexID int, key []byte) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	entries := ms.indexes[indexID]

	if pos, found := ms.search(entries, key); found {
		ms.indexes[indexID] = append(entries[:pos], entries[pos+1:]...)
	}

	return nil
}

/*
Scan calls a function for all entries of an index which start with a given
prefix.
*/
func (ms *MemoryEntryStore) Scan(indexID int, prefix []byte, f func(key []byte, value []byte) bool) error {
	ms.mutex.RLock()

	entries := ms.indexes[indexID]
	pos, _ := ms.search(entries, prefix)

	var res []memoryEntry

	for ; pos < len(entries) && bytes.HasPrefix(entries[pos].key, prefix); pos++ {
		res = append(res, entries[pos])
	}

	ms.mutex.RUnlock()

	// The lock is not held while calling back so the function may modify the store

	for _, e := range res {
		if !f(e.key, e.value) {
			break
		}
	}

	return nil
}

/*
Count returns the number of entries of an index.
*/
func (ms *MemoryEntryStore) Count(indexID int) (int, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	return len(ms.indexes[indexID]), nil
}

/*
Drop removes all entries of an index.
*/
func (ms *MemoryEntryStore) Drop(indexID int) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	delete(ms.indexes, indexID)

	return nil
}

/*
Close closes the store.
*/
func (ms *MemoryEntryStore) Close() error {
	return nil
}

func (ms *MemoryEntryStore) search(entries []memoryEntry, key []byte) (int, bool) {
	pos := sort.Search(len(entries), func(i int) bool {
		return bytes.Compare(entries[i].key, key) >= 0
	})
	return pos, pos < len(entries) && bytes.Equal(entries[pos].key, key)
}
