/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package storage

import "sync"

/*
CachedStorageManager data structure
*/
type CachedStorageManager struct {
	manager    Manager                // Wrapped storage manager
	mutex      *sync.Mutex            // Mutex to protect list and map operations
	cache      map[uint64]*cacheEntry // Map of stored cacheEntry objects
	maxObjects int                    // Max number of objects which should be held in the cache
	firstentry *cacheEntry            // Pointer to first entry in cacheEntry linked list
	lastentry  *cacheEntry            // Pointer to last entry in cacheEntry linked list
}

/*
cacheEntry data structure
*/
type cacheEntry struct {
	location uint64      // Location of the entry
	object   interface{} // Object of the entry
	prev     *cacheEntry // Pointer to previous entry in cacheEntry linked list
	next     *cacheEntry // Pointer to next entry in cacheEntry linked list
}

/*
Pool for cache entries
*/
var entryPool = &sync.Pool{New: func() interface{} { return &cacheEntry{} }}

/*
NewCachedStorageManager creates a new cache wrapper for a storage manager.
*/
func NewCachedStorageManager(manager Manager, maxObjects int) *CachedStorageManager {
	return &CachedStorageManager{manager, &sync.Mutex{}, make(map[uint64]*cacheEntry),
		maxObjects, nil, nil}
}

/*
Name returns the name of the StorageManager instance.
*/
func (csm *CachedStorageManager) Name() string {
	return csm.manager.Name()
}

/*
Root returns a root value.
*/
func (csm *CachedStorageManager) Root(root int) uint64 {
	return csm.manager.Root(root)
}

/*
SetRoot writes a root value.
*/
func (csm *CachedStorageManager) SetRoot(root int, val uint64) {
	csm.manager.SetRoot(root, val)
}

/*
Insert inserts an object and return its storage location.
*/
func (csm *CachedStorageManager) Insert(o interface{}) (uint64, error) {
	loc, err := csm.manager.Insert(o)

	if loc != 0 && err == nil {
		csm.mutex.Lock()
		defer csm.mutex.Unlock()

		csm.addToCache(loc, o)
	}

	return loc, err
}

/*
Update updates a storage location.
*/
func (csm *CachedStorageManager) Update(loc uint64, o interface{}) error {
	if err := csm.manager.Update(loc, o); err != nil {
		return err
	}

	csm.mutex.Lock()
	defer csm.mutex.Unlock()

	if entry, ok := csm.cache[loc]; !ok {
		csm.addToCache(loc, o)
	} else {
		entry.object = o
		csm.llTouchEntry(entry)
	}

	return nil
}

/*
Free frees a storage location.
*/
func (csm *CachedStorageManager) Free(loc uint64) error {
	if err := csm.manager.Free(loc); err != nil {
		return err
	}

	csm.mutex.Lock()
	defer csm.mutex.Unlock()

	if entry, ok := csm.cache[loc]; ok {
		delete(csm.cache, entry.location)
		csm.llRemoveEntry(entry)
		entryPool.Put(entry)
	}

	return nil
}

/*
Fetch fetches an object from a given storage location and writes it to
a given data container.
*/
func (csm *CachedStorageManager) Fetch(loc uint64, o interface{}) error {
	if err := csm.manager.Fetch(loc, o); err != nil {
		return err
	}

	csm.mutex.Lock()
	defer csm.mutex.Unlock()

	if entry, ok := csm.cache[loc]; !ok {
		csm.addToCache(loc, o)
	} else {
		entry.object = o
		csm.llTouchEntry(entry)
	}

	return nil
}

/*
FetchCached fetches an object from a cache and returns its reference.
Returns a storage.ErrNotInCache error if the entry is not in the cache.
*/
func (csm *CachedStorageManager) FetchCached(loc uint64) (interface{}, error) {
	csm.mutex.Lock()
	defer csm.mutex.Unlock()

	if entry, ok := csm.cache[loc]; ok {
		csm.llTouchEntry(entry)
		return entry.object, nil
	}

	return nil, NewStorageManagerError(ErrNotInCache, "", csm.Name())
}

/*
Rollback cancels all pending changes which have not yet been written.
*/
func (csm *CachedStorageManager) Rollback() error {
	err := csm.manager.Rollback()

	csm.mutex.Lock()
	defer csm.mutex.Unlock()

	// Cache is emptied in any case

	csm.cache = make(map[uint64]*cacheEntry)
	csm.firstentry = nil
	csm.lastentry = nil

	return err
}

/*
Close the StorageManager and write all pending changes.
*/
func (csm *CachedStorageManager) Close() error {
	return csm.manager.Close()
}

/*
Flush writes all pending changes.
*/
func (csm *CachedStorageManager) Flush() error {
	return csm.manager.Flush()
}

/*
CacheSize returns the number of cached objects.
*/
func (csm *CachedStorageManager) CacheSize() int {
	csm.mutex.Lock()
	defer csm.mutex.Unlock()

	return len(csm.cache)
}

/*
addToCache adds an entry to the cache.
*/
func (csm *CachedStorageManager) addToCache(loc uint64, o interface{}) {
	var entry *cacheEntry

	// Get an entry from the pool or recycle the oldest entry if the cache is full

	if len(csm.cache) >= csm.maxObjects {
		entry = csm.removeOldestFromCache()
	} else {
		entry = entryPool.Get().(*cacheEntry)
	}

	entry.location = loc
	entry.object = o

	csm.llAppendEntry(entry)

	csm.cache[loc] = entry
}

/*
removeOldestFromCache removes the oldest entry from the cache and return it.
*/
func (csm *CachedStorageManager) removeOldestFromCache() *cacheEntry {
	entry := csm.firstentry

	if entry == nil {
		return entryPool.Get().(*cacheEntry)
	}

	csm.llRemoveEntry(entry)

	delete(csm.cache, entry.location)

	return entry
}

/*
llTouchEntry puts an entry to the last position of the cacheEntry linked list.
Calling llTouchEntry on all requested items ensures that the oldest used
entry is at the beginning of the list.
*/
func (csm *CachedStorageManager) llTouchEntry(entry *cacheEntry) {
	if csm.lastentry == entry {
		return
	}

	csm.llRemoveEntry(entry)
	csm.llAppendEntry(entry)
}

/*
llAppendEntry appends a cacheEntry to the end of the cacheEntry linked list.
*/
func (csm *CachedStorageManager) llAppendEntry(entry *cacheEntry) {
	if csm.firstentry == nil {
		csm.firstentry = entry
		csm.lastentry = entry
		entry.prev = nil
	} else {
		csm.lastentry.next = entry
		entry.prev = csm.lastentry
		csm.lastentry = entry
	}
	entry.next = nil
}

/*
llRemoveEntry removes a cacheEntry from the cacheEntry linked list.
*/
func (csm *CachedStorageManager) llRemoveEntry(entry *cacheEntry) {
	if entry == csm.firstentry {
		csm.firstentry = entry.next
	}
	if csm.lastentry == entry {
		csm.lastentry = entry.prev
	}

	if entry.prev != nil {
		entry.prev.next = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	}

	entry.prev = nil
	entry.next = nil
}
