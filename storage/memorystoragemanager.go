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

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/krotik/common/datautil"
)

/*
Special flags for the AccessMap which simulate access errors.
*/
const (
	AccessNotInCache                = 1 // The address will not be accessible via FetchCached
	AccessFetchError                = 2 // The address will not be accessible via Fetch
	AccessUpdateError               = 3 // The address will not be accessible via Update
	AccessFreeError                 = 4 // The address will not be accessible via Free
	AccessInsertError               = 5 // The address will not be accessible via Insert
	AccessCacheAndFetchError        = 6 // The address will not be accessible via FetchCached nor Fetch
	AccessCacheAndFetchSeriousError = 7 // Like AccessCacheAndFetchError but not a slot error
)

/*
MemoryStorageManager data structure
*/
type MemoryStorageManager struct {
	name  string                 // Name of the storage manager
	roots map[int]uint64         // Map of roots
	data  map[uint64]interface{} // Map of data
	mutex *sync.Mutex            // Mutex to protect map operations

	LocCount  uint64         // Counter for locations
	AccessMap map[uint64]int // Special map to simulate access issues

	RetClose, RetFlush, RetRollback             error // Return values for Close, Flush and Rollback
	CallNumClose, CallNumFlush, CallNumRollback int
}

/*
NewMemoryStorageManager creates a new MemoryStorageManager
*/
func NewMemoryStorageManager(name string) *MemoryStorageManager {
	return &MemoryStorageManager{name: name, roots: make(map[int]uint64),
		data: make(map[uint64]interface{}), mutex: &sync.Mutex{}, LocCount: 1,
		AccessMap: make(map[uint64]int)}
}

/*
Name returns the name of the StorageManager instance.
*/
func (msm *MemoryStorageManager) Name() string {
	return msm.name
}

/*
Root returns a root value.
*/
func (msm *MemoryStorageManager) Root(root int) uint64 {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	return msm.roots[root]
}

/*
SetRoot writes a root value.
*/
func (msm *MemoryStorageManager) SetRoot(root int, val uint64) {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	msm.roots[root] = val
}

/*
Insert inserts an object and return its storage location.
*/
func (msm *MemoryStorageManager) Insert(o interface{}) (uint64, error) {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	if msm.AccessMap[msm.LocCount] == AccessInsertError {
		return 0, NewStorageManagerError(ErrAlreadyInUse, fmt.Sprint("Location:", msm.LocCount), msm.name)
	}

	loc := msm.LocCount
	msm.LocCount++
	msm.data[loc] = o

	return loc, nil
}

/*
Update updates a storage location.
*/
func (msm *MemoryStorageManager) Update(loc uint64, o interface{}) error {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	if _, ok := msm.data[loc]; !ok || msm.AccessMap[loc] == AccessUpdateError {
		return NewStorageManagerError(ErrSlotNotFound, fmt.Sprint("Location:", loc), msm.name)
	}

	msm.data[loc] = o

	return nil
}

/*
Free frees a storage location.
*/
func (msm *MemoryStorageManager) Free(loc uint64) error {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	if msm.AccessMap[loc] == AccessFreeError {
		return NewStorageManagerError(ErrSlotNotFound, fmt.Sprint("Location:", loc), msm.name)
	}

	delete(msm.data, loc)

	return nil
}

/*
Fetch fetches an object from a given storage location and writes it to
a given data container.
*/
func (msm *MemoryStorageManager) Fetch(loc uint64, o interface{}) error {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	if msm.AccessMap[loc] == AccessFetchError || msm.AccessMap[loc] == AccessCacheAndFetchError {
		return NewStorageManagerError(ErrSlotNotFound, fmt.Sprint("Location:", loc), msm.name)
	} else if msm.AccessMap[loc] == AccessCacheAndFetchSeriousError {
		return NewStorageManagerError(ErrAlreadyInUse, fmt.Sprint("Location:", loc), msm.name)
	}

	obj, ok := msm.data[loc]
	if !ok {
		return NewStorageManagerError(ErrSlotNotFound, fmt.Sprint("Location:", loc), msm.name)
	}

	return datautil.CopyObject(obj, o)
}

/*
FetchCached fetches an object from a cache and returns its reference.
Returns a storage.ErrNotInCache error if the entry is not in the cache.
*/
func (msm *MemoryStorageManager) FetchCached(loc uint64) (interface{}, error) {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	if msm.AccessMap[loc] == AccessNotInCache || msm.AccessMap[loc] == AccessCacheAndFetchError {
		return nil, NewStorageManagerError(ErrNotInCache, fmt.Sprint("Location:", loc), msm.name)
	} else if msm.AccessMap[loc] == AccessCacheAndFetchSeriousError {
		return nil, NewStorageManagerError(ErrAlreadyInUse, fmt.Sprint("Location:", loc), msm.name)
	}

	obj, ok := msm.data[loc]
	if !ok {
		return nil, NewStorageManagerError(ErrSlotNotFound, fmt.Sprint("Location:", loc), msm.name)
	}

	return obj, nil
}

/*
Flush writes all pending changes.
*/
func (msm *MemoryStorageManager) Flush() error {
	msm.CallNumFlush++
	return msm.RetFlush
}

/*
Rollback cancels all pending changes which have not yet been written.
*/
func (msm *MemoryStorageManager) Rollback() error {
	msm.CallNumRollback++
	return msm.RetRollback
}

/*
Close the StorageManager and write all pending changes.
*/
func (msm *MemoryStorageManager) Close() error {
	msm.CallNumClose++
	return msm.RetClose
}

/*
Count returns the number of stored objects.
*/
func (msm *MemoryStorageManager) Count() int {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	return len(msm.data)
}

/*
String returns a string representation of the storage manager.
*/
func (msm *MemoryStorageManager) String() string {
	msm.mutex.Lock()
	defer msm.mutex.Unlock()

	buf := new(bytes.Buffer)

	buf.WriteString(fmt.Sprintf("MemoryStorageManager %v\n", msm.name))

	locs := make([]uint64, 0, len(msm.data))
	for k := range msm.data {
		locs = append(locs, k)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i] < locs[j] })

	for _, k := range locs {
		buf.WriteString(fmt.Sprintf("%v - %v\n", k, msm.data[k]))
	}

	return buf.String()
}
