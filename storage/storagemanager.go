/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package storage contains the page manager contract which is consumed by the
clustered index. Objects are stored at numeric locations. There are 2
implementations:

# MemoryStorageManager

A storage manager which keeps all its data in memory and provides several
error simulation facilities. Fetch returns deep copies of stored objects.

# CachedStorageManager

A cache wrapper for any other storage manager. It intercepts calls and keeps
references to the most recently requested objects. The cache is limited in
size by the number of total objects it references. Once the cache is full it
will forget the objects which have been requested the least.
*/
package storage

/*
Well known root ids
*/
const (
	RootIDVersion = 1 // Root id holding the version
	RootIDIndex   = 2 // Root id holding the directory of the clustered index
)

/*
Manager describes an abstract storage manager.
*/
type Manager interface {

	/*
	   Name returns the name of the StorageManager instance.
	*/
	Name() string

	/*
		Root returns a root value.
	*/
	Root(root int) uint64

	/*
		SetRoot writes a root value.
	*/
	SetRoot(root int, val uint64)

	/*
	   Insert inserts an object and return its storage location.
	*/
	Insert(o interface{}) (uint64, error)

	/*
	   Update updates a storage location.
	*/
	Update(loc uint64, o interface{}) error

	/*
		Free frees a storage location.
	*/
	Free(loc uint64) error

	/*
		Fetch fetches an object from a given storage location and writes it to
		a given data container.
	*/
	Fetch(loc uint64, o interface{}) error

	/*
		FetchCached fetches an object from a cache and returns its reference.
		Returns a storage.ErrNotInCache error if the entry is not in the cache.
	*/
	FetchCached(loc uint64) (interface{}, error)

	/*
	   Flush writes all pending changes.
	*/
	Flush() error

	/*
		Rollback cancels all pending changes which have not yet been written.
	*/
	Rollback() error

	/*
		Close the StorageManager and write all pending changes.
	*/
	Close() error
}
