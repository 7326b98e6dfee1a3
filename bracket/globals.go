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
Package bracket contains the clustered index which stores (label, record)
pairs in document order.

# PagedIndex

The index stores its entries in a doubly linked list of pages. Each page holds
a sorted run of keys (label encodings) and values (record encodings). A
directory object maps separator keys to page locations. Pages and the
directory are stored through a storage.Manager.

Entries are either data entries or placeholder entries. A placeholder entry
has a key but no value. It stands for an implicit ancestor element whose
record was never written. A cursor positioned on a placeholder returns the
value of the first following data entry.

# Cursor

A cursor is positioned on one entry and moves with navigation modes. The
page information of a cursor can be passed to a later Open call as a hint.
A hint is advisory, stale hints fall back to a full search.

# InsertController

Writes a run of entries with strictly ascending keys. Each insert can
materialize a number of placeholder entries for the nearest ancestors of the
inserted key.

# DeleteSubtree

Removes all entries of a subtree and streams them in document order to a
DeleteListener before they are removed.
*/
package bracket

import (
	"errors"
	"fmt"

	"github.com/krotik/xmlnode/dewey"
)

/*
NavigationMode is a cursor navigation mode.
*/
type NavigationMode int

/*
Navigation modes
*/
const (
	ToKey NavigationMode = iota
	Greater
	GreaterOrEqual
	Less
	LessOrEqual
	First
	Last
	Next
	Previous
)

var navigationModeNames = []string{"ToKey", "Greater", "GreaterOrEqual", "Less",
	"LessOrEqual", "First", "Last", "Next", "Previous"}

/*
String returns the name of a navigation mode.
*/
func (m NavigationMode) String() string {
	if int(m) >= 0 && int(m) < len(navigationModeNames) {
		return navigationModeNames[m]
	}
	return fmt.Sprintf("NavigationMode(%d)", int(m))
}

/*
OpenMode determines what a cursor is allowed to do.
*/
type OpenMode int

/*
Open modes
*/
const (
	Read       OpenMode = iota // Cursor can only read
	Update                     // Cursor can update values
	BulkInsert                 // Insert controller keeps pages full when appending
)

/*
DefaultPageCapacity is the default number of entries of a page.
*/
const DefaultPageCapacity = 64

/*
Index related error types.
*/
var (
	ErrKeyOrder     = errors.New("Keys must be inserted in ascending order")
	ErrKeyExists    = errors.New("Key exists already")
	ErrInvalidRoot  = errors.New("Invalid index root")
	ErrClosed       = errors.New("Cursor or controller is closed")
	ErrReadOnly     = errors.New("Cursor was opened read-only")
	ErrNoData       = errors.New("Entry has no data")
	ErrStorage      = errors.New("Storage error")
	ErrInvalidEntry = errors.New("Invalid entry")
)

/*
IndexError is a clustered index related error.
*/
type IndexError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
Error returns a human-readable string representation of this error.
*/
func (e *IndexError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("IndexError: %v (%v)", e.Type, e.Detail)
	}
	return fmt.Sprintf("IndexError: %v", e.Type)
}

/*
Unwrap returns the type of this error.
*/
func (e *IndexError) Unwrap() error {
	return e.Type
}

/*
newStorageError wraps an error of the storage manager.
*/
func newStorageError(err error) *IndexError {
	return &IndexError{ErrStorage, err.Error()}
}

/*
PageInfo describes the page of a cursor position. It can be used as a page
locality hint. The zero value is no hint.
*/
type PageInfo struct {
	Loc     uint64 // Storage location of the page
	Version uint64 // Version of the page when it was visited
}

/*
Valid returns if this page info points to a page.
*/
func (pi PageInfo) Valid() bool {
	return pi.Loc != 0
}

/*
String returns a string representation of this page info.
*/
func (pi PageInfo) String() string {
	return fmt.Sprintf("page %v v%v", pi.Loc, pi.Version)
}

/*
DeleteListener receives all entries of a deleted subtree in document order.
Placeholder entries are passed with a nil value.
*/
type DeleteListener interface {

	/*
		Deleted is called for each entry of the subtree.
	*/
	Deleted(key dewey.ID, value []byte, level int) error

	/*
		Done is called after the last entry.
	*/
	Done() error
}

/*
Stats contains usage statistics of an index.
*/
type Stats struct {
	FullSearches  int // Number of searches which started at the directory
	HintedLookups int // Number of lookups which were satisfied by a hint
	HintMisses    int // Number of hints which could not be used
	Splits        int // Number of page splits
}
