/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package bracket

import (
	"bytes"
	"fmt"

	"github.com/krotik/xmlnode/dewey"
	"github.com/krotik/xmlnode/trans"
)

/*
InsertController writes entries with strictly ascending keys which are
greater or equal to a start key.
*/
type InsertController struct {
	index    *PagedIndex // Index to write to
	root     uint64      // Root of the tree
	openMode OpenMode    // Open mode
	start    []byte      // Start key
	last     []byte      // Last written key
	hint     PageInfo    // Page of the last written entry
	count    int         // Number of written entries
	closed   bool        // Flag if the controller was closed
}

/*
OpenForInsert opens an insert controller for a tree.
*/
func (pi *PagedIndex) OpenForInsert(txn *trans.Txn, root uint64, openMode OpenMode,
	startKey dewey.ID) (*InsertController, error) {

	if _, err := pi.fetchDirectory(root); err != nil {
		return nil, err
	}

	return &InsertController{index: pi, root: root, openMode: openMode, start: startKey.Bytes()}, nil
}

/*
Insert writes a data entry for a given key. Before the data entry a
placeholder entry is written for each of the nearest ancestors of the key
(the number of ancestors is given by the ancestors parameter). Placeholders
are written farthest ancestor first.
*/
func (ic *InsertController) Insert(key dewey.ID, value []byte, ancestors int) error {
	if ic.closed {
		return &IndexError{ErrClosed, ""}
	} else if len(value) == 0 {
		return &IndexError{ErrNoData, key.String()}
	}

	keys := make([]dewey.ID, ancestors+1)
	keys[ancestors] = key

	for i := ancestors - 1; i >= 0; i-- {
		p := keys[i+1].Parent()
		if p.IsZero() {
			return &IndexError{ErrInvalidEntry,
				fmt.Sprintf("Key %v has no %v ancestors", key, ancestors)}
		}
		keys[i] = p
	}

	for i, k := range keys {
		var v []byte
		if i == ancestors {
			v = value
		}

		if err := ic.insert(k.Bytes(), v); err != nil {
			return err
		}
	}

	return nil
}

/*
insert writes a single entry.
*/
func (ic *InsertController) insert(key []byte, value []byte) error {
	if bytes.Compare(key, ic.start) < 0 || (ic.last != nil && bytes.Compare(key, ic.last) <= 0) {
		id, _ := dewey.FromBytes(key)
		return &IndexError{ErrKeyOrder, id.String()}
	}

	hint, err := ic.index.insertEntry(ic.root, key, value, ic.openMode == BulkInsert, ic.hint)
	if err != nil {
		return err
	}

	ic.last = key
	ic.hint = hint
	ic.count++

	return nil
}

/*
Count returns the number of written entries.
*/
func (ic *InsertController) Count() int {
	return ic.count
}

/*
LastPage returns the page of the last written entry.
*/
func (ic *InsertController) LastPage() PageInfo {
	return ic.hint
}

/*
Close closes this controller. Closing a controller more than once has no effect.
*/
func (ic *InsertController) Close() error {
	ic.closed = true
	return nil
}
