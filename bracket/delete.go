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

	"github.com/krotik/xmlnode/dewey"
	"github.com/krotik/xmlnode/trans"
)

/*
DeleteSubtree removes a given key and all keys which it prefixes. The removed
entries are streamed to the listener in document order before any entry is
removed. An error of the listener aborts the deletion. Returns the number of
removed entries.
*/
func (pi *PagedIndex) DeleteSubtree(txn *trans.Txn, root uint64, key dewey.ID,
	listener DeleteListener) (int, error) {

	prefix := key.Bytes()

	dir, err := pi.fetchDirectory(root)
	if err != nil {
		return 0, err
	}

	var ranges []uint64

	// Collect all affected page ranges and stream their entries

	loc := dir.Pages[dir.find(prefix)]

	for loc != 0 {
		p, err := pi.fetchPage(loc)
		if err != nil {
			return 0, err
		}

		from, _ := p.search(prefix)
		to := from

		for to < len(p.Keys) && bytes.HasPrefix(p.Keys[to], prefix) {
			id, err := dewey.FromBytes(p.Keys[to])
			if err != nil {
				return 0, &IndexError{ErrInvalidEntry, err.Error()}
			}

			var value []byte
			if !p.isPlaceholder(to) {
				value = p.Values[to]
			}

			if err := listener.Deleted(id, value, id.Level()); err != nil {
				return 0, err
			}

			to++
		}

		if to > from {
			ranges = append(ranges, loc)
		}

		if to < len(p.Keys) {
			break
		}

		loc = p.Next
	}

	if err := listener.Done(); err != nil {
		return 0, err
	}

	// Remove the entries and unlink pages which became empty

	count := 0
	dirChanged := false

	for _, rloc := range ranges {

		// Pages are fetched again since unlinking may have changed their links

		p, err := pi.fetchPage(rloc)
		if err != nil {
			return count, err
		}

		from, _ := p.search(prefix)
		to := from
		for to < len(p.Keys) && bytes.HasPrefix(p.Keys[to], prefix) {
			to++
		}

		p.remove(from, to)
		count += to - from

		if len(p.Keys) > 0 || len(dir.Pages) == 1 {
			if err := pi.storePage(rloc, p); err != nil {
				return count, err
			}
			continue
		}

		if err := pi.unlinkPage(rloc, p); err != nil {
			return count, err
		}

		dir.removeAt(dir.indexOf(rloc))
		dirChanged = true
	}

	if dirChanged {
		if err := pi.storeDirectory(root, dir); err != nil {
			return count, err
		}
	}

	return count, nil
}

/*
unlinkPage removes an empty page from the page list and frees it.
*/
func (pi *PagedIndex) unlinkPage(loc uint64, p *page) error {
	if p.Prev != 0 {
		prev, err := pi.fetchPage(p.Prev)
		if err != nil {
			return err
		}

		prev.Next = p.Next

		if err := pi.storePage(p.Prev, prev); err != nil {
			return err
		}
	}

	if p.Next != 0 {
		next, err := pi.fetchPage(p.Next)
		if err != nil {
			return err
		}

		next.Prev = p.Prev

		if err := pi.storePage(p.Next, next); err != nil {
			return err
		}
	}

	if err := pi.sm.Free(loc); err != nil {
		return newStorageError(err)
	}

	return nil
}
