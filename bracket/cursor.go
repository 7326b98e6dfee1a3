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
	"fmt"

	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/dewey"
)

/*
Cursor is positioned on a single index entry. A cursor is owned by the call
chain which opened it and must be closed.
*/
type Cursor struct {
	index    *PagedIndex // Index of this cursor
	root     uint64      // Root of the tree
	openMode OpenMode    // Open mode of this cursor
	loc      uint64      // Location of the current page
	page     *page       // Current page
	pos      int         // Position on the current page
	key      dewey.ID    // Decoded key of the current position
	closed   bool        // Flag if the cursor was closed
}

/*
Key returns the key of the current entry.
*/
func (c *Cursor) Key() dewey.ID {
	return c.key
}

/*
IsPlaceholder returns if the current entry is a placeholder.
*/
func (c *Cursor) IsPlaceholder() bool {
	return !c.closed && c.page.isPlaceholder(c.pos)
}

/*
PageInfo returns the page info of the current position.
*/
func (c *Cursor) PageInfo() PageInfo {
	if c.closed {
		return PageInfo{}
	}
	return PageInfo{c.loc, c.page.Version}
}

/*
Value returns the value of the current entry. For placeholders the value of
the first following data entry is returned.
*/
func (c *Cursor) Value() ([]byte, error) {
	if c.closed {
		return nil, &IndexError{ErrClosed, ""}
	}

	p, pos := c.page, c.pos

	for p.isPlaceholder(pos) {
		pos++

		for pos >= len(p.Keys) {
			if p.Next == 0 {
				return nil, &IndexError{ErrNoData, c.key.String()}
			}

			np, err := c.index.fetchPage(p.Next)
			if err != nil {
				return nil, err
			}

			p, pos = np, 0
		}
	}

	return p.Values[pos], nil
}

/*
Record returns the decoded value of the current entry.
*/
func (c *Cursor) Record() (*data.Record, error) {
	v, err := c.Value()
	if err != nil {
		return nil, err
	}

	rec, err := data.DecodeRecord(v)
	if err != nil {
		return nil, &IndexError{ErrInvalidEntry, fmt.Sprint(c.key, ": ", err)}
	}

	return rec, nil
}

/*
Navigate moves the cursor relative to its current position. Modes which
require a key use the current key. Returns false and keeps the position if
no entry satisfies the navigation.
*/
func (c *Cursor) Navigate(mode NavigationMode) (bool, error) {
	if c.closed {
		return false, &IndexError{ErrClosed, ""}
	}

	switch mode {
	case Next:
		return c.step(1)
	case Previous:
		return c.step(-1)
	}

	return c.seek(mode, c.page.Keys[c.pos], PageInfo{c.loc, c.page.Version})
}

/*
Seek moves the cursor relative to a given key.
*/
func (c *Cursor) Seek(mode NavigationMode, key dewey.ID) (bool, error) {
	if c.closed {
		return false, &IndexError{ErrClosed, ""}
	}

	var kb []byte
	if !key.IsZero() {
		kb = key.Bytes()
	}

	return c.seek(mode, kb, PageInfo{c.loc, c.page.Version})
}

/*
Update replaces the value of the current entry. Updating a placeholder turns
it into a data entry.
*/
func (c *Cursor) Update(value []byte) error {
	if c.closed {
		return &IndexError{ErrClosed, ""}
	} else if c.openMode == Read {
		return &IndexError{ErrReadOnly, c.key.String()}
	} else if len(value) == 0 {
		return &IndexError{ErrNoData, c.key.String()}
	}

	c.page.Values[c.pos] = value

	return c.index.storePage(c.loc, c.page)
}

/*
Close closes this cursor. Closing a cursor more than once has no effect.
*/
func (c *Cursor) Close() {
	c.closed = true
	c.page = nil
}

/*
IsClosed returns if this cursor was closed.
*/
func (c *Cursor) IsClosed() bool {
	return c.closed
}

/*
String returns a string representation of this cursor.
*/
func (c *Cursor) String() string {
	if c.closed {
		return "Cursor (closed)"
	}
	return fmt.Sprintf("Cursor %v (%v pos %v)", c.key, c.PageInfo(), c.pos)
}

/*
step moves the cursor one entry forward or backward.
*/
func (c *Cursor) step(dir int) (bool, error) {
	loc, p, pos := c.loc, c.page, c.pos+dir

	for pos < 0 || pos >= len(p.Keys) {
		nloc := p.Next
		if pos < 0 {
			nloc = p.Prev
		}

		if nloc == 0 {
			return false, nil
		}

		np, err := c.index.fetchPage(nloc)
		if err != nil {
			return false, err
		}

		loc, p = nloc, np

		if pos = 0; dir < 0 {
			pos = len(p.Keys) - 1
		}
	}

	return c.positionAt(loc, p, pos)
}

/*
seek positions the cursor relative to a key.
*/
func (c *Cursor) seek(mode NavigationMode, key []byte, hint PageInfo) (bool, error) {
	var loc uint64
	var p *page
	var err error

	switch mode {
	case First, Last:
		dir, err := c.index.fetchDirectory(c.root)
		if err != nil {
			return false, err
		}

		c.index.countStat(func(s *Stats) { s.FullSearches++ })

		loc = dir.Pages[0]
		if mode == Last {
			loc = dir.Pages[len(dir.Pages)-1]
		}

		if p, err = c.index.fetchPage(loc); err != nil || len(p.Keys) == 0 {
			return false, err
		}

		if mode == First {
			return c.positionAt(loc, p, 0)
		}
		return c.positionAt(loc, p, len(p.Keys)-1)

	case Next, Previous:
		return false, &IndexError{ErrInvalidEntry, fmt.Sprint("Navigation mode needs a position: ", mode)}
	}

	if loc, p, err = c.index.locate(c.root, key, hint); err != nil {
		return false, err
	}

	pos, found := p.search(key)

	switch mode {
	case ToKey:
		if !found {
			return false, nil
		}
	case Greater:
		if found {
			pos++
		}
	case Less:
		pos--
	case LessOrEqual:
		if !found {
			pos--
		}
	}

	// Positions may be one beyond the page boundary

	if pos < 0 || pos >= len(p.Keys) {
		old := c.snapshot()
		c.loc, c.page, c.pos = loc, p, pos-signum(pos)

		ok, err := c.step(signum(pos))
		if !ok {
			c.restore(old)
		}

		return ok, err
	}

	return c.positionAt(loc, p, pos)
}

/*
signum returns -1 for negative positions and 1 otherwise.
*/
func signum(pos int) int {
	if pos < 0 {
		return -1
	}
	return 1
}

/*
cursorState is a saved cursor position.
*/
type cursorState struct {
	loc  uint64
	page *page
	pos  int
	key  dewey.ID
}

func (c *Cursor) snapshot() cursorState {
	return cursorState{c.loc, c.page, c.pos, c.key}
}

func (c *Cursor) restore(s cursorState) {
	c.loc, c.page, c.pos, c.key = s.loc, s.page, s.pos, s.key
}

/*
positionAt moves the cursor to a given page position.
*/
func (c *Cursor) positionAt(loc uint64, p *page, pos int) (bool, error) {
	key, err := dewey.FromBytes(p.Keys[pos])
	if err != nil {
		return false, &IndexError{ErrInvalidEntry, err.Error()}
	}

	c.loc, c.page, c.pos, c.key = loc, p, pos, key

	return true, nil
}
