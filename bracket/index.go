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
	"io"
	"sync"

	"github.com/krotik/common/stringutil"
	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/dewey"
	"github.com/krotik/xmlnode/storage"
	"github.com/krotik/xmlnode/trans"
)

/*
PagedIndex is a clustered index which stores its pages through a storage
manager. An index instance can manage several independent trees, each
identified by the location of its directory (its root). A PagedIndex must
not be modified concurrently.
*/
type PagedIndex struct {
	sm       storage.Manager // Storage manager for pages and directories
	capacity int             // Maximum number of entries per page
	stats    Stats           // Usage statistics
	mutex    *sync.Mutex     // Mutex to protect the statistics
}

/*
NewPagedIndex creates a new paged index. Capacities below 2 are set to
DefaultPageCapacity.
*/
func NewPagedIndex(sm storage.Manager, capacity int) *PagedIndex {
	if capacity < 2 {
		capacity = DefaultPageCapacity
	}
	return &PagedIndex{sm, capacity, Stats{}, &sync.Mutex{}}
}

/*
StorageManager returns the storage manager of this index.
*/
func (pi *PagedIndex) StorageManager() storage.Manager {
	return pi.sm
}

/*
CreateRoot creates a new empty tree and returns its root.
*/
func (pi *PagedIndex) CreateRoot() (uint64, error) {
	loc, err := pi.sm.Insert(&page{})
	if err != nil {
		return 0, newStorageError(err)
	}

	root, err := pi.sm.Insert(&directory{[][]byte{nil}, []uint64{loc}})
	if err != nil {
		return 0, newStorageError(err)
	}

	return root, nil
}

/*
Stats returns the current usage statistics.
*/
func (pi *PagedIndex) Stats() Stats {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	return pi.stats
}

/*
countStat increases a statistics counter.
*/
func (pi *PagedIndex) countStat(f func(s *Stats)) {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	f(&pi.stats)
}

/*
Open opens a cursor and navigates it relative to a given key. Returns nil if
no entry satisfies the navigation. An optional hint from a previous cursor
position can avoid a search from the directory.
*/
func (pi *PagedIndex) Open(txn *trans.Txn, root uint64, mode NavigationMode, key dewey.ID,
	openMode OpenMode, hint PageInfo) (*Cursor, error) {

	c := &Cursor{index: pi, root: root, openMode: openMode}

	var kb []byte
	if !key.IsZero() {
		kb = key.Bytes()
	}

	ok, err := c.seek(mode, kb, hint)

	if err != nil || !ok {
		c.Close()
		return nil, err
	}

	return c, nil
}

/*
Get returns the value stored under a given key. Placeholder entries return
the value of the first following data entry. The second return value is the
page info of the entry. Returns a nil value if the key does not exist.
*/
func (pi *PagedIndex) Get(txn *trans.Txn, root uint64, key dewey.ID, hint PageInfo) ([]byte, PageInfo, error) {
	c, err := pi.Open(txn, root, ToKey, key, Read, hint)
	if c == nil {
		return nil, PageInfo{}, err
	}
	defer c.Close()

	v, err := c.Value()

	return v, c.PageInfo(), err
}

/*
Count returns the number of entries (data and placeholder entries) of a tree.
*/
func (pi *PagedIndex) Count(txn *trans.Txn, root uint64) (int, error) {
	dir, err := pi.fetchDirectory(root)
	if err != nil {
		return 0, err
	}

	count := 0

	for _, loc := range dir.Pages {
		p, err := pi.fetchPage(loc)
		if err != nil {
			return 0, err
		}
		count += len(p.Keys)
	}

	return count, nil
}

/*
PageCount returns the number of pages of a tree.
*/
func (pi *PagedIndex) PageCount(txn *trans.Txn, root uint64) (int, error) {
	dir, err := pi.fetchDirectory(root)
	if err != nil {
		return 0, err
	}

	return len(dir.Pages), nil
}

/*
Dump writes a human-readable listing of all entries of a tree.
*/
func (pi *PagedIndex) Dump(txn *trans.Txn, root uint64, w io.Writer) error {
	dir, err := pi.fetchDirectory(root)
	if err != nil {
		return err
	}

	count := 0
	buf := &bytes.Buffer{}

	for i, loc := range dir.Pages {
		p, err := pi.fetchPage(loc)
		if err != nil {
			return err
		}

		buf.WriteString(fmt.Sprintf("[%v] %v\n", i, p))

		for j, k := range p.Keys {
			id, err := dewey.FromBytes(k)
			if err != nil {
				return &IndexError{ErrInvalidEntry, err.Error()}
			}

			if p.isPlaceholder(j) {
				buf.WriteString(fmt.Sprintf("  %v -\n", id))
				continue
			}

			rec, err := data.DecodeRecord(p.Values[j])
			if err != nil {
				return &IndexError{ErrInvalidEntry, err.Error()}
			}

			buf.WriteString(fmt.Sprintf("  %v %v\n", id, rec))
		}

		count += len(p.Keys)
	}

	buf.WriteString(fmt.Sprintf("%v entr%v in %v page%v\n", count, pluralY(count),
		len(dir.Pages), stringutil.Plural(len(dir.Pages))))

	_, err = w.Write(buf.Bytes())

	return err
}

/*
pluralY returns the plural ending of entry.
*/
func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

/*
fetchDirectory fetches the directory of a tree.
*/
func (pi *PagedIndex) fetchDirectory(root uint64) (*directory, error) {
	if obj, err := pi.sm.FetchCached(root); err == nil {
		if dir, ok := obj.(*directory); ok {
			return dir, nil
		}
		return nil, &IndexError{ErrInvalidRoot, fmt.Sprint("Location:", root)}
	}

	dir := &directory{}

	if err := pi.sm.Fetch(root, dir); err != nil {
		return nil, &IndexError{ErrInvalidRoot, err.Error()}
	}

	if len(dir.Pages) == 0 {
		return nil, &IndexError{ErrInvalidRoot, fmt.Sprint("Location:", root)}
	}

	return dir, nil
}

/*
fetchPage fetches a page.
*/
func (pi *PagedIndex) fetchPage(loc uint64) (*page, error) {
	if obj, err := pi.sm.FetchCached(loc); err == nil {
		if p, ok := obj.(*page); ok {
			return p, nil
		}
	}

	p := &page{}

	if err := pi.sm.Fetch(loc, p); err != nil {
		return nil, newStorageError(err)
	}

	return p, nil
}

/*
storePage writes a page.
*/
func (pi *PagedIndex) storePage(loc uint64, p *page) error {
	if err := pi.sm.Update(loc, p); err != nil {
		return newStorageError(err)
	}
	return nil
}

/*
storeDirectory writes a directory.
*/
func (pi *PagedIndex) storeDirectory(root uint64, dir *directory) error {
	if err := pi.sm.Update(root, dir); err != nil {
		return newStorageError(err)
	}
	return nil
}

/*
locate finds the page which may contain a given key. A valid hint is used if
the hinted page still covers the key.
*/
func (pi *PagedIndex) locate(root uint64, key []byte, hint PageInfo) (uint64, *page, error) {
	if hint.Valid() {
		if p, err := pi.fetchPage(hint.Loc); err == nil && p.Version == hint.Version && p.covers(key) {
			pi.countStat(func(s *Stats) { s.HintedLookups++ })
			return hint.Loc, p, nil
		}

		pi.countStat(func(s *Stats) { s.HintMisses++ })
	}

	pi.countStat(func(s *Stats) { s.FullSearches++ })

	dir, err := pi.fetchDirectory(root)
	if err != nil {
		return 0, nil, err
	}

	loc := dir.Pages[dir.find(key)]

	p, err := pi.fetchPage(loc)

	return loc, p, err
}

/*
locateInsert finds the page which receives a new key. The hinted page is
used if it holds the key range of the new key. This is the case if the key
is within the keys of the page or if the page is the last page and the key
is not smaller than its first key.
*/
func (pi *PagedIndex) locateInsert(root uint64, key []byte, hint PageInfo) (uint64, *page, error) {
	if hint.Valid() {
		if p, err := pi.fetchPage(hint.Loc); err == nil && p.Version == hint.Version &&
			len(p.Keys) > 0 && bytes.Compare(p.Keys[0], key) <= 0 &&
			(p.Next == 0 || bytes.Compare(key, p.Keys[len(p.Keys)-1]) <= 0) {

			pi.countStat(func(s *Stats) { s.HintedLookups++ })
			return hint.Loc, p, nil
		}

		pi.countStat(func(s *Stats) { s.HintMisses++ })
	}

	return pi.locate(root, key, PageInfo{})
}

/*
insertEntry inserts a single entry. Returns the page which holds the new
entry.
*/
func (pi *PagedIndex) insertEntry(root uint64, key []byte, value []byte, bulk bool,
	hint PageInfo) (PageInfo, error) {

	loc, p, err := pi.locateInsert(root, key, hint)
	if err != nil {
		return PageInfo{}, err
	}

	pos, found := p.search(key)
	if found {
		id, _ := dewey.FromBytes(key)
		return PageInfo{}, &IndexError{ErrKeyExists, id.String()}
	}

	p.insert(pos, key, value)

	if len(p.Keys) <= pi.capacity {
		return PageInfo{loc, p.Version}, pi.storePage(loc, p)
	}

	dir, err := pi.fetchDirectory(root)
	if err != nil {
		return PageInfo{}, err
	}

	dpos := dir.indexOf(loc)
	if dpos == -1 {
		return PageInfo{}, &IndexError{ErrInvalidRoot, fmt.Sprint("Page not in directory:", loc)}
	}

	// Split the page - bulk inserts which append to the last page start a
	// new page which only contains the new entry

	mid := len(p.Keys) / 2
	if bulk && pos == len(p.Keys)-1 && p.Next == 0 {
		mid = pos
	}

	np := &page{
		Version: 1,
		Prev:    loc,
		Next:    p.Next,
		Keys:    append([][]byte(nil), p.Keys[mid:]...),
		Values:  append([][]byte(nil), p.Values[mid:]...),
	}

	nloc, err := pi.sm.Insert(np)
	if err != nil {
		return PageInfo{}, newStorageError(err)
	}

	if np.Next != 0 {
		next, err := pi.fetchPage(np.Next)
		if err != nil {
			return PageInfo{}, err
		}

		next.Prev = nloc

		if err := pi.storePage(np.Next, next); err != nil {
			return PageInfo{}, err
		}
	}

	p.Keys = append([][]byte(nil), p.Keys[:mid]...)
	p.Values = append([][]byte(nil), p.Values[:mid]...)
	p.Next = nloc
	p.Version++

	if err := pi.storePage(loc, p); err != nil {
		return PageInfo{}, err
	}

	dir.insertAfter(dpos, np.Keys[0], nloc)

	if err := pi.storeDirectory(root, dir); err != nil {
		return PageInfo{}, err
	}

	pi.countStat(func(s *Stats) { s.Splits++ })

	if pos >= mid {
		return PageInfo{nloc, np.Version}, nil
	}

	return PageInfo{loc, p.Version}, nil
}
