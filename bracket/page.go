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
	"sort"
)

/*
page is a sorted run of index entries. Pages form a doubly linked list.
*/
type page struct {
	Version uint64   // Version of the page (increased on every key change)
	Prev    uint64   // Location of the previous page (0 for the first page)
	Next    uint64   // Location of the next page (0 for the last page)
	Keys    [][]byte // Keys of this page
	Values  [][]byte // Values of this page (empty for placeholder entries)
}

/*
search returns the position of the first key which is greater or equal to a
given key and if the key at that position is equal.
*/
func (p *page) search(key []byte) (int, bool) {
	i := sort.Search(len(p.Keys), func(i int) bool {
		return bytes.Compare(p.Keys[i], key) >= 0
	})

	return i, i < len(p.Keys) && bytes.Equal(p.Keys[i], key)
}

/*
covers checks if a given key lies within the key range of this page.
*/
func (p *page) covers(key []byte) bool {
	return len(p.Keys) > 0 && bytes.Compare(p.Keys[0], key) <= 0 &&
		bytes.Compare(key, p.Keys[len(p.Keys)-1]) <= 0
}

/*
isPlaceholder checks if the entry at a given position is a placeholder.
*/
func (p *page) isPlaceholder(pos int) bool {
	return len(p.Values[pos]) == 0
}

/*
insert inserts an entry at a given position.
*/
func (p *page) insert(pos int, key []byte, value []byte) {
	p.Keys = append(p.Keys, nil)
	copy(p.Keys[pos+1:], p.Keys[pos:])
	p.Keys[pos] = key

	p.Values = append(p.Values, nil)
	copy(p.Values[pos+1:], p.Values[pos:])
	p.Values[pos] = value

	p.Version++
}

/*
remove removes the entries in the range [from, to).
*/
func (p *page) remove(from int, to int) {
	p.Keys = append(p.Keys[:from], p.Keys[to:]...)
	p.Values = append(p.Values[:from], p.Values[to:]...)

	p.Version++
}

/*
String returns a string representation of this page.
*/
func (p *page) String() string {
	return fmt.Sprintf("page v%v prev=%v next=%v entries=%v", p.Version, p.Prev, p.Next, len(p.Keys))
}

/*
directory maps separator keys to page locations. The separator of the first
page is always empty. All keys of page i are greater or equal to separator i
and smaller than separator i+1.
*/
type directory struct {
	Separators [][]byte // Separator keys
	Pages      []uint64 // Page locations
}

/*
find returns the directory position of the page which may contain a given key.
*/
func (d *directory) find(key []byte) int {
	i := sort.Search(len(d.Separators), func(i int) bool {
		return bytes.Compare(d.Separators[i], key) > 0
	})

	return i - 1
}

/*
indexOf returns the directory position of a page location or -1.
*/
func (d *directory) indexOf(loc uint64) int {
	for i, l := range d.Pages {
		if l == loc {
			return i
		}
	}
	return -1
}

/*
insertAfter inserts a new page after a given directory position.
*/
func (d *directory) insertAfter(pos int, separator []byte, loc uint64) {
	d.Separators = append(d.Separators, nil)
	copy(d.Separators[pos+2:], d.Separators[pos+1:])
	d.Separators[pos+1] = separator

	d.Pages = append(d.Pages, 0)
	copy(d.Pages[pos+2:], d.Pages[pos+1:])
	d.Pages[pos+1] = loc
}

/*
removeAt removes the page at a given directory position.
*/
func (d *directory) removeAt(pos int) {
	d.Separators = append(d.Separators[:pos], d.Separators[pos+1:]...)
	d.Pages = append(d.Pages[:pos], d.Pages[pos+1:]...)

	if len(d.Separators) > 0 {
		d.Separators[0] = nil
	}
}
