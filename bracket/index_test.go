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
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/dewey"
	"github.com/krotik/xmlnode/storage"
)

func id(s string) dewey.ID {
	res, err := dewey.Parse(s)
	if err != nil {
		panic(err)
	}
	return res
}

func newTestIndex(t *testing.T, capacity int) (*PagedIndex, uint64, *storage.MemoryStorageManager) {
	sm := storage.NewMemoryStorageManager("test")
	pi := NewPagedIndex(sm, capacity)

	root, err := pi.CreateRoot()
	if err != nil {
		t.Fatal(err)
	}

	return pi, root, sm
}

/*
fillSiblings inserts n text children under 1:1.3.
*/
func fillSiblings(t *testing.T, pi *PagedIndex, root uint64, n int, mode OpenMode) []dewey.ID {
	ic, err := pi.OpenForInsert(nil, root, mode, id("1:1.3"))
	if err != nil {
		t.Fatal(err)
	}
	defer ic.Close()

	var keys []dewey.ID

	key := id("1:1.3").FirstChild()
	for i := 0; i < n; i++ {
		if err := ic.Insert(key, data.NewRecord(1, data.Text, fmt.Sprint("t", i)).Encode(), 0); err != nil {
			t.Fatal(err)
		}
		keys = append(keys, key)
		key = key.NextSibling()
	}

	return keys
}

func TestInsertWithAncestors(t *testing.T) {
	pi, root, _ := newTestIndex(t, 0)

	ic, err := pi.OpenForInsert(nil, root, Update, dewey.DocumentID(1))
	if err != nil {
		t.Error(err)
		return
	}

	// <a><b/><c>x</c></a>

	if err := ic.Insert(id("1:1.3.3"), data.NewElementRecord(2).Encode(), 1); err != nil {
		t.Error(err)
		return
	}

	if err := ic.Insert(id("1:1.3.5.3"), data.NewRecord(3, data.Text, "x").Encode(), 1); err != nil {
		t.Error(err)
		return
	}

	if res := ic.Count(); res != 4 {
		t.Error("Unexpected result:", res)
		return
	}

	// Keys must be ascending

	if err := ic.Insert(id("1:1.3.5.3"), data.NewRecord(3, data.Text, "y").Encode(), 0); !errors.Is(err, ErrKeyOrder) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := ic.Insert(id("1:1.5"), data.NewElementRecord(2).Encode(), 2); !errors.Is(err, ErrInvalidEntry) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := ic.Insert(id("1:1.5"), nil, 0); !errors.Is(err, ErrNoData) {
		t.Error("Unexpected result:", err)
		return
	}

	ic.Close()
	ic.Close()

	if err := ic.Insert(id("1:1.7"), data.NewElementRecord(2).Encode(), 0); !errors.Is(err, ErrClosed) {
		t.Error("Unexpected result:", err)
		return
	}

	if res, _ := pi.Count(nil, root); res != 4 {
		t.Error("Unexpected result:", res)
		return
	}

	var buf bytes.Buffer
	if err := pi.Dump(nil, root, &buf); err != nil {
		t.Error(err)
		return
	}

	if res := buf.String(); res != `[0] page v4 prev=0 next=0 entries=4
  1:1.3 -
  1:1.3.3 element pcr=2
  1:1.3.5 -
  1:1.3.5.3 text pcr=3 "x"
4 entries in 1 page
` {
		t.Error("Unexpected result:", res)
		return
	}

	// Placeholders borrow the record of the next data entry

	c, err := pi.Open(nil, root, ToKey, id("1:1.3"), Read, PageInfo{})
	if err != nil || c == nil {
		t.Error("Unexpected result:", c, err)
		return
	}

	if rec, err := c.Record(); err != nil || !c.IsPlaceholder() || rec.PCR != 2 {
		t.Error("Unexpected result:", rec, err)
		return
	}

	c.Navigate(Next)
	c.Navigate(Next)

	if rec, err := c.Record(); err != nil || !c.IsPlaceholder() || rec.Value != "x" || c.Key().String() != "1:1.3.5" {
		t.Error("Unexpected result:", rec, err)
		return
	}

	if err := c.Update(data.NewElementRecord(4).Encode()); !errors.Is(err, ErrReadOnly) {
		t.Error("Unexpected result:", err)
		return
	}

	c.Close()
	c.Close()

	if _, err := c.Value(); !errors.Is(err, ErrClosed) {
		t.Error("Unexpected result:", err)
		return
	}

	// Update a placeholder

	c, _ = pi.Open(nil, root, ToKey, id("1:1.3.5"), Update, PageInfo{})

	if err := c.Update(data.NewElementRecord(4).Encode()); err != nil {
		t.Error(err)
		return
	}

	if rec, _ := c.Record(); c.IsPlaceholder() || rec.PCR != 4 {
		t.Error("Unexpected result:", rec)
		return
	}

	c.Close()

	if v, _, err := pi.Get(nil, root, id("1:1.3.5"), PageInfo{}); err != nil || v == nil {
		t.Error("Unexpected result:", v, err)
		return
	}

	if v, _, err := pi.Get(nil, root, id("1:1.3.7"), PageInfo{}); err != nil || v != nil {
		t.Error("Unexpected result:", v, err)
		return
	}

	// Existing keys cannot be inserted again

	ic, _ = pi.OpenForInsert(nil, root, Update, dewey.DocumentID(1))

	if err := ic.Insert(id("1:1.3.3"), data.NewElementRecord(2).Encode(), 0); !errors.Is(err, ErrKeyExists) {
		t.Error("Unexpected result:", err)
		return
	}
}

func TestNavigation(t *testing.T) {
	pi, root, _ := newTestIndex(t, 3)

	keys := fillSiblings(t, pi, root, 20, Update)

	if res, _ := pi.PageCount(nil, root); res < 7 {
		t.Error("Unexpected page count:", res)
		return
	}

	if res := pi.Stats().Splits; res == 0 {
		t.Error("Pages were not split")
		return
	}

	// Forward and backward traversal over all pages

	c, _ := pi.Open(nil, root, First, dewey.ID{}, Read, PageInfo{})

	for i := 0; i < len(keys); i++ {
		if !c.Key().Equal(keys[i]) {
			t.Error("Unexpected key:", c.Key(), "expected:", keys[i])
			return
		}

		ok, err := c.Navigate(Next)
		if err != nil || ok != (i < len(keys)-1) {
			t.Error("Unexpected result:", ok, err)
			return
		}
	}

	if !c.Key().Equal(keys[len(keys)-1]) {
		t.Error("Cursor should stay on the last entry:", c.Key())
		return
	}

	for i := len(keys) - 1; i >= 0; i-- {
		if !c.Key().Equal(keys[i]) {
			t.Error("Unexpected key:", c.Key(), "expected:", keys[i])
			return
		}
		c.Navigate(Previous)
	}

	c.Close()

	c, _ = pi.Open(nil, root, Last, dewey.ID{}, Read, PageInfo{})
	if !c.Key().Equal(keys[19]) {
		t.Error("Unexpected key:", c.Key())
		return
	}
	c.Close()

	between := dewey.Between(keys[9], keys[10])

	for _, test := range []struct {
		mode     NavigationMode
		key      dewey.ID
		expected string
	}{
		{ToKey, keys[5], keys[5].String()},
		{ToKey, between, ""},
		{GreaterOrEqual, keys[5], keys[5].String()},
		{GreaterOrEqual, between, keys[10].String()},
		{Greater, keys[5], keys[6].String()},
		{Greater, between, keys[10].String()},
		{Greater, keys[19], ""},
		{Less, keys[5], keys[4].String()},
		{Less, between, keys[9].String()},
		{Less, keys[0], ""},
		{LessOrEqual, keys[5], keys[5].String()},
		{LessOrEqual, between, keys[9].String()},
		{LessOrEqual, id("1:1.3"), ""},
		{GreaterOrEqual, id("1:1.3"), keys[0].String()},
		{Less, id("1:1.5"), keys[19].String()},
	} {
		c, err := pi.Open(nil, root, test.mode, test.key, Read, PageInfo{})

		res := ""
		if c != nil {
			res = c.Key().String()
			c.Close()
		}

		if err != nil || res != test.expected {
			t.Error("Unexpected result for", test.mode, test.key, ":", res, err)
			return
		}
	}

	// Page boundaries are crossed in both directions

	for i := 1; i < len(keys); i++ {
		c, _ := pi.Open(nil, root, Less, keys[i], Read, PageInfo{})
		if !c.Key().Equal(keys[i-1]) {
			t.Error("Unexpected key:", c.Key())
			return
		}

		if ok, _ := c.Seek(Greater, keys[i]); !ok || (i < len(keys)-1 && !c.Key().Equal(keys[i+1])) {
			if i < len(keys)-1 {
				t.Error("Unexpected key:", c.Key())
				return
			}
		}

		c.Close()
	}

	if _, err := c.Navigate(Next); !errors.Is(err, ErrClosed) {
		t.Error("Unexpected result:", err)
		return
	}

	if res := NavigationMode(4).String(); res != "LessOrEqual" {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestHints(t *testing.T) {
	pi, root, _ := newTestIndex(t, 4)

	keys := fillSiblings(t, pi, root, 10, Update)

	c, _ := pi.Open(nil, root, ToKey, keys[4], Read, PageInfo{})
	hint := c.PageInfo()
	c.Close()

	if !hint.Valid() || !strings.HasPrefix(hint.String(), "page ") {
		t.Error("Unexpected hint:", hint)
		return
	}

	before := pi.Stats()

	// A hint for a key on the same page avoids a full search

	c, _ = pi.Open(nil, root, ToKey, keys[5], Read, hint)
	c.Close()

	after := pi.Stats()

	if after.HintedLookups != before.HintedLookups+1 || after.FullSearches != before.FullSearches {
		t.Error("Unexpected stats:", before, after)
		return
	}

	// A hint for a key outside of the page is a miss

	c, _ = pi.Open(nil, root, ToKey, keys[0], Read, hint)
	if !c.Key().Equal(keys[0]) {
		t.Error("Unexpected key:", c.Key())
		return
	}
	c.Close()

	before, after = after, pi.Stats()

	if after.HintMisses != before.HintMisses+1 || after.FullSearches != before.FullSearches+1 {
		t.Error("Unexpected stats:", before, after)
		return
	}

	// A stale hint is a miss

	ic, _ := pi.OpenForInsert(nil, root, Update, id("1:1.3"))
	ic.Insert(dewey.Between(keys[4], keys[5]), data.NewRecord(1, data.Text, "new").Encode(), 0)
	ic.Close()

	c, _ = pi.Open(nil, root, ToKey, keys[5], Read, hint)
	if !c.Key().Equal(keys[5]) {
		t.Error("Unexpected key:", c.Key())
		return
	}
	c.Close()

	before, after = after, pi.Stats()

	if after.HintMisses != before.HintMisses+1 {
		t.Error("Unexpected stats:", before, after)
		return
	}

	// A hint to a page which does not exist is a miss

	c, _ = pi.Open(nil, root, ToKey, keys[5], Read, PageInfo{Loc: 4242, Version: 1})
	if c == nil || !c.Key().Equal(keys[5]) {
		t.Error("Unexpected cursor:", c)
		return
	}
	c.Close()
}

func TestBulkInsert(t *testing.T) {
	pi, root, _ := newTestIndex(t, 4)
	fillSiblings(t, pi, root, 12, BulkInsert)

	if res, _ := pi.PageCount(nil, root); res != 3 {
		t.Error("Unexpected page count:", res)
		return
	}

	pi, root, _ = newTestIndex(t, 4)
	fillSiblings(t, pi, root, 12, Update)

	if res, _ := pi.PageCount(nil, root); res != 5 {
		t.Error("Unexpected page count:", res)
		return
	}
}

func TestInsertHints(t *testing.T) {
	pi, root, _ := newTestIndex(t, 4)

	ic, err := pi.OpenForInsert(nil, root, Update, id("1:1.3"))
	if err != nil {
		t.Fatal(err)
	}

	key := id("1:1.3").FirstChild()
	for i := 0; i < 12; i++ {
		if err := ic.Insert(key, data.NewRecord(1, data.Text, fmt.Sprint("t", i)).Encode(), 0); err != nil {
			t.Fatal(err)
		}
		key = key.NextSibling()
	}

	last := ic.LastPage()
	ic.Close()

	// Only the first insert needs a directory search

	if res := pi.Stats(); res.FullSearches != 1 || res.HintedLookups != 11 || res.HintMisses != 0 {
		t.Error("Unexpected stats:", res)
		return
	}

	c, _ := pi.Open(nil, root, Last, dewey.ID{}, Read, PageInfo{})
	if res := c.PageInfo(); res != last {
		t.Error("Unexpected result:", res, last)
		return
	}
	c.Close()

	if res, _ := pi.Count(nil, root); res != 12 {
		t.Error("Unexpected result:", res)
		return
	}

	// Inserting in front of the hinted page cannot use the hint

	keys := []dewey.ID{id("1:1.3.3"), id("1:1.3.5")}

	ic, _ = pi.OpenForInsert(nil, root, Update, id("1:1.3"))
	ic.hint = last

	before := pi.Stats()

	if err := ic.Insert(dewey.Between(keys[0], keys[1]), data.NewRecord(1, data.Text, "new").Encode(), 0); err != nil {
		t.Error(err)
		return
	}
	ic.Close()

	if res := pi.Stats(); res.HintMisses != before.HintMisses+1 || res.FullSearches != before.FullSearches+1 {
		t.Error("Unexpected stats:", before, res)
		return
	}

	c, _ = pi.Open(nil, root, ToKey, dewey.Between(keys[0], keys[1]), Read, PageInfo{})
	if c == nil {
		t.Error("Entry not found")
		return
	}
	c.Close()

	if res, _ := pi.Count(nil, root); res != 13 {
		t.Error("Unexpected result:", res)
		return
	}
}

type recordingListener struct {
	entries []string
	done    bool
	fail    error
}

func (rl *recordingListener) Deleted(key dewey.ID, value []byte, level int) error {
	if rl.fail != nil {
		return rl.fail
	}

	if value == nil {
		rl.entries = append(rl.entries, fmt.Sprintf("%v - %v", key, level))
	} else {
		rec, _ := data.DecodeRecord(value)
		rl.entries = append(rl.entries, fmt.Sprintf("%v %v %v", key, rec, level))
	}

	return nil
}

func (rl *recordingListener) Done() error {
	rl.done = true
	return nil
}

func TestDeleteSubtree(t *testing.T) {
	pi, root, sm := newTestIndex(t, 2)

	ic, _ := pi.OpenForInsert(nil, root, Update, dewey.DocumentID(1))
	ic.Insert(id("1:1.3.3"), data.NewElementRecord(2).Encode(), 2)
	ic.Insert(id("1:1.3.5.1.3"), data.NewRecord(4, data.Attribute, "v").Encode(), 1)
	ic.Insert(id("1:1.3.5.3"), data.NewRecord(3, data.Text, "x").Encode(), 0)
	ic.Insert(id("1:1.3.7"), data.NewElementRecord(5).Encode(), 0)
	ic.Close()

	if res, _ := pi.Count(nil, root); res != 7 {
		t.Error("Unexpected result:", res)
		return
	}

	pages, _ := pi.PageCount(nil, root)
	objects := sm.Count()

	// A failing listener aborts the deletion

	fl := &recordingListener{fail: errors.New("testerror")}

	if _, err := pi.DeleteSubtree(nil, root, id("1:1.3.5"), fl); err == nil || err.Error() != "testerror" {
		t.Error("Unexpected result:", err)
		return
	}

	if res, _ := pi.Count(nil, root); res != 7 {
		t.Error("Unexpected result:", res)
		return
	}

	rl := &recordingListener{}

	count, err := pi.DeleteSubtree(nil, root, id("1:1.3.5"), rl)
	if err != nil || count != 3 || !rl.done {
		t.Error("Unexpected result:", count, err)
		return
	}

	if res := strings.Join(rl.entries, "\n"); res != `1:1.3.5 - 2
1:1.3.5.1.3 attribute pcr=4 "v" 4
1:1.3.5.3 text pcr=3 "x" 3` {
		t.Error("Unexpected result:", res)
		return
	}

	if res, _ := pi.PageCount(nil, root); res >= pages || sm.Count() >= objects {
		t.Error("Empty pages were not freed:", res, pages)
		return
	}

	// Navigation still works across the changed page list

	c, _ := pi.Open(nil, root, Greater, id("1:1.3.3"), Read, PageInfo{})
	if c == nil || c.Key().String() != "1:1.3.7" {
		t.Error("Unexpected cursor:", c)
		return
	}
	c.Navigate(Previous)
	if c.Key().String() != "1:1.3.3" {
		t.Error("Unexpected key:", c.Key())
		return
	}
	c.Close()

	// Deleting a missing subtree does nothing

	rl = &recordingListener{}
	if count, err := pi.DeleteSubtree(nil, root, id("1:1.3.9"), rl); err != nil || count != 0 || !rl.done || len(rl.entries) != 0 {
		t.Error("Unexpected result:", count, err)
		return
	}

	// Delete everything

	rl = &recordingListener{}
	if count, err := pi.DeleteSubtree(nil, root, dewey.DocumentID(1), rl); err != nil || count != 4 {
		t.Error("Unexpected result:", count, err)
		return
	}

	if res, _ := pi.PageCount(nil, root); res != 1 {
		t.Error("Unexpected result:", res)
		return
	}

	if c, err := pi.Open(nil, root, First, dewey.ID{}, Read, PageInfo{}); c != nil || err != nil {
		t.Error("Unexpected result:", c, err)
		return
	}

	// The index can be filled again

	fillSiblings(t, pi, root, 5, Update)

	if res, _ := pi.Count(nil, root); res != 5 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestStorageErrors(t *testing.T) {
	pi, root, sm := newTestIndex(t, 0)

	if _, err := pi.Open(nil, 4242, First, dewey.ID{}, Read, PageInfo{}); !errors.Is(err, ErrInvalidRoot) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := pi.OpenForInsert(nil, 4242, Update, dewey.DocumentID(1)); !errors.Is(err, ErrInvalidRoot) {
		t.Error("Unexpected result:", err)
		return
	}

	fillSiblings(t, pi, root, 2, Update)

	// The first page has location 1

	sm.AccessMap[1] = storage.AccessCacheAndFetchError

	_, err := pi.Open(nil, root, First, dewey.ID{}, Read, PageInfo{})
	if !errors.Is(err, ErrStorage) || !strings.Contains(err.Error(), "Slot not found") {
		t.Error("Unexpected result:", err)
		return
	}

	sm.AccessMap[1] = storage.AccessNotInCache

	c, err := pi.Open(nil, root, First, dewey.ID{}, Update, PageInfo{})
	if err != nil || c == nil {
		t.Error("Unexpected result:", c, err)
		return
	}

	sm.AccessMap[1] = storage.AccessUpdateError

	if err := c.Update(data.NewElementRecord(1).Encode()); !errors.Is(err, ErrStorage) {
		t.Error("Unexpected result:", err)
		return
	}

	sm.AccessMap[sm.LocCount] = storage.AccessInsertError

	if _, err := pi.CreateRoot(); !errors.Is(err, ErrStorage) {
		t.Error("Unexpected result:", err)
		return
	}
}
