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
	"errors"
	"fmt"
	"strings"
	"testing"
)

type testobj struct {
	Val1 int
	Val2 string
}

func TestMemoryStorageManager(t *testing.T) {
	var msm Manager = NewMemoryStorageManager("test")

	if res := msm.Name(); res != "test" {
		t.Error("Unexpected result:", res)
		return
	}

	msm.SetRoot(5, 20)
	if res := msm.Root(5); res != 20 {
		t.Error("Unexpected result:", res)
		return
	}

	loc, err := msm.Insert(&testobj{1, "foo"})
	if err != nil || loc != 1 {
		t.Error("Unexpected result:", loc, err)
		return
	}

	// Fetch returns a copy

	var obj testobj
	if err := msm.Fetch(loc, &obj); err != nil || obj.Val2 != "foo" {
		t.Error("Unexpected result:", obj, err)
		return
	}

	obj.Val2 = "bar"

	cached, err := msm.FetchCached(loc)
	if err != nil || cached.(*testobj).Val2 != "foo" {
		t.Error("Unexpected result:", cached, err)
		return
	}

	if err := msm.Update(loc, &obj); err != nil {
		t.Error(err)
		return
	}

	if cached, _ := msm.FetchCached(loc); cached.(*testobj).Val2 != "bar" {
		t.Error("Unexpected result:", cached)
		return
	}

	if err := msm.Update(99, &obj); !errors.Is(err, ErrSlotNotFound) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := msm.Free(loc); err != nil {
		t.Error(err)
		return
	}

	if err := msm.Fetch(loc, &obj); !errors.Is(err, ErrSlotNotFound) {
		t.Error("Unexpected result:", err)
		return
	}

	if res := msm.(*MemoryStorageManager).Count(); res != 0 {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestMemoryStorageManagerAccessMap(t *testing.T) {
	msm := NewMemoryStorageManager("test")

	msm.AccessMap[1] = AccessInsertError

	if _, err := msm.Insert("foo"); !errors.Is(err, ErrAlreadyInUse) {
		t.Error("Unexpected result:", err)
		return
	}

	delete(msm.AccessMap, 1)

	loc, _ := msm.Insert("foo")

	for flag, check := range map[int]func() error{
		AccessNotInCache: func() error {
			_, err := msm.FetchCached(loc)
			return err
		},
		AccessFetchError: func() error {
			var s string
			return msm.Fetch(loc, &s)
		},
		AccessUpdateError: func() error {
			return msm.Update(loc, "bar")
		},
		AccessFreeError: func() error {
			return msm.Free(loc)
		},
		AccessCacheAndFetchSeriousError: func() error {
			var s string
			return msm.Fetch(loc, &s)
		},
	} {
		msm.AccessMap[loc] = flag

		if err := check(); err == nil {
			t.Error("Expected an error for access flag:", flag)
			return
		}
	}

	msm.AccessMap[loc] = AccessCacheAndFetchError
	if _, err := msm.FetchCached(loc); !errors.Is(err, ErrNotInCache) {
		t.Error("Unexpected result:", err)
		return
	}

	msm.RetFlush = fmt.Errorf("testerror")
	if err := msm.Flush(); err == nil || msm.CallNumFlush != 1 {
		t.Error("Unexpected result:", err)
		return
	}

	if err := msm.Close(); err != nil || msm.CallNumClose != 1 {
		t.Error("Unexpected result:", err)
		return
	}

	if res := msm.String(); !strings.HasPrefix(res, "MemoryStorageManager test\n1 - foo") {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestCachedStorageManager(t *testing.T) {
	msm := NewMemoryStorageManager("test")
	csm := NewCachedStorageManager(msm, 2)

	if csm.Name() != "test" {
		t.Error("Unexpected name:", csm.Name())
		return
	}

	csm.SetRoot(3, 42)
	if csm.Root(3) != 42 || msm.Root(3) != 42 {
		t.Error("Unexpected root")
		return
	}

	obj1 := &testobj{1, "one"}
	obj2 := &testobj{2, "two"}
	obj3 := &testobj{3, "three"}

	loc1, _ := csm.Insert(obj1)
	loc2, _ := csm.Insert(obj2)

	// Cached objects are returned by reference

	if res, err := csm.FetchCached(loc1); err != nil || res != obj1 {
		t.Error("Unexpected result:", res, err)
		return
	}

	// Inserting a third object removes the least requested one (obj2)

	loc3, _ := csm.Insert(obj3)

	if _, err := csm.FetchCached(loc2); !errors.Is(err, ErrNotInCache) {
		t.Error("Unexpected result:", err)
		return
	}

	if res, err := csm.FetchCached(loc3); err != nil || res != obj3 || csm.CacheSize() != 2 {
		t.Error("Unexpected result:", res, err)
		return
	}

	var res testobj
	if err := csm.Fetch(loc2, &res); err != nil || res.Val2 != "two" {
		t.Error("Unexpected result:", res, err)
		return
	}

	if c, _ := csm.FetchCached(loc2); c.(*testobj).Val2 != "two" {
		t.Error("Unexpected result:", c)
		return
	}

	// Failed updates do not touch the cache

	msm.AccessMap[loc2] = AccessUpdateError

	if err := csm.Update(loc2, obj1); err == nil {
		t.Error("Update should fail")
		return
	}

	if c, _ := csm.FetchCached(loc2); c.(*testobj).Val2 != "two" {
		t.Error("Unexpected result:", c)
		return
	}

	if err := csm.Free(loc2); err != nil {
		t.Error(err)
		return
	}

	if _, err := csm.FetchCached(loc2); err == nil {
		t.Error("Freed location should not be cached")
		return
	}

	if err := csm.Rollback(); err != nil || csm.CacheSize() != 0 || msm.CallNumRollback != 1 {
		t.Error("Unexpected rollback result:", err)
		return
	}

	if err := csm.Flush(); err != nil || msm.CallNumFlush != 1 {
		t.Error("Unexpected flush result:", err)
		return
	}

	if err := csm.Close(); err != nil || msm.CallNumClose != 1 {
		t.Error("Unexpected close result:", err)
		return
	}
}
