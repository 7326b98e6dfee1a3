/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package util

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func TestNodeError(t *testing.T) {
	err := NewNodeError(ErrStructural, "foo")

	if res := err.Error(); res != "NodeError: Structural inconsistency (foo)" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := (&NodeError{ErrLocked, ""}).Error(); res != "NodeError: Could not acquire lock" {
		t.Error("Unexpected result:", res)
		return
	}

	if !errors.Is(err, ErrStructural) {
		t.Error("Error type should match")
		return
	}

	wrapped := WrapIndexError(fmt.Errorf("disk full"))
	if !errors.Is(wrapped, ErrIndexAccess) || wrapped.Error() != "NodeError: Index access failure (disk full)" {
		t.Error("Unexpected result:", wrapped)
		return
	}

	if res := WrapIndexError(err); res != error(err) {
		t.Error("NodeErrors should not be wrapped again:", res)
		return
	}

	if WrapIndexError(nil) != nil {
		t.Error("Nil should stay nil")
		return
	}
}

func TestNamesDictionary(t *testing.T) {
	nd := NewNamesDictionary(make(map[string]string))

	a, _ := nd.Translate(nil, "a")
	b, _ := nd.Translate(nil, "b")
	a2, _ := nd.Translate(nil, "a")

	if a != 1 || b != 2 || a2 != 1 || nd.Size() != 2 {
		t.Error("Unexpected result:", a, b, a2)
		return
	}

	if res, err := nd.Resolve(nil, b); err != nil || res != "b" {
		t.Error("Unexpected result:", res, err)
		return
	}

	if _, err := nd.Resolve(nil, 42); !errors.Is(err, ErrNotFound) {
		t.Error("Unexpected result:", err)
		return
	}

	if id, ok := nd.Lookup("c"); ok || id != 0 {
		t.Error("Unexpected result:", id, ok)
		return
	}

	if id, ok := nd.Lookup("a"); !ok || id != 1 {
		t.Error("Unexpected result:", id, ok)
		return
	}
}

func TestPersistentNamesDictionary(t *testing.T) {
	file := filepath.Join(t.TempDir(), "names.dict")

	nd, err := NewPersistentNamesDictionary(file)
	if err != nil {
		t.Error(err)
		return
	}

	nd.Translate(nil, "foo")
	nd.Translate(nil, "bar")

	nd2, err := NewPersistentNamesDictionary(file)
	if err != nil {
		t.Error(err)
		return
	}

	if res, err := nd2.Resolve(nil, 2); err != nil || res != "bar" {
		t.Error("Unexpected result:", res, err)
		return
	}

	if res, _ := nd2.Translate(nil, "baz"); res != 3 {
		t.Error("Unexpected result:", res)
		return
	}
}
