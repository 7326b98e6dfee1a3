/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package psn

import (
	"errors"
	"testing"

	"github.com/krotik/xmlnode/data"
)

func TestMemoryPathSynopsis(t *testing.T) {
	ps := NewMemoryPathSynopsis()

	a, err := ps.GetChild(nil, NoParent, data.NewQName("a"), data.Element, nil)
	if err != nil || a.PCR != 0 || a.Level != 1 || a.Parent != nil {
		t.Error("Unexpected result:", a, err)
		return
	}

	b, _ := ps.GetChild(nil, a.PCR, data.NewQName("b"), data.Element, nil)
	id, _ := ps.GetChild(nil, b.PCR, data.NewQName("id"), data.Attribute, nil)

	if res := id.String(); res != "2 /a/b/@id (level 3)" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := id.Ancestor(2); res != a {
		t.Error("Unexpected result:", res)
		return
	}

	if res := id.Ancestor(5); res != nil {
		t.Error("Unexpected result:", res)
		return
	}

	// Same path returns the same node

	if b2, _ := ps.GetChild(nil, a.PCR, data.NewQName("b"), data.Element, nil); b2 != b {
		t.Error("Unexpected result:", b2)
		return
	}

	// Different namespace declarations are different paths

	ns := data.NewNsMapping(map[string]string{"x": "urn:x"})
	b3, _ := ps.GetChild(nil, a.PCR, data.NewQName("b"), data.Element, ns)

	if b3 == b || b3.NsMapping != ns {
		t.Error("Unexpected result:", b3)
		return
	}

	xb, _ := ps.GetChild(nil, a.PCR, data.QName{URI: "urn:x", Prefix: "x", Local: "b"}, data.Element, nil)
	if res := xb.Path(); res != "/a/x:b" {
		t.Error("Unexpected result:", res)
		return
	}

	if res, err := ps.Get(nil, b.PCR); err != nil || res != b {
		t.Error("Unexpected result:", res, err)
		return
	}

	if _, err := ps.Get(nil, 42); !errors.Is(err, ErrUnknownPCR) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := ps.GetChild(nil, 42, data.NewQName("b"), data.Element, nil); !errors.Is(err, ErrUnknownPCR) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := ps.GetChild(nil, a.PCR, data.NewQName("b"), data.Text, nil); !errors.Is(err, ErrInvalidKind) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := ps.GetChild(nil, NoParent, data.NewQName("b"), data.Attribute, nil); !errors.Is(err, ErrInvalidKind) {
		t.Error("Unexpected result:", err)
		return
	}

	if res := ps.Count(); res != 5 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := ps.String(); res != `0 /a (level 1)
1 /a/b (level 2)
2 /a/b/@id (level 3)
3 /a/b (level 2)
4 /a/x:b (level 2)
` {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestBulkManager(t *testing.T) {
	ps := NewMemoryPathSynopsis()
	bm := ps.SpawnBulkSubManager(nil)

	a, _ := bm.GetChild(nil, NoParent, data.NewQName("a"), data.Element, nil)

	lookups := ps.Lookups

	// Repeated lookups are served from the local cache

	for i := 0; i < 10; i++ {
		if res, _ := bm.GetChild(nil, NoParent, data.NewQName("a"), data.Element, nil); res != a {
			t.Error("Unexpected result:", res)
			return
		}
		if res, _ := bm.Get(nil, a.PCR); res != a {
			t.Error("Unexpected result:", res)
			return
		}
	}

	if ps.Lookups != lookups {
		t.Error("Unexpected number of lookups:", ps.Lookups, lookups)
		return
	}

	// Nodes created by the bulk manager are visible in the synopsis

	if res, _ := ps.Get(nil, a.PCR); res != a {
		t.Error("Unexpected result:", res)
		return
	}

	if _, err := bm.Get(nil, 99); !errors.Is(err, ErrUnknownPCR) {
		t.Error("Unexpected result:", err)
		return
	}

	bm.Close()

	if _, err := bm.Get(nil, a.PCR); err != ErrClosed {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := bm.GetChild(nil, NoParent, data.NewQName("a"), data.Element, nil); err != ErrClosed {
		t.Error("Unexpected result:", err)
		return
	}
}
