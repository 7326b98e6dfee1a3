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
	"bytes"
	"fmt"
	"sync"

	"github.com/krotik/common/datautil"
	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/trans"
)

/*
BulkCacheSize is the maximum number of cached lookups of a bulk sub-manager.
*/
const BulkCacheSize = 1000

/*
MemoryPathSynopsis is a path synopsis which keeps all nodes in memory.
*/
type MemoryPathSynopsis struct {
	nodes    []*Node        // All nodes (PCR is the position)
	children map[string]int // Lookup from child key to PCR
	mutex    *sync.RWMutex  // Mutex to protect the node lists

	Lookups int // Number of lookups which reached this synopsis
}

/*
NewMemoryPathSynopsis creates a new empty path synopsis.
*/
func NewMemoryPathSynopsis() *MemoryPathSynopsis {
	return &MemoryPathSynopsis{nil, make(map[string]int), &sync.RWMutex{}, 0}
}

/*
childKey builds the lookup key of a child path.
*/
func childKey(parentPCR int, name data.QName, kind data.Kind, ns *data.NsMapping) string {
	return fmt.Sprintf("%d\x00%d\x00%s\x00%s\x00%s", parentPCR, kind, name.URI, name.String(), ns)
}

/*
Get returns the node of a given PCR.
*/
func (mps *MemoryPathSynopsis) Get(txn *trans.Txn, pcr int) (*Node, error) {
	mps.mutex.Lock()
	defer mps.mutex.Unlock()

	mps.Lookups++

	if pcr < 0 || pcr >= len(mps.nodes) {
		return nil, fmt.Errorf("%w: %v", ErrUnknownPCR, pcr)
	}

	return mps.nodes[pcr], nil
}

/*
GetChild returns the child path of a given parent path.
*/
func (mps *MemoryPathSynopsis) GetChild(txn *trans.Txn, parentPCR int, name data.QName,
	kind data.Kind, ns *data.NsMapping) (*Node, error) {

	if kind != data.Element && kind != data.Attribute {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKind, kind)
	}

	mps.mutex.Lock()
	defer mps.mutex.Unlock()

	mps.Lookups++

	var parent *Node

	if parentPCR != NoParent {
		if parentPCR < 0 || parentPCR >= len(mps.nodes) {
			return nil, fmt.Errorf("%w: %v", ErrUnknownPCR, parentPCR)
		}
		parent = mps.nodes[parentPCR]
	}

	if kind == data.Attribute && parent == nil {
		return nil, fmt.Errorf("%w: attribute without element", ErrInvalidKind)
	}

	key := childKey(parentPCR, name, kind, ns)

	if pcr, ok := mps.children[key]; ok {
		return mps.nodes[pcr], nil
	}

	level := 1
	if parent != nil {
		level = parent.Level + 1
	}

	n := &Node{len(mps.nodes), name, kind, level, parent, ns}

	mps.nodes = append(mps.nodes, n)
	mps.children[key] = n.PCR

	return n, nil
}

/*
SpawnBulkSubManager creates a new bulk sub-manager.
*/
func (mps *MemoryPathSynopsis) SpawnBulkSubManager(txn *trans.Txn) BulkManager {
	return &bulkManager{mps, datautil.NewMapCache(BulkCacheSize, 0), false}
}

/*
Count returns the number of path nodes.
*/
func (mps *MemoryPathSynopsis) Count() int {
	mps.mutex.RLock()
	defer mps.mutex.RUnlock()

	return len(mps.nodes)
}

/*
String returns a listing of all paths.
*/
func (mps *MemoryPathSynopsis) String() string {
	mps.mutex.RLock()
	defer mps.mutex.RUnlock()

	var buf bytes.Buffer

	for _, n := range mps.nodes {
		buf.WriteString(n.String())
		buf.WriteString("\n")
	}

	return buf.String()
}

/*
bulkManager caches lookups of a single insert operation.
*/
type bulkManager struct {
	ps     PathSynopsis
	cache  *datautil.MapCache
	closed bool
}

/*
Get returns the node of a given PCR.
*/
func (bm *bulkManager) Get(txn *trans.Txn, pcr int) (*Node, error) {
	if bm.closed {
		return nil, ErrClosed
	}

	key := fmt.Sprint("pcr:", pcr)

	if n, ok := bm.cache.Get(key); ok {
		return n.(*Node), nil
	}

	n, err := bm.ps.Get(txn, pcr)
	if err == nil {
		bm.cache.Put(key, n)
	}

	return n, err
}

/*
GetChild returns the child path of a given parent path.
*/
func (bm *bulkManager) GetChild(txn *trans.Txn, parentPCR int, name data.QName,
	kind data.Kind, ns *data.NsMapping) (*Node, error) {

	if bm.closed {
		return nil, ErrClosed
	}

	key := childKey(parentPCR, name, kind, ns)

	if n, ok := bm.cache.Get(key); ok {
		return n.(*Node), nil
	}

	n, err := bm.ps.GetChild(txn, parentPCR, name, kind, ns)
	if err == nil {
		bm.cache.Put(key, n)
		bm.cache.Put(fmt.Sprint("pcr:", n.PCR), n)
	}

	return n, err
}

/*
Close closes the bulk manager.
*/
func (bm *bulkManager) Close() error {
	bm.closed = true
	return nil
}
