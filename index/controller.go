/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/krotik/common/stringutil"

	"github.com/krotik/xmlnode/node"
	"github.com/krotik/xmlnode/psn"
	"github.com/krotik/xmlnode/subtree"
	"github.com/krotik/xmlnode/trans"
	"github.com/krotik/xmlnode/util"
)

/*
Controller manages the secondary indexes of a collection. It hands out the
listeners which keep the indexes current and runs the index definition
operations.
*/
type Controller struct {
	store    EntryStore          // Store for index entries
	log      trans.LogService    // Log for definition operations
	svc      services            // Collaborators of the indexers
	mainDB   map[string]string   // Metadata map which holds the definitions
	flush    func() error        // Function to persist the metadata map
	defs     map[int]*Definition // Index definitions
	indexers map[int]indexer     // Indexers of the definitions
	mutex    *sync.RWMutex       // Mutex to protect the definitions
}

/*
NewController creates a new index controller. Existing definitions are
loaded from the given metadata map. The flush function is called after
the metadata map was changed (it may be nil).
*/
func NewController(store EntryStore, log trans.LogService, dict util.Dictionary,
	ps psn.Lookup, mainDB map[string]string, flush func() error) (*Controller, error) {

	if flush == nil {
		flush = func() error { return nil }
	}

	c := &Controller{store, log, services{dict, ps}, mainDB, flush,
		make(map[int]*Definition), make(map[int]indexer), &sync.RWMutex{}}

	for k, v := range mainDB {
		if !strings.HasPrefix(k, MainDBIndex) {
			continue
		}

		def := &Definition{}

		if err := json.Unmarshal([]byte(v), def); err != nil {
			return nil, &util.NodeError{Type: util.ErrStructural,
				Detail: fmt.Sprintf("Could not load index definition %v: %v", k, err)}
		}

		ix, err := newIndexer(def, c.svc)
		if err != nil {
			return nil, err
		}

		c.defs[def.ID] = def
		c.indexers[def.ID] = ix
	}

	if len(c.defs) > 0 {
		logger.Info("Loaded ", len(c.defs), " index definition", stringutil.Plural(len(c.defs)))
	}

	return c, nil
}

/*
Store returns the entry store of this controller.
*/
func (c *Controller) Store() EntryStore {
	return c.store
}

/*
Definitions returns all index definitions ordered by id.
*/
func (c *Controller) Definitions() []*Definition {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.sortedDefinitions()
}

func (c *Controller) sortedDefinitions() []*Definition {
	res := make([]*Definition, 0, len(c.defs))
	for _, d := range c.defs {
		res = append(res, d)
	}

	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })

	return res
}

/*
Definition returns a single index definition.
*/
func (c *Controller) Definition(id int) (*Definition, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	def, ok := c.defs[id]
	if !ok {
		return nil, &util.NodeError{Type: util.ErrNotFound, Detail: fmt.Sprint("Index ", id)}
	}

	return def, nil
}

/*
Listeners returns a listener for every index. The listeners add entries in
InsertMode and remove them in DeleteMode.
*/
func (c *Controller) Listeners(txn *trans.Txn, mode Mode) subtree.ListenerList {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.listeners(txn, mode, c.sortedDefinitions())
}

func (c *Controller) listeners(txn *trans.Txn, mode Mode, defs []*Definition) subtree.ListenerList {
	var res subtree.ListenerList

	for _, d := range defs {
		res = append(res, &Listener{txn: txn, def: d, ix: c.indexers[d.ID], store: c.store, mode: mode})
	}

	return res
}

/*
CreateIndexes creates new indexes and builds them from the nodes of a given
stream. Definitions without an id get the next free id. The stream is
closed once the build is finished. If the build fails no index is created.
*/
func (c *Controller) CreateIndexes(txn *trans.Txn, src node.Stream, defs ...*Definition) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if src != nil {
		defer src.Close()
	}

	if err := checkTxn(txn); err != nil {
		return err
	}

	prev := c.log.CheckPrevLSN(txn)

	indexers, err := c.prepare(defs)
	if err != nil {
		return err
	}

	for _, d := range defs {
		c.indexers[d.ID] = indexers[d.ID]
	}

	drop := func() {
		for _, d := range defs {
			delete(c.indexers, d.ID)
			if err := c.store.Drop(d.ID); err != nil {
				logger.Error("Could not drop entries of index ", d.ID, ": ", err)
			}
		}
	}

	ll := c.listeners(txn, InsertMode, defs)

	if src != nil {
		var n *node.Node

		for n, err = src.Next(); err == nil && n != nil; n, err = src.Next() {
			if err = Feed(ll, n); err != nil {
				break
			}
		}
	}

	if err == nil {
		for _, d := range defs {
			if d.Stats, err = c.statistics(d.ID); err != nil {
				break
			}
		}
	}

	if err == nil {
		for _, d := range defs {
			c.defs[d.ID] = d
		}
		err = c.persist(defs...)
	}

	if err == nil {
		_, err = c.log.LogCompensatingNoOp(txn, prev)
	}

	if err != nil {
		for _, d := range defs {
			delete(c.defs, d.ID)
			delete(c.mainDB, MainDBIndex+strconv.Itoa(d.ID))
		}
		drop()

		if ferr := c.flush(); ferr != nil {
			logger.Error("Could not flush index metadata: ", ferr)
		}

		return util.WrapIndexError(err)
	}

	for _, d := range defs {
		logger.Info("Created index ", d)
	}

	return nil
}

/*
prepare checks new definitions and creates their indexers.
*/
func (c *Controller) prepare(defs []*Definition) (map[int]indexer, error) {
	res := make(map[int]indexer)
	names := make(map[string]bool)
	next := 1

	for id, d := range c.defs {
		names[d.Name] = true
		if id >= next {
			next = id + 1
		}
	}

	for _, d := range defs {
		if d.ID == 0 {
			d.ID = next
		}
		if d.ID >= next {
			next = d.ID + 1
		}

		if _, ok := c.defs[d.ID]; ok || res[d.ID] != nil {
			return nil, &util.NodeError{Type: util.ErrInvalidArgument,
				Detail: fmt.Sprint("Index id already in use: ", d.ID)}
		} else if d.Name != "" && names[d.Name] {
			return nil, &util.NodeError{Type: util.ErrInvalidArgument,
				Detail: fmt.Sprint("Index name already in use: ", d.Name)}
		}

		ix, err := newIndexer(d, c.svc)
		if err != nil {
			return nil, err
		}

		names[d.Name] = d.Name != ""
		res[d.ID] = ix
	}

	return res, nil
}

/*
checkTxn checks that an operation which writes log records runs in a
transaction.
*/
func checkTxn(txn *trans.Txn) error {
	if txn == nil {
		return &util.NodeError{Type: util.ErrInvalidArgument, Detail: "No transaction given"}
	}
	return nil
}

/*
DropIndex removes an index and all its entries.
*/
func (c *Controller) DropIndex(txn *trans.Txn, id int) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := checkTxn(txn); err != nil {
		return err
	}

	def, ok := c.defs[id]
	if !ok {
		return &util.NodeError{Type: util.ErrNotFound, Detail: fmt.Sprint("Index ", id)}
	}

	prev := c.log.CheckPrevLSN(txn)

	if err := c.store.Drop(id); err != nil {
		return util.WrapIndexError(err)
	}

	delete(c.defs, id)
	delete(c.indexers, id)
	delete(c.mainDB, MainDBIndex+strconv.Itoa(id))

	err := c.flush()

	if err == nil {
		_, err = c.log.LogCompensatingNoOp(txn, prev)
	}

	if err != nil {
		return util.WrapIndexError(err)
	}

	logger.Info("Dropped index ", def)

	return nil
}

/*
CalculateStatistics recomputes the statistics of an index.
*/
func (c *Controller) CalculateStatistics(txn *trans.Txn, id int) (*Statistics, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := checkTxn(txn); err != nil {
		return nil, err
	}

	def, ok := c.defs[id]
	if !ok {
		return nil, &util.NodeError{Type: util.ErrNotFound, Detail: fmt.Sprint("Index ", id)}
	}

	prev := c.log.CheckPrevLSN(txn)

	stats, err := c.statistics(id)

	if err == nil {
		def.Stats = stats
		err = c.persist(def)
	}

	if err == nil {
		_, err = c.log.LogCompensatingNoOp(txn, prev)
	}

	if err != nil {
		return nil, util.WrapIndexError(err)
	}

	logger.Info("Calculated statistics of index ", id, ": ", stats.Entries,
		" entr", pluralY(stats.Entries), " with ", stats.Distinct, " distinct key", stringutil.Plural(stats.Distinct))

	return stats, nil
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

/*
statistics counts the entries and distinct key prefixes of an index.
*/
func (c *Controller) statistics(id int) (*Statistics, error) {
	var err error
	var last []byte

	ix := c.indexers[id]
	stats := &Statistics{}

	serr := c.store.Scan(id, nil, func(key []byte, value []byte) bool {
		var prefix []byte

		if prefix, _, err = ix.split(key); err != nil {
			return false
		}

		stats.Entries++

		if last == nil || !bytes.Equal(last, prefix) {
			stats.Distinct++
			last = append([]byte(nil), prefix...)
		}

		return true
	})

	if err == nil {
		err = serr
	}

	return stats, err
}

/*
persist writes definitions into the metadata map and flushes it.
*/
func (c *Controller) persist(defs ...*Definition) error {
	for _, d := range defs {
		b, err := json.Marshal(d)
		if err != nil {
			return err
		}
		c.mainDB[MainDBIndex+strconv.Itoa(d.ID)] = string(b)
	}

	return c.flush()
}

/*
Lookup returns the entries of an index which match a given value. The value
is an element name for name indexes, a path pattern for path indexes and a
typed value for CAS indexes.
*/
func (c *Controller) Lookup(txn *trans.Txn, id int, value string) ([]*Entry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	ix, ok := c.indexers[id]
	if !ok {
		return nil, &util.NodeError{Type: util.ErrNotFound, Detail: fmt.Sprint("Index ", id)}
	}

	prefix, check, err := ix.lookup(txn, value)
	if err != nil {
		return nil, &util.NodeError{Type: util.ErrInvalidArgument,
			Detail: fmt.Sprintf("Lookup of %q in index %v: %v", value, id, err)}
	}

	var res []*Entry

	err = c.scan(txn, id, ix, prefix, func(e *Entry) {
		if check(e) {
			res = append(res, e)
		}
	})

	return res, err
}

/*
Entries returns all entries of an index.
*/
func (c *Controller) Entries(txn *trans.Txn, id int) ([]*Entry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	ix, ok := c.indexers[id]
	if !ok {
		return nil, &util.NodeError{Type: util.ErrNotFound, Detail: fmt.Sprint("Index ", id)}
	}

	var res []*Entry

	err := c.scan(txn, id, ix, nil, func(e *Entry) {
		res = append(res, e)
	})

	return res, err
}

func (c *Controller) scan(txn *trans.Txn, id int, ix indexer, prefix []byte, f func(e *Entry)) error {
	var err error

	serr := c.store.Scan(id, prefix, func(key []byte, value []byte) bool {
		var p []byte
		e := &Entry{}

		if p, e.Node, err = ix.split(key); err == nil {
			err = ix.describe(txn, p, e)
		}

		if err != nil {
			return false
		}

		f(e)

		return true
	})

	if err == nil {
		err = serr
	}

	return util.WrapIndexError(err)
}

/*
Dump writes a human-readable representation of an index to a writer.
*/
func (c *Controller) Dump(txn *trans.Txn, id int, w io.Writer) error {
	def, err := c.Definition(id)
	if err != nil {
		return err
	}

	entries, err := c.Entries(txn, id)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, def)

	for _, e := range entries {
		fmt.Fprintln(w, "  ", e)
	}

	return nil
}
