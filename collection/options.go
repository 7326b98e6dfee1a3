/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package collection

import (
	"fmt"

	"github.com/krotik/common/datautil"

	"github.com/krotik/xmlnode/bracket"
	"github.com/krotik/xmlnode/config"
	"github.com/krotik/xmlnode/index"
	"github.com/krotik/xmlnode/storage"
	"github.com/krotik/xmlnode/trans"
	"github.com/krotik/xmlnode/util"
)

/*
Options are the collaborators and settings of a collection. Unset
collaborators are replaced by in-memory implementations.
*/
type Options struct {
	PageCapacity       int                   // Entries per clustered index page
	SkipWhitespaceText bool                  // Drop whitespace-only text nodes
	LockDepth          int                   // Lock depth of transactions created by NewTxn
	Log                trans.LogService      // Log service
	Locks              trans.LockService     // Lock service
	Dictionary         *util.NamesDictionary // Names dictionary
	IndexStore         index.EntryStore      // Store for secondary index entries
	MainDB             map[string]string     // Metadata map for index definitions
	FlushMainDB        func() error          // Persists the metadata map (optional)
}

/*
DefaultOptions returns the default options.
*/
func DefaultOptions() Options {
	return Options{
		PageCapacity:       bracket.DefaultPageCapacity,
		SkipWhitespaceText: true,
	}
}

/*
OptionsFromConfig creates options from the current configuration. A sqlite
index store keeps its index definitions in a file next to the database.
*/
func OptionsFromConfig() (Options, error) {
	opts := Options{
		PageCapacity:       int(config.Int(config.PageCapacity)),
		SkipWhitespaceText: config.Bool(config.SkipWhitespaceText),
		LockDepth:          int(config.Int(config.LockDepth)),
	}

	if loc := config.Str(config.LocationDictionary); loc != "" {
		dict, err := util.NewPersistentNamesDictionary(loc)
		if err != nil {
			return opts, fmt.Errorf("Could not open names dictionary %v: %w", loc, err)
		}
		opts.Dictionary = dict
	}

	switch st := config.Str(config.IndexStore); st {

	case config.IndexStoreMemory:

	case config.IndexStoreSQLite:
		loc := config.Str(config.IndexStoreLocation)

		es, err := index.NewSQLiteEntryStore(loc)
		if err != nil {
			return opts, err
		}

		pm, err := datautil.LoadPersistentStringMap(loc + ".meta")
		if err != nil {
			es.Close()
			return opts, err
		}

		opts.IndexStore = es
		opts.MainDB = pm.Data
		opts.FlushMainDB = pm.Flush

	default:
		return opts, &util.NodeError{Type: util.ErrInvalidArgument,
			Detail: fmt.Sprint("Unknown index store: ", st)}
	}

	return opts, nil
}

/*
StorageManagerFromConfig creates a memory storage manager. A cache is put
in front of it if the configuration asks for one.
*/
func StorageManagerFromConfig(name string) storage.Manager {
	var sm storage.Manager = storage.NewMemoryStorageManager(name)

	if size := int(config.Int(config.PageCacheSize)); size > 0 {
		sm = storage.NewCachedStorageManager(sm, size)
	}

	return sm
}
