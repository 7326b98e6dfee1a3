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
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	_ "modernc.org/sqlite"
)

//go:embed sql/*.sql
var schemas embed.FS

/*
SQLiteEntryStore is an EntryStore which stores entries in a SQLite database.
*/
type SQLiteEntryStore struct {
	db   *sql.DB
	path string
}

/*
NewSQLiteEntryStore opens or creates a SQLite based entry store.
*/
func NewSQLiteEntryStore(path string) (*SQLiteEntryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// Entries of one store are written by one transaction at a time

	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA journal_mode=WAL`, `PRAGMA busy_timeout=5000`,
		`PRAGMA synchronous=NORMAL`} {

		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := execEmbedded(db, schemas, "sql"); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("Opened index entry store ", path)

	return &SQLiteEntryStore{db, path}, nil
}

/*
execEmbedded executes all .sql files of a directory in alphabetical order.
*/
func execEmbedded(db *sql.DB, fsys embed.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read schema directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := dir + "/" + entry.Name()

		data, err := fsys.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		if _, err := db.Exec(string(data)); err != nil {
			return fmt.Errorf("exec %s: %w", entry.Name(), err)
		}
	}

	return nil
}

/*
Put stores an entry.
*/
func (ss *SQLiteEntryStore) Put(indexID int, key []byte, value []byte) error {
	_, err := ss.db.Exec(`INSERT INTO entries (idx, key, value) VALUES (?, ?, ?)
		ON CONFLICT (idx, key) DO UPDATE SET value = excluded.value`, indexID, key, value)

	return err
}

/*
Delete removes an entry.
*/
func (ss *SQLiteEntryStore) Delete(indexID int, key []byte) error {
	_, err := ss.db.Exec(`DELETE FROM entries WHERE idx = ? AND key = ?`, indexID, key)
	return err
}

/*
Scan calls a function for all entries of an index which start with a given
prefix. All rows are read before the function is called.
*/
func (ss *SQLiteEntryStore) Scan(indexID int, prefix []byte, f func(key []byte, value []byte) bool) error {
	var rows *sql.Rows
	var err error

	if len(prefix) == 0 {
		rows, err = ss.db.Query(`SELECT key, value FROM entries
			WHERE idx = ? ORDER BY key`, indexID)
	} else if upper := prefixUpperBound(prefix); upper != nil {
		rows, err = ss.db.Query(`SELECT key, value FROM entries
			WHERE idx = ? AND key >= ? AND key < ? ORDER BY key`, indexID, prefix, upper)
	} else {
		rows, err = ss.db.Query(`SELECT key, value FROM entries
			WHERE idx = ? AND key >= ? ORDER BY key`, indexID, prefix)
	}

	if err != nil {
		return err
	}

	var res []memoryEntry

	for rows.Next() {
		var e memoryEntry

		if err = rows.Scan(&e.key, &e.value); err != nil {
			rows.Close()
			return err
		}

		res = append(res, e)
	}

	if err = rows.Close(); err == nil {
		err = rows.Err()
	}

	if err != nil {
		return err
	}

	for _, e := range res {
		if !f(e.key, e.value) {
			break
		}
	}

	return nil
}

/*
Count returns the number of entries of an index.
*/
func (ss *SQLiteEntryStore) Count(indexID int) (int, error) {
	var count int
	err := ss.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE idx = ?`, indexID).Scan(&count)
	return count, err
}

/*
Drop removes all entries of an index.
*/
func (ss *SQLiteEntryStore) Drop(indexID int) error {
	_, err := ss.db.Exec(`DELETE FROM entries WHERE idx = ?`, indexID)
	return err
}

/*
Close closes the store.
*/
func (ss *SQLiteEntryStore) Close() error {
	logger.Debug("Closing index entry store ", ss.path)
	return ss.db.Close()
}

/*
prefixUpperBound returns the smallest key which is greater than all keys
with a given prefix. Returns nil if there is no such key.
*/
func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)

	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}

	return nil
}
