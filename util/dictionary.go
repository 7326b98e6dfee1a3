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
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/krotik/common/datautil"
	"github.com/krotik/xmlnode/trans"
)

/*
PrefixCode is the prefix for entries storing codes
*/
const PrefixCode = "\x00"

/*
PrefixName is the prefix for entries storing names
*/
const PrefixName = "\x01"

/*
PrefixCounter is the prefix for the counter entry
*/
const PrefixCounter = "\x02"

/*
Dictionary interns strings to integer ids.
*/
type Dictionary interface {

	/*
		Translate returns the id of a given string. A new id is assigned if the
		string is not known yet.
	*/
	Translate(txn *trans.Txn, name string) (int, error)

	/*
		Resolve returns the string of a given id.
	*/
	Resolve(txn *trans.Txn, id int) (string, error)
}

/*
NamesDictionary data structure
*/
type NamesDictionary struct {
	nameDB map[string]string             // Database storing names
	pm     *datautil.PersistentStringMap // Optional persistent map which holds nameDB
	mutex  *sync.Mutex                   // Mutex to protect the database
}

/*
NewNamesDictionary creates a new in-memory dictionary using a given name database.
*/
func NewNamesDictionary(nameDB map[string]string) *NamesDictionary {
	return &NamesDictionary{nameDB, nil, &sync.Mutex{}}
}

/*
NewPersistentNamesDictionary creates a dictionary which is stored in a file.
Existing files are loaded.
*/
func NewPersistentNamesDictionary(filename string) (*NamesDictionary, error) {
	pm, err := datautil.LoadPersistentStringMap(filename)
	if err != nil {
		return nil, err
	}

	return &NamesDictionary{pm.Data, pm, &sync.Mutex{}}, nil
}

/*
Translate returns the id of a given string.
*/
func (nd *NamesDictionary) Translate(txn *trans.Txn, name string) (int, error) {
	nd.mutex.Lock()
	defer nd.mutex.Unlock()

	codekey := PrefixCode + name

	if code, ok := nd.nameDB[codekey]; ok {
		return int(binary.BigEndian.Uint32([]byte(code))), nil
	}

	code := nd.newCode()

	nd.nameDB[codekey] = code
	nd.nameDB[PrefixName+code] = name

	if nd.pm != nil {
		if err := nd.pm.Flush(); err != nil {
			return 0, &NodeError{ErrIndexAccess, err.Error()}
		}
	}

	return int(binary.BigEndian.Uint32([]byte(code))), nil
}

/*
Lookup returns the id of a given string without creating a new one.
*/
func (nd *NamesDictionary) Lookup(name string) (int, bool) {
	nd.mutex.Lock()
	defer nd.mutex.Unlock()

	code, ok := nd.nameDB[PrefixCode+name]
	if !ok {
		return 0, false
	}

	return int(binary.BigEndian.Uint32([]byte(code))), true
}

/*
Resolve returns the string of a given id.
*/
func (nd *NamesDictionary) Resolve(txn *trans.Txn, id int) (string, error) {
	nd.mutex.Lock()
	defer nd.mutex.Unlock()

	name, ok := nd.nameDB[PrefixName+encodeCode(uint32(id))]
	if !ok {
		return "", &NodeError{ErrNotFound, fmt.Sprint("Dictionary id: ", id)}
	}

	return name, nil
}

/*
Size returns the number of stored strings.
*/
func (nd *NamesDictionary) Size() int {
	nd.mutex.Lock()
	defer nd.mutex.Unlock()

	if val, ok := nd.nameDB[PrefixCounter]; ok {
		return int(binary.BigEndian.Uint32([]byte(val)))
	}

	return 0
}

/*
newCode generates a new 32 bit number for the names map.
*/
func (nd *NamesDictionary) newCode() string {
	var resnum uint32 = 1

	if val, ok := nd.nameDB[PrefixCounter]; ok {
		resnum = binary.BigEndian.Uint32([]byte(val)) + 1
	}

	res := encodeCode(resnum)

	nd.nameDB[PrefixCounter] = res

	return res
}

/*
encodeCode converts a number into a code string.
*/
func encodeCode(num uint32) string {
	res := make([]byte, 4)
	binary.BigEndian.PutUint32(res, num)
	return string(res)
}
