/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package trans contains the transaction handle and the log and lock service
contracts which are used by the node store.

# Txn

A transaction handle carries an id and the isolation depth (LockDepth) which
decides if read-only subtree scans need a shared lock.

# LogService

The log service hands out log sequence numbers (LSN). Multi step operations
record the LSN before they start and write a compensating no-op record
pointing to it once they are done, so undo can skip the whole operation.

# LockService

The lock service locks subtrees identified by their root label.
*/
package trans

import (
	"fmt"

	"github.com/google/uuid"
)

/*
Txn is a transaction handle.
*/
type Txn struct {
	ID        uuid.UUID // Unique id of the transaction
	LockDepth int       // Isolation depth (0 means no read locks)
}

/*
NewTxn creates a new transaction handle.
*/
func NewTxn(lockDepth int) *Txn {
	return &Txn{uuid.New(), lockDepth}
}

/*
String returns a string representation of this transaction.
*/
func (t *Txn) String() string {
	return fmt.Sprintf("Txn %v (lock depth %v)", t.ID, t.LockDepth)
}
