/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package trans

import (
	"errors"
	"fmt"
	"sync"

	"github.com/krotik/xmlnode/dewey"
)

/*
ErrLockConflict is returned if a lock cannot be granted.
*/
var ErrLockConflict = errors.New("Lock conflict")

/*
LockClass determines how long a lock is held.
*/
type LockClass int

/*
Lock classes
*/
const (
	InstantLock LockClass = iota // Lock is released immediately after it was granted
	ShortLock                    // Lock is released at the end of the operation
	CommitLock                   // Lock is held until the transaction ends
)

/*
LockService locks subtrees.
*/
type LockService interface {

	/*
		LockSubtreeShared locks the subtree of a given label for reading.
	*/
	LockSubtreeShared(txn *Txn, id dewey.ID, class LockClass) error

	/*
		LockSubtreeExclusive locks the subtree of a given label for writing.
	*/
	LockSubtreeExclusive(txn *Txn, id dewey.ID, class LockClass) error
}

/*
NoLockService grants all lock requests without doing anything.
*/
type NoLockService struct {
}

/*
LockSubtreeShared does nothing.
*/
func (NoLockService) LockSubtreeShared(txn *Txn, id dewey.ID, class LockClass) error {
	return nil
}

/*
LockSubtreeExclusive does nothing.
*/
func (NoLockService) LockSubtreeExclusive(txn *Txn, id dewey.ID, class LockClass) error {
	return nil
}

/*
LockRequest is a recorded lock request.
*/
type LockRequest struct {
	ID        dewey.ID  // Locked subtree
	Exclusive bool      // Flag if the lock is exclusive
	Class     LockClass // Lock class
}

/*
String returns a string representation of this request.
*/
func (r LockRequest) String() string {
	mode := "S"
	if r.Exclusive {
		mode = "X"
	}
	return fmt.Sprintf("%v(%v)", mode, r.ID)
}

/*
RecordingLockService records all lock requests. Requests for denied labels
fail with ErrLockConflict.
*/
type RecordingLockService struct {
	Requests []LockRequest   // Recorded requests
	Deny     map[string]bool // Labels (string form) which cannot be locked
	mutex    *sync.Mutex
}

/*
NewRecordingLockService creates a new RecordingLockService.
*/
func NewRecordingLockService() *RecordingLockService {
	return &RecordingLockService{nil, make(map[string]bool), &sync.Mutex{}}
}

/*
LockSubtreeShared records a shared lock request.
*/
func (rls *RecordingLockService) LockSubtreeShared(txn *Txn, id dewey.ID, class LockClass) error {
	return rls.record(LockRequest{id, false, class})
}

/*
LockSubtreeExclusive records an exclusive lock request.
*/
func (rls *RecordingLockService) LockSubtreeExclusive(txn *Txn, id dewey.ID, class LockClass) error {
	return rls.record(LockRequest{id, true, class})
}

func (rls *RecordingLockService) record(r LockRequest) error {
	rls.mutex.Lock()
	defer rls.mutex.Unlock()

	rls.Requests = append(rls.Requests, r)

	if rls.Deny[r.ID.String()] {
		return fmt.Errorf("%w: %v", ErrLockConflict, r)
	}

	return nil
}
