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
	"bytes"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

/*
LSN is a log sequence number. The zero LSN means no log record.
*/
type LSN uint64

/*
RecordType is the type of a log record.
*/
type RecordType int

/*
Log record types
*/
const (
	RecordUpdate RecordType = iota + 1 // Regular update record
	RecordCNOP                         // Compensating no-op record
)

/*
LogRecord is a single record of the log.
*/
type LogRecord struct {
	LSN      LSN        // Sequence number of this record
	TxnID    uuid.UUID  // Transaction which wrote the record
	Type     RecordType // Type of the record
	PrevLSN  LSN        // Previous record of the same transaction
	UndoNext LSN        // Next record to undo (compensating records only)
	Info     string     // Description of the change
}

/*
String returns a string representation of this log record.
*/
func (r LogRecord) String() string {
	if r.Type == RecordCNOP {
		return fmt.Sprintf("%v CNOP undoNext=%v", r.LSN, r.UndoNext)
	}
	return fmt.Sprintf("%v UPDATE prev=%v %v", r.LSN, r.PrevLSN, r.Info)
}

/*
LogService is the log of the store.
*/
type LogService interface {

	/*
		CheckPrevLSN returns the LSN of the last record the given transaction wrote.
	*/
	CheckPrevLSN(txn *Txn) LSN

	/*
		Log writes an update record for the given transaction.
	*/
	Log(txn *Txn, info string) (LSN, error)

	/*
		LogCompensatingNoOp writes a compensating no-op record which makes undo
		continue at a given LSN.
	*/
	LogCompensatingNoOp(txn *Txn, undoNext LSN) (LSN, error)
}

/*
MemoryLog is a LogService which keeps all records in memory.
*/
type MemoryLog struct {
	records []LogRecord       // Written records
	last    map[uuid.UUID]LSN // Last LSN per transaction
	mutex   *sync.Mutex       // Mutex to protect the log

	FailAfter int // Simulate a full log after this number of records (0 to disable)
}

/*
NewMemoryLog creates a new memory based log.
*/
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{nil, make(map[uuid.UUID]LSN), &sync.Mutex{}, 0}
}

/*
CheckPrevLSN returns the LSN of the last record the given transaction wrote.
*/
func (ml *MemoryLog) CheckPrevLSN(txn *Txn) LSN {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()

	return ml.last[txn.ID]
}

/*
Log writes an update record for the given transaction.
*/
func (ml *MemoryLog) Log(txn *Txn, info string) (LSN, error) {
	return ml.append(txn, RecordUpdate, 0, info)
}

/*
LogCompensatingNoOp writes a compensating no-op record.
*/
func (ml *MemoryLog) LogCompensatingNoOp(txn *Txn, undoNext LSN) (LSN, error) {
	return ml.append(txn, RecordCNOP, undoNext, "")
}

/*
append appends a record.
*/
func (ml *MemoryLog) append(txn *Txn, t RecordType, undoNext LSN, info string) (LSN, error) {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()

	if ml.FailAfter > 0 && len(ml.records) >= ml.FailAfter {
		return 0, fmt.Errorf("Log is full (%v records)", len(ml.records))
	}

	lsn := LSN(len(ml.records) + 1)

	ml.records = append(ml.records, LogRecord{lsn, txn.ID, t, ml.last[txn.ID], undoNext, info})
	ml.last[txn.ID] = lsn

	return lsn, nil
}

/*
Records returns all records of a given transaction in write order.
*/
func (ml *MemoryLog) Records(txn *Txn) []LogRecord {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()

	var ret []LogRecord
	for _, r := range ml.records {
		if r.TxnID == txn.ID {
			ret = append(ret, r)
		}
	}

	return ret
}

/*
UndoChain returns the records which an undo of the given transaction would
revert. Compensating records make undo jump to their UndoNext record.
*/
func (ml *MemoryLog) UndoChain(txn *Txn) []LogRecord {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()

	var ret []LogRecord

	for lsn := ml.last[txn.ID]; lsn != 0; {
		r := ml.records[lsn-1]

		if r.Type == RecordCNOP {
			lsn = r.UndoNext
			continue
		}

		ret = append(ret, r)
		lsn = r.PrevLSN
	}

	return ret
}

/*
String returns a string representation of the log.
*/
func (ml *MemoryLog) String() string {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()

	var buf bytes.Buffer
	for _, r := range ml.records {
		buf.WriteString(r.String())
		buf.WriteString("\n")
	}

	return buf.String()
}
