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
Package util contains utility classes for the node store.

# NodeError

Models a node store related error. Low-level errors should be wrapped in a
NodeError before they are returned to a client.

# NamesDictionary

Manages the vocabulary of the store (element and attribute names, namespace
URIs). Each stored string gets a 32 bit number assigned. The dictionary
provides functions to lookup either the strings or their numbers.
*/
package util

import (
	"errors"
	"fmt"
)

/*
NodeError is a node store related error
*/
type NodeError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
NewNodeError creates a new NodeError.
*/
func NewNodeError(t error, detail string) *NodeError {
	return &NodeError{t, detail}
}

/*
WrapIndexError wraps a collaborator error into a NodeError. Errors which are
already NodeErrors are returned unchanged.
*/
func WrapIndexError(err error) error {
	var ne *NodeError

	if err == nil || errors.As(err, &ne) {
		return err
	}

	return &NodeError{ErrIndexAccess, err.Error()}
}

/*
Error returns a human-readable string representation of this error.
*/
func (ne *NodeError) Error() string {
	if ne.Detail != "" {
		return fmt.Sprintf("NodeError: %v (%v)", ne.Type, ne.Detail)
	}

	return fmt.Sprintf("NodeError: %v", ne.Type)
}

/*
Unwrap returns the type of this error.
*/
func (ne *NodeError) Unwrap() error {
	return ne.Type
}

/*
Node store related error types
*/
var (
	ErrStructural      = errors.New("Structural inconsistency")
	ErrIndexAccess     = errors.New("Index access failure")
	ErrUnsupported     = errors.New("Unsupported operation")
	ErrInvalidArgument = errors.New("Invalid argument")
	ErrNotFound        = errors.New("Node not found")
	ErrLocked          = errors.New("Could not acquire lock")
)
