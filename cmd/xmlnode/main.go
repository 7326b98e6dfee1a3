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
Command xmlnode stores XML files in an in-memory node store and shows the
result.

	xmlnode dump <file>                    Print the physical index entries
	xmlnode tree <file>                    Print the navigated node tree
	xmlnode index <file> --defs defs.yaml  Build indexes and print their entries

The --config flag names a JSON configuration file. It is created with the
default options if it does not exist.
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
