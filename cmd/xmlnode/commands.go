/*
 * xmlnode
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/krotik/common/fileutil"
	"github.com/krotik/common/logutil"
	"github.com/spf13/cobra"

	"github.com/krotik/xmlnode/collection"
	"github.com/krotik/xmlnode/config"
	"github.com/krotik/xmlnode/data"
	"github.com/krotik/xmlnode/index"
	"github.com/krotik/xmlnode/node"
	"github.com/krotik/xmlnode/trans"
)

/*
newRootCmd creates the command tree.
*/
func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "xmlnode",
		Short:         "XML node store",
		Long:          `Stores XML files in an in-memory node store and prints the stored entries, nodes or index entries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				if err := config.LoadConfigFile(configFile); err != nil {
					return fmt.Errorf("Could not load config file %v: %w", configFile, err)
				}
			} else {
				config.LoadDefaultConfig()
			}

			logutil.ClearLogSinks()
			logutil.GetLogger("xmlnode").AddLogSink(logutil.StringToLoglevel(config.Str(config.LogLevel)),
				logutil.ConsoleFormatter(), cmd.ErrOrStderr())

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "JSON configuration file")

	dump := &cobra.Command{
		Use:   "dump <file>",
		Short: "Store a file and print the physical index entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDocument(args[0], func(c *collection.Collection, txn *trans.Txn, doc *node.Node) error {
				nav := c.Navigator()
				return nav.Index().Dump(txn, nav.Root(), cmd.OutOrStdout())
			})
		},
	}

	tree := &cobra.Command{
		Use:   "tree <file>",
		Short: "Store a file and print the node tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDocument(args[0], func(c *collection.Collection, txn *trans.Txn, doc *node.Node) error {
				return printTree(cmd.OutOrStdout(), txn, c.Navigator(), doc, 0)
			})
		},
	}

	var defsFile string

	idx := &cobra.Command{
		Use:   "index <file>",
		Short: "Store a file, build indexes and print their entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(defsFile)
			if err != nil {
				return err
			}

			defs, err := index.ParseDefinitions(b)
			if err != nil {
				return err
			}

			return withDocument(args[0], func(c *collection.Collection, txn *trans.Txn, doc *node.Node) error {
				if err := c.CreateIndexes(txn, defs...); err != nil {
					return err
				}

				for _, d := range defs {
					if err := c.Indexes().Dump(txn, d.ID, cmd.OutOrStdout()); err != nil {
						return err
					}
				}

				return nil
			})
		},
	}

	idx.Flags().StringVar(&defsFile, "defs", "", "YAML file with index definitions")
	idx.MarkFlagRequired("defs")

	root.AddCommand(dump, tree, idx)

	return root
}

/*
withDocument stores a file in a new collection and runs a function on it.
*/
func withDocument(file string, f func(c *collection.Collection, txn *trans.Txn, doc *node.Node) error) error {
	if ok, _ := fileutil.PathExists(file); !ok {
		return fmt.Errorf("File %v does not exist", file)
	}

	opts, err := collection.OptionsFromConfig()
	if err != nil {
		return err
	}

	c, err := collection.NewCollection(collection.StorageManagerFromConfig(file), opts)
	if err != nil {
		return err
	}

	in, err := os.Open(file)
	if err == nil {
		txn := c.NewTxn()

		var doc *node.Node

		if doc, err = c.StoreDocument(txn, in); err == nil {
			err = f(c, txn, doc)
		}

		in.Close()
	}

	if cerr := c.Close(); err == nil {
		err = cerr
	}

	return err
}

/*
printTree prints a node, its attributes and its children.
*/
func printTree(w io.Writer, txn *trans.Txn, nav *node.Navigator, n *node.Node, depth int) error {
	fmt.Fprintf(w, "%v%v\n", strings.Repeat("  ", depth), n)

	if n.Kind != data.Element && n.Kind != data.Document {
		return nil
	}

	attrs, err := node.Collect(nav.Attributes(txn, n))
	if err != nil {
		return err
	}

	for _, a := range attrs {
		fmt.Fprintf(w, "%v%v\n", strings.Repeat("  ", depth+1), a)
	}

	children := nav.Children(txn, n)
	defer children.Close()

	for {
		c, err := children.Next()
		if err != nil || c == nil {
			return err
		}

		if err := printTree(w, txn, nav, c, depth+1); err != nil {
			return err
		}
	}
}
