// Copyright 2026 The rscache Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rscache/rscache"
)

var (
	root    string
	verbose bool
	logger  *zap.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rscachetool",
		Short: "Inspect a game-asset cache directory",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
			}
			l, err := cfg.Build()
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&root, "root", ".", "cache directory")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.AddCommand(newCoherenceCmd())
	cmd.AddCommand(newMetaCmd())
	return cmd
}

// newCoherenceCmd sweeps every known index id (0..70), skipping any
// index that fails to open (such as one whose cache file is absent),
// and prints one coherence line per index that opened.
func newCoherenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coherence",
		Short: "Report crc/version coherence for every present index (0..70)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rscache.NewCachePath(root)
			for indexID := uint32(0); indexID < 70; indexID++ {
				ci, err := rscache.Open(indexID, path, &rscache.Options{Logger: logger})
				if err != nil {
					continue
				}
				if err := ci.AssertCoherence(); err != nil {
					fmt.Printf("Index %d is not coherent: %v and possibly others.\n", indexID, err)
				} else {
					fmt.Printf("Index %d is coherent!\n", indexID)
				}
				ci.Close()
			}
			return nil
		},
	}
}

func newMetaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "meta <index>",
		Short: "Dump the archive count and ids of a single index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var indexID uint32
			if _, err := fmt.Sscanf(args[0], "%d", &indexID); err != nil {
				return fmt.Errorf("invalid index id %q: %w", args[0], err)
			}

			path := rscache.NewCachePath(root)
			ci, err := rscache.Open(indexID, path, &rscache.Options{Logger: logger})
			if err != nil {
				return err
			}
			defer ci.Close()

			meta := ci.Metadatas()
			fmt.Printf("index %d: %d archives\n", indexID, meta.Len())
			for _, id := range meta.IDs() {
				m := meta.Get(id)
				fmt.Printf("  archive %d: crc=%#x version=%d children=%d\n", id, m.Crc, m.Version, m.ChildCount())
			}
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
