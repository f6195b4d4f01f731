package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the reference card catalog",
	}

	catalogCmd.AddCommand(newCatalogImportCommand(ctx))
	catalogCmd.AddCommand(newCatalogIndexArtCommand(ctx))
	catalogCmd.AddCommand(newCatalogInfoCommand(ctx))

	return catalogCmd
}

func newCatalogImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import DUMP.json",
		Short: "Import a card database dump into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open dump: %w", err)
			}
			defer file.Close()

			count, err := store.ImportDump(cmd.Context(), file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d cards into %s\n", count, store.Path())
			return nil
		},
	}
}

func newCatalogIndexArtCommand(ctx *commandContext) *cobra.Command {
	var cardID, artworkID int64

	cmd := &cobra.Command{
		Use:   "index-art EMBEDDING.json",
		Short: "Store an artwork embedding for similarity matching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read embedding: %w", err)
			}
			var embedding []float64
			if err := json.Unmarshal(data, &embedding); err != nil {
				return fmt.Errorf("parse embedding: %w", err)
			}

			if err := store.IndexArtwork(cmd.Context(), cardID, artworkID, embedding); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed artwork %d for card %d\n", artworkID, cardID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&cardID, "card", 0, "Catalog card identity (required)")
	cmd.Flags().Int64Var(&artworkID, "artwork", 0, "Artwork identity (required)")
	_ = cmd.MarkFlagRequired("card")
	_ = cmd.MarkFlagRequired("artwork")
	return cmd
}

func newCatalogInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show catalog location and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.CountCards(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog: %s\ncards: %d\n", store.Path(), count)
			return nil
		},
	}
}
