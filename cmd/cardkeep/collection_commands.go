package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardkeep/internal/collection"
	"cardkeep/internal/config"
)

func newCollectionCommand(ctx *commandContext) *cobra.Command {
	collectionCmd := &cobra.Command{
		Use:   "collection",
		Short: "Inspect and edit collections directly",
	}

	collectionCmd.AddCommand(newCollectionShowCommand(ctx))
	collectionCmd.AddCommand(newCollectionEditCommand(ctx, "add", "Add copies to a collection", collection.ModeAdd))
	collectionCmd.AddCommand(newCollectionEditCommand(ctx, "remove", "Remove copies from a collection", collection.ModeRemove))
	collectionCmd.AddCommand(newCollectionEditCommand(ctx, "set", "Set the exact quantity of a stack", collection.ModeSet))
	collectionCmd.AddCommand(newCollectionMoveCommand(ctx))

	return collectionCmd
}

func newCollectionShowCommand(ctx *commandContext) *cobra.Command {
	var collectionName string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a collection's contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openSession(collectionName)
			if err != nil {
				return err
			}
			target := session.TargetSnapshot()
			out := cmd.OutOrStdout()

			if target.TotalQuantity() == 0 {
				fmt.Fprintf(out, "%s is empty\n", collectionName)
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Card", "Set", "Rarity", "Cond", "Lang", "Ed", "Qty"},
				collectionRows(target),
				6,
			))
			fmt.Fprintf(out, "%d cards total\n", target.TotalQuantity())
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionName, "collection", "main", "Collection to show")
	return cmd
}

type editFlags struct {
	collectionName string
	cardID         int64
	cardName       string
	setCode        string
	rarity         string
	artworkID      int64
	condition      string
	language       string
	firstEdition   bool
	storage        string
	price          float64
	quantity       int
}

func (f *editFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.collectionName, "collection", "main", "Collection to edit")
	cmd.Flags().Int64Var(&f.cardID, "card", 0, "Catalog card identity (required)")
	cmd.Flags().StringVar(&f.cardName, "name", "", "Card name for display")
	cmd.Flags().StringVar(&f.setCode, "set", "", "Printed set code")
	cmd.Flags().StringVar(&f.rarity, "rarity", "", "Printing rarity")
	cmd.Flags().Int64Var(&f.artworkID, "artwork", 0, "Artwork identity")
	cmd.Flags().StringVar(&f.condition, "condition", "", "Card condition (defaults from config)")
	cmd.Flags().StringVar(&f.language, "language", "", "Card language (defaults from config)")
	cmd.Flags().BoolVar(&f.firstEdition, "first-edition", false, "Mark as first edition")
	cmd.Flags().StringVar(&f.storage, "storage", "", "Storage location (defaults from config)")
	cmd.Flags().Float64Var(&f.price, "price", 0, "Purchase price")
	cmd.Flags().IntVar(&f.quantity, "quantity", 1, "Quantity")
	_ = cmd.MarkFlagRequired("card")
}

func (f *editFlags) change(cfg *config.Config, mode collection.Mode) (collection.Change, error) {
	condition := f.condition
	if condition == "" {
		condition = cfg.Defaults.Condition
	}
	parsed, ok := collection.ParseCondition(condition)
	if !ok {
		return collection.Change{}, fmt.Errorf("unknown condition %q", condition)
	}
	language := f.language
	if language == "" {
		language = cfg.Defaults.Language
	}
	storage := f.storage
	if storage == "" {
		storage = cfg.Defaults.Storage
	}
	return collection.Change{
		CardID:   f.cardID,
		CardName: f.cardName,
		Attributes: collection.Attributes{
			SetCode:       f.setCode,
			Rarity:        f.rarity,
			ArtworkID:     f.artworkID,
			Condition:     parsed,
			Language:      language,
			FirstEdition:  f.firstEdition,
			Storage:       storage,
			PurchasePrice: f.price,
		},
		Quantity: f.quantity,
		Mode:     mode,
	}, nil
}

func newCollectionEditCommand(ctx *commandContext, use, short string, mode collection.Mode) *cobra.Command {
	flags := &editFlags{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			change, err := flags.change(cfg, mode)
			if err != nil {
				return err
			}
			session, err := ctx.openSession(flags.collectionName)
			if err != nil {
				return err
			}
			if err := session.MutateTarget(change); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d of card %d in %s\n", mode, change.Quantity, change.CardID, flags.collectionName)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newCollectionMoveCommand(ctx *commandContext) *cobra.Command {
	flags := &editFlags{}
	var fromStorage, toStorage string

	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move copies between storage locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			change, err := flags.change(cfg, collection.ModeAdd)
			if err != nil {
				return err
			}
			session, err := ctx.openSession(flags.collectionName)
			if err != nil {
				return err
			}
			if err := session.MoveTarget(change, fromStorage, toStorage); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved %d of card %d from %q to %q\n", change.Quantity, change.CardID, fromStorage, toStorage)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&fromStorage, "from", "", "Source storage location")
	cmd.Flags().StringVar(&toStorage, "to", "", "Destination storage location")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
