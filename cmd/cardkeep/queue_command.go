package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cardkeep/internal/collection"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var collectionName string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show staged scans awaiting commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openSession(collectionName)
			if err != nil {
				return err
			}

			staged := session.StagingSnapshot()
			target := session.TargetSnapshot()
			out := cmd.OutOrStdout()

			if staged.TotalQuantity() == 0 {
				fmt.Fprintf(out, "nothing staged for %s (%d cards in collection)\n", collectionName, target.TotalQuantity())
				return nil
			}

			fmt.Fprintln(out, renderTable(
				[]string{"Card", "Set", "Rarity", "Cond", "Lang", "Ed", "Qty"},
				collectionRows(staged),
				6,
			))
			fmt.Fprintf(out, "%d staged for %s; commit to merge into the collection (%d cards)\n",
				staged.TotalQuantity(), collectionName, target.TotalQuantity())
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionName, "collection", "main", "Collection whose staging to show")
	return cmd
}

func collectionRows(col collection.Collection) [][]string {
	var rows [][]string
	for _, card := range col.Cards {
		for _, variant := range card.Variants {
			for _, entry := range variant.Entries {
				edition := ""
				if entry.FirstEdition {
					edition = "1st"
				}
				rows = append(rows, []string{
					card.Name,
					variant.SetCode,
					variant.Rarity,
					string(entry.Condition),
					entry.Language,
					edition,
					strconv.Itoa(entry.Quantity),
				})
			}
		}
	}
	return rows
}
