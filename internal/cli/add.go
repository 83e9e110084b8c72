package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/vhist/internal/feed"
	"github.com/kilupskalvis/vhist/internal/models"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Append batch documents to the journal",
	Long: `Append one batch per document to the journal, in the order given.

A batch document is JSON (.json) or YAML (.yaml, .yml) with three lists:
  communes       commune records (id, dateAnnulation, any other fields)
  voies          voie records (hid, dateAjout, libelle, typeVoie, codeCommune, codeRivoli)
  predecesseurs  predecessor links (hid, predecesseur; omit predecesseur for none)

Examples:
  vhist add 2020-01.json
  vhist add batches/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	Run:  runAdd,
}

func runAdd(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	defer c.Close()

	green := color.New(color.FgGreen)

	// Decode everything first so a bad file appends nothing
	batches := make([]*models.Batch, 0, len(args))
	for _, path := range args {
		b, err := feed.DecodeFile(path)
		if err != nil {
			c.fail("%v", err)
		}
		batches = append(batches, b)
	}

	for _, b := range batches {
		seq, err := c.Journal.Append(ctx, b)
		if err != nil {
			c.fail("failed to append %s: %v", b.Source, err)
		}
		green.Printf("[%d %s] ", seq, shortID(b.ID))
		fmt.Printf("%s: %d commune(s), %d voie(s), %d link(s)\n",
			b.Source, len(b.Communes), len(b.Voies), len(b.Links))
	}
}
