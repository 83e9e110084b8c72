package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Replay the journal and summarize the index",
	Long: `Replay every journaled batch into a fresh index, one cleanup per batch,
and print what each batch settled along with the final index size.`,
	Run: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	defer c.Close()

	model, results, err := c.buildModel(ctx)
	if err != nil {
		c.fail("%v", err)
	}

	if len(results) == 0 {
		fmt.Println("No batches yet")
		return
	}

	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	for _, r := range results {
		yellow.Printf("%d %s ", r.Seq, shortID(r.BatchID))
		fmt.Printf("%d communes, %d voies, %d linked, %d without predecessor",
			r.Communes, r.Voies, r.Cleanup.Linked, r.Cleanup.SettledNone)
		if r.Links.Rejected > 0 {
			red.Printf(", %d link(s) rejected", r.Links.Rejected)
		}
		if r.Cleanup.Acknowledged > 0 {
			fmt.Printf(", %d cancellation(s)", r.Cleanup.Acknowledged)
		}
		fmt.Println()
	}

	s := model.Stats()
	fmt.Printf("\n%d batch(es): %d communes, %d voies, %d cancelled communes\n",
		len(results), s.Communes, s.Voies, s.HandledCancelled)
}
