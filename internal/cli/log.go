package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show journaled batches",
	Long:  `Display the batches of the journal in replay order.`,
	Run:   runLog,
}

var logOneline bool

func init() {
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "Show each batch on a single line")
}

func runLog(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	defer c.Close()

	headers, err := c.Journal.List(ctx)
	if err != nil {
		c.fail("failed to list batches: %v", err)
	}

	if len(headers) == 0 {
		fmt.Println("No batches yet")
		return
	}

	yellow := color.New(color.FgYellow)
	for _, h := range headers {
		if logOneline {
			yellow.Printf("%d %s ", h.Seq, shortID(h.ID))
			fmt.Printf("%s (%d communes, %d voies, %d links)\n", h.Source, h.Communes, h.Voies, h.Links)
			continue
		}
		yellow.Printf("batch %d %s\n", h.Seq, h.ID)
		if h.Source != "" {
			fmt.Printf("Source: %s\n", h.Source)
		}
		fmt.Printf("Date:   %s\n", h.AppendedAt.Local().Format("Mon Jan 2 15:04:05 2006"))
		fmt.Printf("\n    %d commune(s), %d voie(s), %d link(s)\n\n", h.Communes, h.Voies, h.Links)
	}
}
