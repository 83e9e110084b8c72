package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/vhist/internal/models"
	"github.com/spf13/cobra"
)

var communesCmd = &cobra.Command{
	Use:   "communes",
	Short: "List indexed communes",
	Run:   runCommunes,
}

var voiesCmd = &cobra.Command{
	Use:   "voies <code-commune>",
	Short: "List the voies of a commune",
	Args:  cobra.ExactArgs(1),
	Run:   runVoies,
}

var libellesCmd = &cobra.Command{
	Use:   "libelles <id-voie>",
	Short: "Show the label history of a voie",
	Long: `Show every label a voie has carried, following its predecessor chain:
the oldest ancestor's labels first, each label listed once.`,
	Args: cobra.ExactArgs(1),
	Run:  runLibelles,
}

var cancelledCmd = &cobra.Command{
	Use:   "cancelled",
	Short: "List cancelled communes",
	Run:   runCancelled,
}

func runCommunes(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	model, _, err := c.buildModel(context.Background())
	if err != nil {
		c.fail("%v", err)
	}

	red := color.New(color.FgRed)
	for _, cs := range model.Communes() {
		nom, _ := cs.Fields["nom"].(string)
		fmt.Printf("%s  %-40s %4d voie(s)", cs.Code, nom, cs.Voies)
		if cs.DateAnnulation != "" {
			red.Printf("  cancelled %s", cs.DateAnnulation)
		}
		fmt.Println()
	}
}

func runVoies(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	model, _, err := c.buildModel(context.Background())
	if err != nil {
		c.fail("%v", err)
	}

	voies, err := model.Voies(args[0])
	if err != nil {
		c.fail("%v", err)
	}

	cyan := color.New(color.FgCyan)
	for _, v := range voies {
		cyan.Printf("%s ", v.ID)
		fmt.Print(v.LatestLibelle())
		if v.Predecessor.State == models.PredecessorResolved {
			fmt.Printf(" (continues %s)", v.Predecessor.ID)
		}
		fmt.Println()
	}
}

func runLibelles(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	model, _, err := c.buildModel(context.Background())
	if err != nil {
		c.fail("%v", err)
	}

	libelles, err := model.Libelles(args[0])
	if err != nil {
		c.fail("%v", err)
	}
	fmt.Println(strings.Join(libelles, "\n"))
}

func runCancelled(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	model, _, err := c.buildModel(context.Background())
	if err != nil {
		c.fail("%v", err)
	}

	for _, code := range model.HandledCancelledCommunes() {
		fmt.Println(code)
	}
}
