package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "toneshift",
	Short: "Toneshift rewrites messages in a chosen tone using a local AI engine",
	Long:  `Toneshift is a terminal tool that rewrites your message in a selected communication style, for a selected audience, using a text-generation engine running entirely on your machine.`,
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Rewrite a message interactively",
	Run: func(cmd *cobra.Command, args []string) {
		flags, err := parseRewriteFlags(cmd)
		if err != nil {
			fmt.Printf("Error parsing flags: %v\n", err)
			os.Exit(1)
		}

		model, err := newRewriteModel(flags)
		if err != nil {
			fmt.Printf("Error initializing model: %v\n", err)
			os.Exit(1)
		}

		p := tea.NewProgram(model)
		if _, err := p.Run(); err != nil {
			fmt.Printf("Error running program: %v\n", err)
			os.Exit(1)
		}

		model.Shutdown()
	},
}

func init() {
	rootCmd.AddCommand(rewriteCmd)

	rewriteCmd.Flags().StringP("config", "c", "", "Path to custom configuration file")
	rewriteCmd.Flags().StringP("engine", "e", "", "Engine adapter to use (server or command)")
	rewriteCmd.Flags().StringP("model", "m", "", "Model name to request from the engine")
}

type rewriteFlags struct {
	config string
	engine string
	model  string
}

func parseRewriteFlags(cmd *cobra.Command) (rewriteFlags, error) {
	config, err := cmd.Flags().GetString("config")
	if err != nil {
		return rewriteFlags{}, err
	}

	engine, err := cmd.Flags().GetString("engine")
	if err != nil {
		return rewriteFlags{}, err
	}

	model, err := cmd.Flags().GetString("model")
	if err != nil {
		return rewriteFlags{}, err
	}

	return rewriteFlags{
		config: config,
		engine: engine,
		model:  model,
	}, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
