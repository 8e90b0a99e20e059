package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/raymondbot/raymond/internal/config"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			force, _ := cmd.Flags().GetBool("force")

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			var cfg config.Config
			cfg.Defaults()

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewSelect[string]().
						Title("Generation backend").
						Options(huh.NewOptions("anthropic", "openai", "ollama")...).
						Value(&cfg.Provider.Name),
					huh.NewInput().
						Title("Model").
						Placeholder("blank for the backend default").
						Value(&cfg.Provider.Model),
					huh.NewSelect[string]().
						Title("Embedding backend").
						Options(huh.NewOptions("ollama", "openai")...).
						Value(&cfg.Embedding.Name),
					huh.NewInput().
						Title("Memory index directory").
						Value(&cfg.Memory.IndexPath),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}

			// API keys belong in the environment, not on disk.
			switch cfg.Provider.Name {
			case "anthropic":
				cfg.Provider.APIKey = "${ANTHROPIC_API_KEY}"
			case "openai":
				cfg.Provider.APIKey = "${OPENAI_API_KEY}"
			}
			if cfg.Embedding.Name == "openai" {
				cfg.Embedding.APIKey = "${OPENAI_API_KEY}"
			}

			out, err := yaml.Marshal(&cfg)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, out, 0o600); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
	return cmd
}
