package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := cmd.Context()
			ag, err := buildAgent(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer ag.Close()

			fmt.Println("========================================")
			fmt.Printf("  Raymond  (%s)\n", cfg.Provider.Name)
			fmt.Printf("  long-term memories: %d\n", ag.MemoryCount())
			fmt.Println("========================================")
			fmt.Println("Commands:")
			fmt.Println("  /memory        - show long-term memory count")
			fmt.Println("  /search <kw>   - search long-term memory")
			fmt.Println("  /clear         - clear the current conversation")
			fmt.Println("  exit           - quit")
			fmt.Println()

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("you: ")
				if !scanner.Scan() {
					fmt.Println()
					return scanner.Err()
				}
				input := strings.TrimSpace(scanner.Text())
				if input == "" {
					continue
				}

				switch {
				case input == "exit" || input == "quit" || input == "q":
					return nil

				case input == "/memory":
					fmt.Printf("long-term memories: %d\n\n", ag.MemoryCount())

				case strings.HasPrefix(input, "/search "):
					keyword := strings.TrimSpace(strings.TrimPrefix(input, "/search "))
					results, err := ag.SearchMemory(ctx, keyword, 0)
					if err != nil {
						fmt.Printf("search failed: %v\n\n", err)
						continue
					}
					if len(results) == 0 {
						fmt.Print("no matching memories\n\n")
						continue
					}
					for _, r := range results {
						fmt.Printf("  [%.2f] %s (%s)\n", r.Similarity, r.Fact.Text, r.Fact.Source)
					}
					fmt.Println()

				case input == "/clear":
					ag.ClearShortTerm()
					fmt.Print("conversation cleared\n\n")

				default:
					reply, err := ag.HandleTurn(ctx, input)
					if err != nil {
						fmt.Printf("generation failed: %v\n\n", err)
						continue
					}
					fmt.Printf("raymond: %s\n\n", reply)
				}
			}
		},
	}
}
