package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsagent/config"
	"github.com/mohammad-safakhou/newsagent/internal/agent/core"
)

func toolsCMD() *cobra.Command {
	var cfgPath string
	var tools = &cobra.Command{
		Use:   "tools",
		Short: "List registered tool cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			toolset, err := core.NewToolset(cfg)
			if err != nil {
				return err
			}
			for _, tc := range toolset.Cards {
				fmt.Printf("%-22s v%s  %s\n", tc.Name, tc.Version, tc.Description)
				for _, p := range tc.Params {
					req := "optional"
					if p.Required {
						req = "required"
					}
					fmt.Printf("    %-18s %-8s %s", p.Name, p.Type, req)
					if p.Default != "" {
						fmt.Printf(" (default %s)", p.Default)
					}
					fmt.Println()
				}
			}
			return nil
		},
	}
	tools.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return tools
}
