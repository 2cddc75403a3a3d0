package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsagent/config"
	"github.com/mohammad-safakhou/newsagent/internal/agent/core"
	"github.com/mohammad-safakhou/newsagent/internal/agent/telemetry"
	"github.com/mohammad-safakhou/newsagent/session"
	"github.com/mohammad-safakhou/newsagent/utils"
)

func runCMD() *cobra.Command {
	var cfgPath string
	var sessionID string
	var maxIterations int
	var displayMode string

	var run = &cobra.Command{
		Use:   "run [request]",
		Short: "Run one request through the agent loop",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if maxIterations > 0 {
				cfg.Agent.MaxIterations = maxIterations
			}
			if displayMode != "" {
				cfg.Agent.DisplayMode = displayMode
			}

			telem := telemetry.NewTelemetry(cfg.Telemetry)
			sessions := session.NewStore(session.StoreType(cfg.Storage.Session.Type))
			logger := log.New(os.Stderr, "[AGENT] ", log.LstdFlags)
			orch, err := core.NewOrchestrator(cfg, logger, telem, sessions)
			if err != nil {
				return err
			}

			result, err := orch.ProcessRequest(cmd.Context(), core.Request{
				SessionID: sessionID,
				Content:   strings.Join(args, " "),
			})
			if err != nil {
				return err
			}

			for _, turn := range result.Turns {
				status := "ok"
				if !turn.Success {
					status = "failed"
				}
				fmt.Printf("[%d] %s(%s) -> %s (%s, %dms)\n",
					turn.Iteration, turn.Action, strings.Join(turn.Args, ", "),
					utils.Truncate(turn.Result, 120), status, turn.Duration)
			}
			if result.HitCeiling {
				fmt.Println("\nMaximum iterations reached")
			}

			fmt.Println("\n" + strings.Repeat("=", 70))
			fmt.Println("FINAL ANSWER")
			fmt.Println(strings.Repeat("=", 70))
			fmt.Println(result.FinalAnswer)

			if sess, err := sessions.GetSession(result.SessionID); err == nil {
				fmt.Println("\n" + strings.Repeat("=", 70))
				fmt.Println("MEMORY SUMMARY")
				fmt.Println(strings.Repeat("=", 70))
				fmt.Println(sess.MemoryBlock())
			}

			fmt.Printf("\nsession=%s run=%s category=%s tokens=%d cost=$%.4f in %s\n",
				result.SessionID, result.ID, result.Category,
				result.TokensUsed, result.CostEstimate, result.ProcessingTime)
			return nil
		},
	}
	run.Flags().StringVar(&sessionID, "session", "", "session to continue (default new session)")
	run.Flags().IntVar(&maxIterations, "max-iterations", 0, "iteration ceiling override")
	run.Flags().StringVar(&displayMode, "display", "", "artifact display mode: headless, browser or none")
	run.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return run
}
