package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive booking interview on stdin",
	Long: `Starts a local interview loop against the configured flow. Each line
you type is processed as one caller utterance. Useful for trying out
flow configurations and pattern changes.`,
	Run: func(cmd *cobra.Command, args []string) {
		engine := newEngine(cmd)
		callerPhone, _ := cmd.Flags().GetString("caller-phone")

		sessions := session.NewManager(memory.NewStore())
		sessionID := session.SessionID("local", "demo")

		p := termenv.ColorProfile()
		agent := func(text string) {
			fmt.Println(termenv.String("agent> " + text).Foreground(p.Color("#818cf8")))
		}

		ctx := context.Background()
		state, err := sessions.LoadOrStart(ctx, sessionID)
		if err != nil {
			fmt.Printf("Error starting session: %v\n", err)
			os.Exit(1)
		}
		if callerPhone != "" {
			state.Meta["caller_phone"] = callerPhone
		}

		// Opening prompt.
		res := engine.RunStep(ctx, state, "")
		agent(res.Response.Text)
		state = res.State

		reader := bufio.NewReader(os.Stdin)
		for {
			fmt.Print("caller> ")
			line, err := reader.ReadString('\n')
			if err != nil {
				break
			}
			input := strings.TrimSpace(line)
			if input == "exit" || input == "quit" {
				fmt.Println("Bye!")
				break
			}

			res = engine.RunStep(ctx, state, input)
			state = res.State

			if res.Repair.Fixed {
				fmt.Println(termenv.String(
					fmt.Sprintf("[sanitizer] repaired %v, rewound to %s", res.Repair.FixedSlots, res.Repair.RewindTo),
				).Foreground(p.Color("#fb7185")))
			}
			agent(res.Response.Text)

			if err := sessions.Save(ctx, sessionID, state); err != nil {
				fmt.Printf("Error saving session: %v\n", err)
			}
			if res.Done {
				break
			}
		}

		printSlots(engine, state)
	},
}

func printSlots(engine *intake.Engine, state *domain.BookingState) {
	fmt.Println("\nCollected:")
	for key, slot := range state.Slots {
		fmt.Printf("  %-18s %-24q conf=%.2f source=%s", key, engine.Mask(key, slot.Value), slot.Confidence, slot.Source)
		if slot.Locked {
			fmt.Printf(" lock=%s", slot.LockTier)
		}
		if slot.Conflict {
			fmt.Printf(" conflict=%q", engine.Mask(key, slot.ConflictingValue))
		}
		fmt.Println()
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("caller-phone", "", "Simulated caller-ID number")
}
