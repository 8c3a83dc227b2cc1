package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var invokeDebug bool

var invokeCmd = &cobra.Command{
	Use:   "invoke <prompt>",
	Short: "Run one prompt through the agent without the HTTP layer.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")

		deps, err := buildComponents()
		if err != nil {
			return err
		}
		defer deps.driver.Close()

		res, err := deps.loop.Run(cmd.Context(), prompt)
		if err != nil {
			return err
		}

		if invokeDebug {
			for i, step := range res.Steps {
				logger.Info("Step",
					zap.Int("n", i+1),
					zap.String("tool", step.Tool),
					zap.String("output", step.Output))
			}
		}
		fmt.Println(res.Output)
		return nil
	},
}

func init() {
	invokeCmd.Flags().BoolVar(&invokeDebug, "debug", false, "log intermediate steps")
	rootCmd.AddCommand(invokeCmd)
}
