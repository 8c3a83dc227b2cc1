package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/browserpilot/browserpilot/internal/agent"
	"github.com/browserpilot/browserpilot/internal/browser"
	"github.com/browserpilot/browserpilot/internal/llmclient"
	"github.com/browserpilot/browserpilot/internal/poller"
	"github.com/browserpilot/browserpilot/internal/relay"
	"github.com/browserpilot/browserpilot/internal/service"
	"github.com/browserpilot/browserpilot/internal/tools"
)

var withLocalClient bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the automation service.",
	Long: `Starts the HTTP service the sandboxed client talks to. With
--local-client, an in-process poller also fulfills tab and screenshot
requests against the service's own browser session, so the full relay loop
works without an external client.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := buildComponents()
		if err != nil {
			return err
		}
		defer deps.driver.Close()

		server := service.NewServer(cfg.Server, cfg.Browser.LoginURL,
			deps.driver, deps.queue, deps.loop, logger)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Start(ctx)
		})
		if withLocalClient {
			fulfiller := poller.NewBrowserFulfiller(deps.driver, cfg.Relay.ScreenshotDir, logger)
			p := poller.New("http://"+cfg.Server.ListenAddr, fulfiller, cfg.Relay.PollInterval, logger, nil)
			g.Go(func() error {
				err := p.Run(ctx)
				if ctx.Err() != nil {
					return nil
				}
				return err
			})
		}
		if err := g.Wait(); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

// components holds the service's wired dependency graph.
type components struct {
	driver *browser.Driver
	queue  *relay.Queue
	loop   *agent.Loop
}

func buildComponents() (*components, error) {
	queue := relay.NewQueue(logger)
	driver := browser.NewDriver(cfg.Browser, logger)

	llm, err := llmclient.NewGeminiClient(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("constructing LLM client: %w", err)
	}

	registry := tools.NewRegistry(
		tools.NewOpenNewTab(queue, cfg.Relay, logger),
		tools.NewNavigateBrowser(queue, cfg.Relay, logger),
		tools.NewCreateCalendarEvent(driver, cfg.Browser, logger),
		tools.NewSendEmail(driver, llm, cfg.Browser, logger),
		tools.NewTakeScreenshot(queue, cfg.Relay, logger),
		tools.NewWaitTool(),
	)
	planner := agent.NewLLMPlanner(llm, registry, logger)
	loop := agent.NewLoop(planner, registry, cfg.Agent.MaxIterations, logger)

	return &components{driver: driver, queue: queue, loop: loop}, nil
}

func init() {
	serveCmd.Flags().BoolVar(&withLocalClient, "local-client", false,
		"fulfill tab/screenshot requests in-process instead of waiting for an external client")
	rootCmd.AddCommand(serveCmd)
}
