// Command tripmesh runs the TripMesh services: the four domain MCP servers
// (individually or together), the HTTP gateway hosting the agent team, and a
// small terminal chat client.
//
// Usage:
//
//	tripmesh weather-server [-config file]
//	tripmesh booking-server [-config file]
//	tripmesh places-server  [-config file]
//	tripmesh planner-server [-config file]
//	tripmesh all-servers    [-config file]
//	tripmesh gateway        [-config file]
//	tripmesh chat           [-gateway url] [-session id]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/tripmesh/tripmesh/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "weather-server":
		err = runServer(ctx, args, "weather")
	case "booking-server":
		err = runServer(ctx, args, "booking")
	case "places-server":
		err = runServer(ctx, args, "places")
	case "planner-server":
		err = runServer(ctx, args, "planner")
	case "all-servers":
		err = runAllServers(ctx, args)
	case "gateway":
		err = runGateway(ctx, args)
	case "chat":
		err = runChat(ctx, args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `tripmesh - multi-agent travel assistant

commands:
  weather-server   run the weather MCP server (default :5004)
  booking-server   run the booking MCP server (default :5001)
  places-server    run the places MCP server (default :5002)
  planner-server   run the trip planner MCP server (default :5003)
  all-servers      run all four MCP servers
  gateway          run the HTTP gateway with the agent team (default :7860)
  chat             interactive chat against a running gateway`)
}

// loadConfig parses the shared -config flag and loads configuration.
func loadConfig(name string, args []string) (config.Config, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", "", "path to YAML config file")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(*path)
	return cfg, fs, err
}

func runAllServers(ctx context.Context, args []string) error {
	cfg, _, err := loadConfig("all-servers", args)
	if err != nil {
		return err
	}

	deps, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range deps.allServers(cfg) {
		s := s
		g.Go(func() error { return s.ListenAndServe(ctx) })
	}
	return g.Wait()
}

func runServer(ctx context.Context, args []string, which string) error {
	cfg, _, err := loadConfig(which+"-server", args)
	if err != nil {
		return err
	}

	deps, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	s, err := deps.server(cfg, which)
	if err != nil {
		return err
	}
	return s.ListenAndServe(ctx)
}
