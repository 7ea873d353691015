package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mosaicworks/querydesk/config"
	"github.com/mosaicworks/querydesk/internal/records"
	srv "github.com/mosaicworks/querydesk/internal/server"
	"github.com/mosaicworks/querydesk/mcp"
	"github.com/mosaicworks/querydesk/mcp/tools/bank"
	"github.com/mosaicworks/querydesk/mcp/tools/person"
)

func main() {
	var cfgPath string
	root := &cobra.Command{Use: "querydesk"}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	var serveAddr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP query service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
			}
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")

	index := &cobra.Command{
		Use:   "index",
		Short: "Index the resources directory and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cfgPath)
		},
	}

	personMCP := &cobra.Command{
		Use:   "person-mcp",
		Short: "Serve person record tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToolServer(cfgPath, "person")
		},
	}
	bankMCP := &cobra.Command{
		Use:   "bank-mcp",
		Short: "Serve bank account tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToolServer(cfgPath, "bank")
		},
	}

	root.AddCommand(serve, index, personMCP, bankMCP)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runToolServer exposes one record tool set on stdin/stdout, for use as
// an MCP subprocess. Logs go to stderr to keep the protocol stream
// clean.
func runToolServer(cfgPath, which string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	store, err := records.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := log.New(os.Stderr, "[MCP "+which+"] ", log.LstdFlags)
	var tools []mcp.Tool
	switch which {
	case "person":
		tools = person.Tools(store)
	case "bank":
		tools = bank.Tools(store)
	default:
		return fmt.Errorf("unknown tool server %q", which)
	}
	server := mcp.NewServer(which, time.Minute, logger, tools...)
	return server.Serve(os.Stdin, os.Stdout)
}
