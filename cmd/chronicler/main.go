package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	appconfig "github.com/m-khosravi/chronicler/config"
	"github.com/m-khosravi/chronicler/internal/europeana"
	"github.com/m-khosravi/chronicler/internal/report"
	srv "github.com/m-khosravi/chronicler/internal/server"
	"github.com/m-khosravi/chronicler/internal/telemetry"
)

func main() {
	root := &cobra.Command{
		Use:   "chronicler",
		Short: "Citation-disciplined report workflow over the Europeana heritage index",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load()
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}
			return srv.Run(cfg)
		},
	}
	serve.Flags().String("addr", "", "listen address (default from config)")

	step := &cobra.Command{
		Use:   "step",
		Short: "Drive one report session interactively: one JSON step per stdin line",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load()
			if err != nil {
				return err
			}
			client, err := europeana.NewClient(cfg.Europeana)
			if err != nil {
				return err
			}

			metrics := telemetry.New(prometheus.NewRegistry())
			var extractor report.ContentExtractor
			if cfg.Report.ExtractContent {
				extractor = client
			}
			controller := report.NewController(report.NewDiscoveryEngine(client, extractor, metrics), metrics)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
			for scanner.Scan() {
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}
				var input map[string]interface{}
				if err := json.Unmarshal(line, &input); err != nil {
					fmt.Fprintf(os.Stderr, "invalid step input: %v\n", err)
					continue
				}
				result := controller.Process(cmd.Context(), input)
				if err := enc.Encode(result); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}

	root.AddCommand(serve, step)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
