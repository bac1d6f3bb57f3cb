package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kwv/wardmap/floorplan"
)

// Version is set at build time via -ldflags
var Version = "dev"

// globalOptions holds the persistent flags
type globalOptions struct {
	ConfigFile string
	MapFile    string
	Debug      bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "wardmap",
		Short:         "wardmap - facility floor plan editor and router",
		Long:          "wardmap edits room and corridor layouts for building floors and computes walking routes between rooms.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.Debug {
				log.SetOutput(os.Stderr)
				log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
			} else {
				log.SetOutput(io.Discard)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "wardmap.yaml", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.MapFile, "map", "", "Map document (.json, or .db for SQLite); overrides storage in the config")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newRouteCommand(opts))
	cmd.AddCommand(newRenderCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newImportCommand(opts))

	return cmd
}

// loadConfig reads the config file. A missing default file falls back to
// built-in defaults; an explicitly named missing file is an error.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*floorplan.Config, error) {
	cfg, err := floorplan.LoadConfig(opts.ConfigFile)
	if err != nil {
		if _, statErr := os.Stat(opts.ConfigFile); errors.Is(statErr, os.ErrNotExist) && !cmd.Flags().Changed("config") {
			cfg = floorplan.DefaultConfig()
		} else {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if opts.MapFile != "" {
		cfg.Storage = storageForPath(opts.MapFile)
	}
	return cfg, nil
}

func openApp(cmd *cobra.Command, opts *globalOptions) (*App, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	return OpenApp(cfg)
}

func newServeCommand(opts *globalOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP editor API with persistence and MQTT mirroring",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				app.Config.HTTP.Port = port
			}
			return runService(cmd, app)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP server port")
	return cmd
}

// runService starts MQTT, the mirror and the HTTP server, then blocks until
// interrupted
func runService(cmd *cobra.Command, app *App) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "wardmap %s starting...\n", Version)

	app.StartMQTT()
	app.StartMirror()

	addr := fmt.Sprintf("0.0.0.0:%d", app.Config.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newHTTPServer(app),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[HTTP] Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fmt.Fprintln(out, "\nService Running")
	fmt.Fprintln(out, "===============")
	fmt.Fprintf(out, "Storage: %s (%s)\n", app.Config.Storage.Path, app.Config.Storage.Driver)
	if app.MQTTClient != nil {
		prefix := app.MQTTClient.Config().PublishPrefix
		fmt.Fprintf(out, "MQTT: publishing to %s/floors/{floorId}/rooms|corridors and %s/routes\n", prefix, prefix)
		fmt.Fprintf(out, "      device feed on %s\n", app.MQTTClient.DeviceTopic())
	}
	fmt.Fprintf(out, "HTTP: http://%s/api/floors\n", addr)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case <-sigChan:
	case serveErr = <-errCh:
		log.Printf("[HTTP] Server error: %v", serveErr)
	}

	fmt.Fprintln(out, "\nShutting down service...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[HTTP] shutdown: %v", err)
	}
	if err := app.Close(); err != nil {
		log.Printf("[store] close: %v", err)
	}
	fmt.Fprintln(out, "Service stopped")
	return serveErr
}

func newRouteCommand(opts *globalOptions) *cobra.Command {
	var floorID, from, to string

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Print the waypoints between two rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			route, err := app.Route(floorID, from, to)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, p := range route {
				fmt.Fprintf(out, "%d\t%.1f\t%.1f\n", i, p.X, p.Y)
			}
			fmt.Fprintf(out, "length\t%.1f\n", floorplan.RouteLength(route))
			return nil
		},
	}
	cmd.Flags().StringVar(&floorID, "floor", "", "Floor id")
	cmd.Flags().StringVar(&from, "from", "", "Start room id")
	cmd.Flags().StringVar(&to, "to", "", "End room id")
	_ = cmd.MarkFlagRequired("floor")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newRenderCommand(opts *globalOptions) *cobra.Command {
	var floorID, from, to, format, output string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a floor to SVG or PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "svg" && format != "png" {
				return fmt.Errorf("unknown format %q (svg or png)", format)
			}
			app, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if !app.Store.HasFloor(floorID) {
				return fmt.Errorf("%w: %s", floorplan.ErrFloorNotFound, floorID)
			}
			renderer := floorplan.NewFloorRenderer(app.Store.Document(), floorID, app.Config.Render, app.Config.Grid)
			if from != "" && to != "" {
				if renderer.Route, err = app.Route(floorID, from, to); err != nil {
					return err
				}
			}

			if output == "" {
				output = fmt.Sprintf("%s.%s", floorID, format)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			defer f.Close()

			if format == "png" {
				err = renderer.RenderToPNG(f)
			} else {
				err = renderer.RenderToSVG(f)
			}
			if err != nil {
				return fmt.Errorf("render %s: %w", format, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&floorID, "floor", "", "Floor id")
	cmd.Flags().StringVar(&from, "from", "", "Optional route start room id")
	cmd.Flags().StringVar(&to, "to", "", "Optional route end room id")
	cmd.Flags().StringVar(&format, "format", "svg", "Output format: svg or png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <floor>.<format>)")
	_ = cmd.MarkFlagRequired("floor")
	return cmd
}

func newExportCommand(opts *globalOptions) *cobra.Command {
	var floorID, output string
	var simplify float64

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a floor as GeoJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if !app.Store.HasFloor(floorID) {
				return fmt.Errorf("%w: %s", floorplan.ErrFloorNotFound, floorID)
			}
			fc := floorplan.FloorToGeoJSON(app.Store.Document(), floorID, floorplan.ExportOptions{SimplifyTolerance: simplify})
			data, err := fc.MarshalJSON()
			if err != nil {
				return fmt.Errorf("marshal geojson: %w", err)
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s (%d features)\n", output, len(fc.Features))
			return nil
		},
	}
	cmd.Flags().StringVar(&floorID, "floor", "", "Floor id")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().Float64Var(&simplify, "simplify", 0, "Drop corridor vertices closer than this to a straight line")
	_ = cmd.MarkFlagRequired("floor")
	return cmd
}

func newImportCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE|URL",
		Short: "Validate a map document and write it to the configured storage",
		Long: "Validate a map document and write it to the configured storage.\n" +
			"The source is a JSON file or the http(s) URL of another instance's /api/document.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			var doc floorplan.Document
			var data []byte
			if floorplan.IsRemoteDocument(src) {
				fetched, err := floorplan.FetchDocument(cmd.Context(), src)
				if err != nil {
					return err
				}
				doc = fetched
			} else {
				var err error
				if data, err = os.ReadFile(src); err != nil {
					return fmt.Errorf("read %s: %w", src, err)
				}
			}

			app, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if data != nil {
				if doc, err = app.Import(data); err != nil {
					return err
				}
			} else {
				app.ReplaceDocument(doc)
			}
			if err := app.Sink.Save(doc); err != nil {
				return fmt.Errorf("save: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d buildings, %d floors, %d rooms, %d corridors into %s\n",
				len(doc.Buildings), len(doc.Floors), len(doc.Rooms), len(doc.Corridors), app.Config.Storage.Path)
			return nil
		},
	}
}
