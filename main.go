package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions carries the parsed command line into the App.
type AppOptions struct {
	ConfigFile string
	Summary    bool
	Render     bool
	OutputFile string
	Format     string
	Category   string
	Highlight  string
	ExportFile string
	HttpMode   bool
	HttpPort   int
	MqttMode   bool
	DemoGPS    bool
}

// Runner is what run dispatches to. App implements it; tests substitute a mock.
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunSummary() error
	RunRender() error
	RunExport() error
	RunService() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("terminalmap", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.BoolVar(&opts.Summary, "summary", false, "Print dataset statistics and exit")
	fs.BoolVar(&opts.Render, "render", false, "Render the floor plan and exit")
	fs.StringVar(&opts.OutputFile, "output", "terminal-map.svg", "Output file for --render mode")
	fs.StringVar(&opts.Format, "format", "svg", "Render format: svg, png, or both")
	fs.StringVar(&opts.Category, "category", "", "Dim everything outside this category (dining, shopping, facilities, offices)")
	fs.StringVar(&opts.Highlight, "highlight", "", "Highlight one layer key")
	fs.StringVar(&opts.ExportFile, "export", "", "Write the transformed dataset as GeoJSON (- for stdout) and exit")
	fs.BoolVar(&opts.HttpMode, "http", false, "Enable HTTP server for the map and search API")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port (default 8080)")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Run MQTT service mode for viewport and position events")
	fs.BoolVar(&opts.DemoGPS, "demo-gps", false, "Feed simulated GPS fixes into the session")

	if err := fs.Parse(args); err != nil {
		return err
	}

	switch opts.Format {
	case "svg", "png", "both":
	default:
		return fmt.Errorf("invalid --format %q: must be svg, png, or both", opts.Format)
	}
	if opts.HttpPort <= 0 || opts.HttpPort > 65535 {
		return fmt.Errorf("invalid --http-port %d", opts.HttpPort)
	}

	fmt.Fprintf(out, "terminalmap version: %s\n", Version)
	app.ApplyOptions(opts)

	switch {
	case opts.Summary:
		return app.RunSummary()
	case opts.ExportFile != "":
		return app.RunExport()
	case opts.Render:
		return app.RunRender()
	case opts.MqttMode || opts.HttpMode || opts.DemoGPS:
		return app.RunService()
	}

	fmt.Fprintln(out, "terminalmap service starting...")
	fmt.Fprintln(out, "Use --summary to print dataset statistics")
	fmt.Fprintln(out, "Use --render to write the floor plan (--format svg|png|both)")
	fmt.Fprintln(out, "Use --export=FILE to write the transformed GeoJSON")
	fmt.Fprintln(out, "Use --mqtt to publish viewport commands and follow locator events")
	fmt.Fprintln(out, "Use --http to serve the map and search API")
	fmt.Fprintln(out, "Use --mqtt --http to run both together")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - dataset source, viewport constants, MQTT settings, layer overrides")
	return nil
}
