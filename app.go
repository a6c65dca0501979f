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
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/kwv/terminalmap/indoor"
)

const (
	demoGPSInterval = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *indoor.Config
	Catalog    *indoor.LayerCatalog
	Loader     *indoor.Loader
	Session    *indoor.Session
	Renderer   *indoor.Renderer
	Publisher  *indoor.Publisher
	MQTTClient *indoor.MQTTClient
	Store      *indoor.Store

	// CLI Flags (effectively dependencies)
	ConfigFile string
	OutputFile string
	Format     string
	Category   string
	Highlight  string
	ExportFile string
	HttpPort   int
	MqttMode   bool
	HttpMode   bool
	DemoGPS    bool

	Out io.Writer
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{Out: os.Stdout}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.OutputFile = opts.OutputFile
	a.Format = opts.Format
	a.Category = opts.Category
	a.Highlight = opts.Highlight
	a.ExportFile = opts.ExportFile
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
	a.DemoGPS = opts.DemoGPS
}

// setup loads the configuration and builds a session with the renderer as
// its first viewport.
func (a *App) setup() error {
	config, err := indoor.LoadConfig(a.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config (looked at %s): %w", a.ConfigFile, err)
	}
	a.Config = config
	log.Printf("Loaded config from %s", a.ConfigFile)

	a.Catalog = config.Catalog()
	if a.Category != "" && a.Category != indoor.CategoryOther {
		if _, ok := a.Catalog.Category(a.Category); !ok {
			return fmt.Errorf("unknown category %q", a.Category)
		}
	}

	a.Loader = indoor.NewLoader(a.Catalog, config.ScaleFactor())
	a.Session = indoor.NewSession(a.Catalog, nil, config.SessionOptions())
	a.Renderer = indoor.NewRenderer(a.Session)
	a.Session.AddViewport(a.Renderer)
	a.Session.SetFilter(indoor.FilterState{
		SelectedCategory: a.Category,
		HighlightedLayer: a.Highlight,
	})
	return nil
}

// loadDataset reads the configured dataset from disk, or over HTTP when
// only a URL is set.
func (a *App) loadDataset(ctx context.Context) (*indoor.Dataset, error) {
	src := a.Config.Dataset

	var (
		ds     *indoor.Dataset
		err    error
		source = "file"
	)
	if src.Path != "" {
		ds, err = a.Loader.LoadFile(src.Path)
	} else {
		source = "url"
		ds, err = a.Loader.Fetch(ctx, src.URL)
	}
	if err != nil {
		indoor.DatasetLoads.WithLabelValues(source, "error").Inc()
		return nil, err
	}
	indoor.DatasetLoads.WithLabelValues(source, "ok").Inc()

	log.Printf("Loaded dataset %s: %d features (%d skipped)", ds.Version, len(ds.Entries), len(ds.Skipped))
	return ds, nil
}

// activate makes ds the session's dataset and announces it on MQTT.
func (a *App) activate(ds *indoor.Dataset) {
	if err := a.Session.Load(ds); err != nil {
		log.Printf("Error activating dataset: %v", err)
		return
	}
	if a.Publisher != nil {
		if err := a.Publisher.PublishStats(indoor.DatasetStats(ds, a.Catalog)); err != nil {
			log.Printf("Error publishing dataset stats: %v", err)
		}
	}
}

func (a *App) prepare(ctx context.Context) (*indoor.Dataset, error) {
	if err := a.setup(); err != nil {
		return nil, err
	}
	ds, err := a.loadDataset(ctx)
	if err != nil {
		return nil, err
	}
	a.activate(ds)
	return ds, nil
}

// RunSummary prints what the dataset contains
func (a *App) RunSummary() error {
	ds, err := a.prepare(context.Background())
	if err != nil {
		return err
	}
	stats := indoor.DatasetStats(ds, a.Catalog)

	fmt.Fprintf(a.Out, "=== %s ===\n", stats.Version)
	fmt.Fprintf(a.Out, "Features: %d (%d polygons, %d skipped)\n", stats.Features, stats.Supported, stats.Skipped)
	if stats.SouthWest != nil {
		fmt.Fprintf(a.Out, "Bounds: SW [%.3f, %.3f] NE [%.3f, %.3f]\n",
			stats.SouthWest[0], stats.SouthWest[1], stats.NorthEast[0], stats.NorthEast[1])
	} else {
		fmt.Fprintln(a.Out, "Bounds: none")
	}
	if len(stats.UnknownKeys) > 0 {
		fmt.Fprintf(a.Out, "Unknown layer keys: %s\n", strings.Join(stats.UnknownKeys, ", "))
	}

	fmt.Fprintln(a.Out, "By category:")
	for _, cat := range a.Catalog.Categories() {
		if n := stats.ByCategory[cat.ID]; n > 0 {
			fmt.Fprintf(a.Out, "  %-12s %d\n", cat.ID, n)
		}
	}
	if n := stats.ByCategory[indoor.CategoryOther]; n > 0 {
		fmt.Fprintf(a.Out, "  %-12s %d\n", indoor.CategoryOther, n)
	}

	types := make([]string, 0, len(stats.ByType))
	for t := range stats.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	fmt.Fprintln(a.Out, "By type:")
	for _, t := range types {
		fmt.Fprintf(a.Out, "  %-12s %d\n", t, stats.ByType[t])
	}

	for _, s := range ds.Skipped {
		fmt.Fprintf(a.Out, "Skipped feature %d (%s): %s\n", s.ID, s.Layer, s.Reason)
	}
	return nil
}

type renderTarget struct {
	path   string
	format string
}

// renderTargets expands --output/--format into files. "both" writes a .svg
// and a .png next to each other.
func renderTargets(output, format string) []renderTarget {
	if format != "both" {
		return []renderTarget{{path: output, format: format}}
	}
	base := strings.TrimSuffix(output, filepath.Ext(output))
	return []renderTarget{
		{path: base + ".svg", format: "svg"},
		{path: base + ".png", format: "png"},
	}
}

// RunRender writes the floor plan using the --category/--highlight filter
func (a *App) RunRender() error {
	if _, err := a.prepare(context.Background()); err != nil {
		return err
	}

	for _, target := range renderTargets(a.OutputFile, a.Format) {
		render := a.Renderer.RenderSVG
		if target.format == "png" {
			render = a.Renderer.RenderPNG
		}
		if err := writeFile(target.path, render); err != nil {
			return fmt.Errorf("rendering %s: %w", target.path, err)
		}
		fmt.Fprintf(a.Out, "Wrote %s\n", target.path)
	}
	return nil
}

// RunExport writes the transformed dataset as GeoJSON
func (a *App) RunExport() error {
	ds, err := a.prepare(context.Background())
	if err != nil {
		return err
	}

	data, err := ds.ToGeoJSON().MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding GeoJSON: %w", err)
	}

	if a.ExportFile == "-" {
		_, err = a.Out.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(a.ExportFile, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", a.ExportFile, err)
	}
	fmt.Fprintf(a.Out, "Exported %d features to %s\n", len(ds.Entries), a.ExportFile)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// RunService runs the long-lived service until SIGINT or SIGTERM
func (a *App) RunService() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.serve(ctx)
}

func (a *App) serve(ctx context.Context) error {
	fmt.Fprintln(a.Out, "Starting terminalmap service...")

	if err := a.setup(); err != nil {
		return err
	}
	a.Store = indoor.NewStoreWithFile(a.Config.Store.Path)

	// Attached before the first load: a fit issued before the broker
	// connects is resent from the connect hook.
	if a.MqttMode {
		if err := a.startMQTT(); err != nil {
			return err
		}
	}

	ds, err := a.loadDataset(ctx)
	if err != nil {
		a.shutdown(nil)
		return err
	}
	a.activate(ds)

	if a.Config.Dataset.Watch {
		a.startWatcher(ctx)
	}
	if a.DemoGPS {
		go a.runDemoGPS(ctx, indoor.NewSimulatedGPS(uint64(time.Now().UnixNano())), demoGPSInterval)
	}

	var server *http.Server
	if a.HttpMode {
		server = a.startHTTP()
	}

	a.printServiceInfo()
	fmt.Fprintln(a.Out, "\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Fprintln(a.Out, "\nShutting down service...")
	a.shutdown(server)
	fmt.Fprintln(a.Out, "Service stopped")
	return nil
}

func (a *App) shutdown(server *http.Server) {
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("[HTTP] Shutdown error: %v", err)
		}
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
}

func (a *App) startMQTT() error {
	mqttClient, err := indoor.InitMQTT(a.Config, a.handlePosition)
	if err != nil {
		return fmt.Errorf("failed to initialize MQTT: %w", err)
	}
	if mqttClient == nil {
		return errors.New("MQTT broker not configured in config.yaml")
	}
	a.attachMQTT(mqttClient)
	fmt.Fprintln(a.Out, "MQTT viewport publisher initialized")
	return nil
}

// attachMQTT makes the publisher a viewport sink and resends whatever it
// could not deliver each time the broker connection comes up.
func (a *App) attachMQTT(mqttClient *indoor.MQTTClient) {
	a.MQTTClient = mqttClient
	a.Publisher = indoor.NewPublisher(mqttClient.GetClient(), a.Config.MQTT.PublishPrefix)
	a.Session.AddViewport(a.Publisher)

	publisher := a.Publisher
	mqttClient.OnConnect(func() {
		if err := publisher.Republish(); err != nil {
			log.Printf("Error republishing after connect: %v", err)
		}
	})
}

// handlePosition centres the session on a located user and republishes
// the fix.
func (a *App) handlePosition(pos indoor.Position) {
	if err := a.Session.Locate(pos); err != nil {
		log.Printf("Error locating %s: %v", pos.ID, err)
	}
	log.Printf("%s: located at [%.1f, %.1f] (±%.0f, %s)", pos.ID, pos.Lat, pos.Lng, pos.Accuracy, pos.Source)

	if a.Publisher != nil {
		if err := a.Publisher.PublishPosition(pos); err != nil {
			log.Printf("Error publishing position for %s: %v", pos.ID, err)
		}
	}
}

func (a *App) startWatcher(ctx context.Context) {
	w := indoor.NewDatasetWatcher(a.Config.Dataset.Path, a.Loader, a.activate)
	go func() {
		if err := w.Run(ctx); err != nil {
			log.Printf("Dataset watcher stopped: %v", err)
		}
	}()
}

// runDemoGPS locates the user once immediately and then on every tick.
func (a *App) runDemoGPS(ctx context.Context, gps *indoor.SimulatedGPS, interval time.Duration) {
	a.handlePosition(gps.Locate())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.handlePosition(gps.Locate())
		}
	}
}

func (a *App) startHTTP() *http.Server {
	addr := fmt.Sprintf("0.0.0.0:%d", a.HttpPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           newHTTPServer(a.Session, a.Renderer, a.Store, a.handlePosition),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[HTTP] Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[HTTP] Server error: %v", err)
		}
	}()
	return server
}

func (a *App) printServiceInfo() {
	fmt.Fprintln(a.Out, "\nService Running")
	fmt.Fprintln(a.Out, "===============")

	if a.Config.Dataset.Path != "" {
		fmt.Fprintf(a.Out, "\nDataset: %s", a.Config.Dataset.Path)
		if a.Config.Dataset.Watch {
			fmt.Fprint(a.Out, " (watching for changes)")
		}
		fmt.Fprintln(a.Out)
	} else {
		fmt.Fprintf(a.Out, "\nDataset: %s\n", a.Config.Dataset.URL)
	}

	if a.Publisher != nil {
		prefix := a.Publisher.Prefix()
		fmt.Fprintln(a.Out, "\nMQTT:")
		fmt.Fprintf(a.Out, "  Viewport fit:  %s/viewport/fit\n", prefix)
		fmt.Fprintf(a.Out, "  Viewport view: %s/viewport/view\n", prefix)
		fmt.Fprintf(a.Out, "  Positions:     %s/position\n", prefix)
		fmt.Fprintf(a.Out, "  Dataset stats: %s/dataset\n", prefix)
	}

	if a.HttpMode {
		fmt.Fprintf(a.Out, "\nHTTP endpoints (port %d):\n", a.HttpPort)
		fmt.Fprintln(a.Out, "  GET /health            - Health check")
		fmt.Fprintln(a.Out, "  GET /features.geojson  - Transformed dataset")
		fmt.Fprintln(a.Out, "  GET /bounds            - Dataset bounds")
		fmt.Fprintln(a.Out, "  GET /map.svg, /map.png - Rendered floor plan (?category=&highlight=)")
		fmt.Fprintln(a.Out, "  GET /locations         - Location search (?q=&category=)")
		fmt.Fprintln(a.Out, "  GET /feature           - Feature at a point (?x=&y=)")
		fmt.Fprintln(a.Out, "  POST /focus            - Focus a layer (?layer=)")
		fmt.Fprintln(a.Out, "  POST /locate           - Locate by QR code (?code=)")
		fmt.Fprintln(a.Out, "  GET /favorites         - Favorites (POST ?id= toggles)")
		fmt.Fprintln(a.Out, "  GET /metrics           - Prometheus metrics")
	}

	if a.DemoGPS {
		fmt.Fprintf(a.Out, "\nSimulated GPS every %s\n", demoGPSInterval)
	}
}
