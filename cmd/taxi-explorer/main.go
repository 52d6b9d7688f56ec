package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/jengzang/taxi-explorer-go/internal/api"
	"github.com/jengzang/taxi-explorer-go/internal/config"
	"github.com/jengzang/taxi-explorer-go/internal/database"
	"github.com/jengzang/taxi-explorer-go/internal/explorer"
	"github.com/jengzang/taxi-explorer-go/internal/ingest"
	"github.com/jengzang/taxi-explorer-go/internal/models"
	"github.com/jengzang/taxi-explorer-go/internal/repository"
	"github.com/jengzang/taxi-explorer-go/internal/service"
	"github.com/jengzang/taxi-explorer-go/internal/spatial"
	"github.com/jengzang/taxi-explorer-go/internal/store"
	"github.com/jengzang/taxi-explorer-go/internal/tui"
)

var (
	configFile string
	batchSize  int
	tripCount  int
	seed       int64
	// Snapshot flags
	outFile      string
	plotMode     string
	colormapName string
	alpha        float64
	imgWidth     int
	imgHeight    int
	minX         float64
	minY         float64
	maxX         float64
	maxY         float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taxi-explorer",
		Short: "interactive NYC taxi trip density explorer",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the dashboard API server",
		RunE:  runServe,
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest [csv...]",
		Short: "load trip records from CSV files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}
	ingestCmd.Flags().IntVar(&batchSize, "batch", 5000, "insert batch size")

	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "seed the database with synthetic trips",
		RunE:  runDemo,
	}
	demoCmd.Flags().IntVar(&tripCount, "trips", 100000, "number of trips to generate")
	demoCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "print dataset summary and histograms",
		RunE:  runInspect,
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "render one view to a PNG file",
		RunE:  runSnapshot,
	}
	snapshotCmd.Flags().StringVar(&outFile, "out", "view.png", "output file")
	snapshotCmd.Flags().StringVar(&plotMode, "plot", "pickup", "plot mode (pickup|dropoff)")
	snapshotCmd.Flags().StringVar(&colormapName, "colormap", "fire", "colormap name")
	snapshotCmd.Flags().Float64Var(&alpha, "alpha", 0.75, "layer opacity")
	snapshotCmd.Flags().IntVar(&imgWidth, "width", 900, "image width in pixels")
	snapshotCmd.Flags().IntVar(&imgHeight, "height", 600, "image height in pixels")
	snapshotCmd.Flags().Float64Var(&minX, "min-x", 0, "viewport min x (web mercator meters)")
	snapshotCmd.Flags().Float64Var(&minY, "min-y", 0, "viewport min y")
	snapshotCmd.Flags().Float64Var(&maxX, "max-x", 0, "viewport max x")
	snapshotCmd.Flags().Float64Var(&maxY, "max-y", 0, "viewport max y")

	exploreCmd := &cobra.Command{
		Use:   "explore",
		Short: "browse trip density in the terminal",
		RunE:  runExplore,
	}

	rootCmd.AddCommand(serveCmd, ingestCmd, demoCmd, inspectCmd, snapshotCmd, exploreCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}

func openRepository(cfg *config.Config) (*repository.TripRepository, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewTripRepository(db)
	if err := repo.EnsureSchema(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, func() { db.Close() }, nil
}

func renderOptions(cfg *config.Config) explorer.Options {
	opts := explorer.DefaultOptions()
	opts.PlotWidth = cfg.Render.PlotWidth
	opts.PlotHeight = cfg.Render.PlotHeight
	opts.ResolutionCap = cfg.Render.ResolutionCap
	opts.MaxPoints = cfg.Render.MaxPoints
	opts.Normalization = cfg.Render.Normalization
	opts.SpreadRadius = cfg.Render.SpreadRadius
	opts.SpreadCutoff = cfg.Render.SpreadCutoff
	opts.TileURL = cfg.Tiles.URLTemplate
	opts.Attribution = cfg.Tiles.Attribution
	return opts
}

func runServe(cmd *cobra.Command, args []string) error {
	// 加载配置
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// 初始化数据库
	repo, closeDB, err := openRepository(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer closeDB()

	if err := os.MkdirAll(filepath.Dir(cfg.ViewDBPath), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	viewStore, err := store.Open(cfg.ViewDBPath)
	if err != nil {
		return fmt.Errorf("failed to open view store: %w", err)
	}
	defer viewStore.Close()

	sessions := service.NewSessionService(repo, renderOptions(cfg), cfg.SessionTTL())
	defer sessions.Close()

	// 初始化路由
	router := api.SetupRouter(api.Deps{
		Config:   cfg,
		Sessions: sessions,
		Dataset:  service.NewDatasetService(repo),
		Views:    service.NewViewService(viewStore),
	})

	srv := &http.Server{Addr: cfg.Port, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		// 启动服务器
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, closeDB, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	loader := ingest.NewLoader(repo, batchSize)
	for _, path := range args {
		stats, err := loader.LoadFile(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		fmt.Printf("%s: %d read, %d inserted, %d skipped\n",
			path, stats.Read, stats.Inserted, stats.Skipped)
	}
	return nil
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, closeDB, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	log.Printf("Generating %d synthetic trips (seed %d)", tripCount, seed)
	trips := ingest.NewGenerator(seed).Trips(tripCount)
	if err := repo.InsertTrips(trips); err != nil {
		return fmt.Errorf("failed to insert trips: %w", err)
	}
	fmt.Printf("inserted %d synthetic trips into %s\n", len(trips), cfg.DBPath)
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, closeDB, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	dataset := service.NewDatasetService(repo)
	summary, err := dataset.Summary()
	if err != nil {
		return err
	}
	if summary.TripCount == 0 {
		fmt.Println("no trips loaded; run ingest or demo first")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIPS\tFIRST PICKUP\tLAST PICKUP\tAVG KM\tAVG FARE\tAVG PAX\tKM P50\tKM P90\tKM P99")
	fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
		summary.TripCount,
		time.Unix(summary.FirstPickup, 0).UTC().Format("2006-01-02 15:04"),
		time.Unix(summary.LastPickup, 0).UTC().Format("2006-01-02 15:04"),
		summary.AvgDistanceKm,
		summary.AvgFare,
		summary.AvgPassengers,
		summary.DistanceP50,
		summary.DistanceP90,
		summary.DistanceP99,
	)
	w.Flush()

	hourly, err := dataset.Histogram(models.HistogramByHour)
	if err != nil {
		return err
	}
	hours := make([]float64, 24)
	for _, b := range hourly.Buckets {
		if b.Key >= 0 && b.Key < len(hours) {
			hours[b.Key] = float64(b.Count)
		}
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(hours,
		asciigraph.Height(10),
		asciigraph.Width(72),
		asciigraph.Caption("trips by pickup hour"),
	))

	passengers, err := dataset.Histogram(models.HistogramByPassengers)
	if err != nil {
		return err
	}
	counts := make([]float64, models.PassengerMax+1)
	for _, b := range passengers.Buckets {
		if b.Key >= 0 && b.Key < len(counts) {
			counts[b.Key] = float64(b.Count)
		}
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(counts,
		asciigraph.Height(8),
		asciigraph.Width(44),
		asciigraph.Caption("trips by passenger count"),
	))
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, closeDB, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	ex, err := explorer.New(repo, renderOptions(cfg))
	if err != nil {
		return err
	}

	space := ex.Params()
	if err := space.Set(explorer.FieldPlot, plotMode); err != nil {
		return err
	}
	if err := space.Set(explorer.FieldColormap, colormapName); err != nil {
		return err
	}
	if err := space.Set(explorer.FieldAlpha, alpha); err != nil {
		return err
	}

	req := &explorer.ViewRequest{Width: imgWidth, Height: imgHeight}
	bounds := spatial.BBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
	if !bounds.IsZero() {
		if !bounds.Valid() {
			return fmt.Errorf("invalid viewport bounds")
		}
		req.Bounds = bounds
	}

	view, err := ex.Render(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}
	if err := os.WriteFile(outFile, view.PNG, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outFile, err)
	}
	fmt.Printf("wrote %s (%dx%d, %d points)\n", outFile, view.Width, view.Height, view.PointCount)
	return nil
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, closeDB, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	return tui.Run(repo, renderOptions(cfg))
}
