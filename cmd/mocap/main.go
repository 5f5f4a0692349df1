// Command mocap drives the capture pipeline end to end against the
// synthetic pose source: record a take, list and manage stored takes, and
// export a finished take to JSON and BVH.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/mocap.report/internal/config"
	"github.com/banshee-data/mocap.report/internal/export"
	"github.com/banshee-data/mocap.report/internal/filter"
	"github.com/banshee-data/mocap.report/internal/landmark"
	"github.com/banshee-data/mocap.report/internal/record"
	"github.com/banshee-data/mocap.report/internal/rig"
	"github.com/banshee-data/mocap.report/internal/stream"
	"github.com/banshee-data/mocap.report/internal/take"
	"github.com/banshee-data/mocap.report/internal/version"
)

var (
	dbPath     = flag.String("db", "takes.db", "Path to the take database")
	outDir     = flag.String("out", "exports", "Export output directory")
	configPath = flag.String("config", "", "Optional tuning config JSON")
	name       = flag.String("name", "", "Display name for a new take")
	projectID  = flag.String("project", "", "Project id for a new take")
	duration   = flag.Duration("duration", 10*time.Second, "Recording duration")
	fps        = flag.Float64("fps", 0, "Export frame rate override (0 = estimate)")
	withFrames = flag.Bool("frames", true, "Embed frames in the JSON export")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: mocap [flags] <record|list|export|rename|delete> [take-id] [new-name]\n\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVer {
		fmt.Printf("mocap %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	store, err := take.OpenSQLite(*dbPath)
	if err != nil {
		log.Fatalf("open take store: %v", err)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch flag.Arg(0) {
	case "record":
		err = runRecord(ctx, store, cfg)
	case "list":
		err = runList(ctx, store)
	case "export":
		err = runExport(ctx, store, cfg, flag.Arg(1))
	case "rename":
		err = store.RenameTake(ctx, flag.Arg(1), flag.Arg(2))
	case "delete":
		err = store.DeleteTake(ctx, flag.Arg(1))
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runRecord(ctx context.Context, store take.Store, cfg *config.TuningConfig) error {
	source := stream.NewMockSource()
	smoother := filter.NewPoseSmoother(filter.Params{
		MinCutoff: cfg.GetFilterMinCutoff(),
		Beta:      cfg.GetFilterBeta(),
		DCutoff:   cfg.GetFilterDCutoff(),
	}, cfg.GetConfidenceGate())
	recorder := record.NewRecorder(store)
	state := stream.NewCaptureState()

	if _, err := source.Ping(ctx); err != nil {
		return fmt.Errorf("ping source: %w", err)
	}

	t, err := recorder.StartRecording(ctx, *name, *projectID, cfg.GetChunkFrames())
	if err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	state.Update(func(s *stream.CaptureSnapshot) {
		s.Running = true
		s.TakeID = t.ID
	})

	unsubscribe := source.AddListener(func(frame landmark.Frame) {
		smoothed := smoother.Filter(frame)
		recorder.PushFrame(smoothed)
		state.Update(func(s *stream.CaptureSnapshot) {
			s.FrameCount++
			s.LastFrameTs = smoothed.TimestampMs
		})
	})
	defer unsubscribe()

	if err := source.Start(ctx, stream.Options{MinConfidence: 0.5, MinPoseConfidence: 0.5, TargetFPS: 30}); err != nil {
		return fmt.Errorf("start source: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(*duration):
	}

	if err := source.Stop(context.Background()); err != nil {
		return fmt.Errorf("stop source: %w", err)
	}
	finalized, err := recorder.StopRecording(context.Background())
	if err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}
	state.Update(func(s *stream.CaptureSnapshot) { s.Running = false })

	fmt.Printf("recorded %s: %d frames in %d chunks (%.2f fps)\n",
		finalized.ID, finalized.FrameCount, finalized.ChunkCount, finalized.AvgFPS)
	return nil
}

func runList(ctx context.Context, store take.Store) error {
	takes, err := store.ListTakes(ctx)
	if err != nil {
		return err
	}
	for _, t := range takes {
		fmt.Printf("%s  %-20s  %5d frames  %6.2fs  %5.2f fps  %d chunks\n",
			t.ID, t.Name, t.FrameCount, float64(t.DurationMs)/1000, t.AvgFPS, t.ChunkCount)
	}
	return nil
}

func runExport(ctx context.Context, store take.Store, cfg *config.TuningConfig, takeID string) error {
	if takeID == "" {
		return fmt.Errorf("export requires a take id")
	}
	exporter := export.NewExporter(store, rig.New(cfg.GetWorldScale()), *outDir)
	res, err := exporter.ExportTake(ctx, takeID, export.Options{
		Format:        export.FormatAll,
		IncludeFrames: *withFrames,
		FPS:           *fps,
	})
	if err != nil {
		return err
	}
	for _, p := range res.Paths {
		fmt.Println(p)
	}
	return nil
}
