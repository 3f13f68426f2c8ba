package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"

	"warehouse-viz/internal/config"
	"warehouse-viz/internal/recorder"
	"warehouse-viz/internal/runindex"
	"warehouse-viz/internal/session"
	"warehouse-viz/internal/transport"
	"warehouse-viz/internal/visualization"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file (built-in defaults when empty)")
	replayPath := flag.String("replay", "", "replay a recording instead of polling the simulation")
	listRuns := flag.Bool("runs", false, "list the sessions stored in index_db and exit")
	flag.Parse()

	logger := log.New(os.Stdout, "[viz] ", log.LstdFlags|log.Lmicroseconds)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
	}

	var index *runindex.Index
	if cfg.IndexDB != "" {
		var err error
		index, err = runindex.Open(cfg.IndexDB)
		if err != nil {
			logger.Fatalf("open run index: %v", err)
		}
		defer index.Close()
	}
	if *listRuns {
		if index == nil {
			logger.Fatalf("-runs needs index_db in the configuration")
		}
		if err := printRuns(index); err != nil {
			logger.Fatalf("list runs: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	simCfg := cfg.Simulation
	opts := session.Options{ID: uuid.New(), Logger: logger}
	var src session.Source
	if *replayPath != "" {
		p, err := recorder.Open(*replayPath)
		if err != nil {
			logger.Fatalf("open recording: %v", err)
		}
		simCfg = p.Header().Config
		src = p
		opts.SourceName = "replay:" + *replayPath
		logger.Printf("replaying session %s recorded %s", p.Header().Session, p.Header().StartedAt.Format(time.RFC3339))
	} else {
		c, err := transport.NewClient(cfg.ServerURL, transport.Options{Timeout: cfg.RequestTimeout, Logger: logger})
		if err != nil {
			logger.Fatalf("transport: %v", err)
		}
		src = c
		opts.SourceName = cfg.ServerURL

		if cfg.RecordDir != "" {
			w, err := recorder.Create(cfg.RecordDir, opts.ID, simCfg)
			if err != nil {
				logger.Fatalf("create recording: %v", err)
			}
			defer func() {
				if err := w.Close(); err != nil {
					logger.Printf("close recording: %v", err)
				}
			}()
			opts.Recorder = w
			logger.Printf("recording to %s", w.Path())
		}
	}
	if index != nil {
		opts.Index = index
	}

	sess, err := session.New(ctx, simCfg, src, cfg.UpdateInterval, opts)
	if err != nil {
		logger.Fatalf("session: %v", err)
	}
	defer sess.Close()
	logger.Printf("session %s: %d agents, %d boxes, %dx%d grid, update every %s",
		sess.ID, simCfg.Agents, simCfg.Boxes, simCfg.Width, simCfg.Height, cfg.UpdateInterval)

	renderer := visualization.NewRenderer(ctx, sess, cfg.Window.Title, logger)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(renderer); err != nil {
		logger.Printf("render loop: %v", err)
	}
}

func printRuns(index *runindex.Index) error {
	runs, err := index.Runs(0)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTARTED\tSOURCE\tAGENTS\tBOXES\tGRID\tCYCLES\tFAILED\tRESULT")
	for _, r := range runs {
		result := "unfinished"
		if r.FinishedAt != nil {
			result = fmt.Sprintf("step %d, %d/%d dropped", r.FinalStep, r.DroppedBoxes, r.Config.Boxes)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%dx%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Source, r.Config.Agents, r.Config.Boxes,
			r.Config.Width, r.Config.Height, r.Cycles, r.Failures, result)
	}
	return tw.Flush()
}
