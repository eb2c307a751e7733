package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"eqprop-forge/internal/config"
	"eqprop-forge/internal/dataset"
	"eqprop-forge/internal/histdb"
	"eqprop-forge/internal/network"
	"eqprop-forge/internal/trainer"
)

func main() {
	cfgPath := flag.String("config", "configs/demo.yaml", "Path to YAML config")
	netlist := flag.String("netlist", "", "Override netlist path")
	datasetPath := flag.String("dataset", "", "Override dataset CSV path")
	historyDB := flag.String("history-db", "", "Override history database path")
	epochs := flag.Int("epochs", 0, "Number of training epochs")
	gamma := flag.Float64("gamma", 0, "Contrastive update scale")
	eta := flag.Float64("eta", 0, "Nudge blend factor")
	shuffle := flag.String("shuffle", "", "Shuffle samples each epoch (true/false)")
	seed := flag.Int64("seed", 0, "PRNG seed")
	checkpointEvery := flag.Int("checkpoint-every", 0, "Record snapshots every N epochs")

	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := cfg.ApplyOverrides(config.Overrides{
		Netlist:         *netlist,
		Dataset:         *datasetPath,
		HistoryDB:       *historyDB,
		Epochs:          *epochs,
		Gamma:           *gamma,
		Eta:             *eta,
		Shuffle:         *shuffle,
		Seed:            *seed,
		CheckpointEvery: *checkpointEvery,
	}); err != nil {
		log.Fatalf("invalid override: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	net, err := network.LoadTopology(cfg.Netlist)
	if err != nil {
		log.Fatalf("load netlist %s: %v", cfg.Netlist, err)
	}
	log.Printf("netlist=%s nodes=%d edges=%d inputs=%d outputs=%d",
		cfg.Netlist, net.NumNodes(), len(net.Edges()), len(net.Inputs()), len(net.Outputs()))

	xs, ys, err := dataset.Load(cfg.Dataset, cfg.InputDim, cfg.OutputDim)
	if err != nil {
		log.Fatalf("load dataset %s: %v", cfg.Dataset, err)
	}
	log.Printf("dataset=%s samples=%d", cfg.Dataset, len(xs))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hist, err := trainer.Train(ctx, net, xs, ys, trainer.Options{
		Epochs:      cfg.Epochs,
		Gamma:       cfg.Gamma,
		Eta:         cfg.Eta,
		Lambda:      cfg.Lambda,
		Checkpoints: cfg.CheckpointEpochs(),
		Shuffle:     cfg.Shuffle,
		Seed:        cfg.Seed,
	})
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}
	log.Printf("done initial_loss=%.6f final_loss=%.6f", hist.Loss[0], hist.Loss[len(hist.Loss)-1])

	if cfg.HistoryDB == "" {
		return
	}
	db, err := histdb.Open(cfg.HistoryDB)
	if err != nil {
		log.Fatalf("open history db: %v", err)
	}
	defer db.Close()
	runID, err := db.SaveRun(cfg.Netlist, histdb.RunMeta{
		Epochs:  cfg.Epochs,
		Gamma:   cfg.Gamma,
		Eta:     cfg.Eta,
		Lambda:  cfg.Lambda,
		Shuffle: cfg.Shuffle,
		Seed:    cfg.Seed,
	}, hist)
	if err != nil {
		log.Fatalf("save history: %v", err)
	}
	log.Printf("history_db=%s run_id=%d", cfg.HistoryDB, runID)
}
