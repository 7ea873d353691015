package main

import (
	"context"
	"fmt"
	"log"

	"github.com/mosaicworks/querydesk/config"
	"github.com/mosaicworks/querydesk/internal/retrieval"
	"github.com/mosaicworks/querydesk/provider"
)

// runIndex builds the document index once and reports the chunk count.
// Useful for verifying the resources directory before serving.
func runIndex(cfgPath string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	var embedder retrieval.Embedder
	if cfg.LLM.APIKey != "" {
		llm, err := provider.NewProvider(cfg.LLM)
		if err != nil {
			return err
		}
		embedder = llm
	} else {
		log.Printf("no LLM API key configured, indexing without embeddings")
	}

	pipeline, err := retrieval.NewPipeline(cfg.Retrieval, embedder, nil)
	if err != nil {
		return err
	}
	defer pipeline.Close()
	report, err := pipeline.IndexDir(context.Background())
	if err != nil {
		return err
	}
	for _, f := range report.Files {
		if f.Success {
			fmt.Printf("  %s: %d chunks\n", f.File, f.Chunks)
		} else {
			fmt.Printf("  %s: failed: %s\n", f.File, f.Error)
		}
	}
	fmt.Printf("indexed %d chunks from %s\n", report.Chunks, cfg.Retrieval.ResourcesDir)
	return nil
}
