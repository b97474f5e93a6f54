package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Brownie44l1/retinascan/internal/client"
	"github.com/Brownie44l1/retinascan/internal/config"
	"github.com/Brownie44l1/retinascan/internal/form"
	"github.com/Brownie44l1/retinascan/internal/logging"
)

func main() {
	cfg := config.Load()

	octPath := flag.String("oct", "", "OCT scan image (png, jpg, jpeg)")
	fundusPath := flag.String("fundus", "", "fundus image (png, jpg, jpeg)")
	url := flag.String("url", cfg.PredictURL, "prediction endpoint")
	timeout := flag.Duration("timeout", 2*time.Minute, "request timeout")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	page := form.NewPage(client.New(*url, nil, logger), nil)

	var sub client.Submission
	if *octPath != "" {
		// an unreadable file is treated like an empty slot
		sub.OCT, _ = client.ReadFile(*octPath)
	}
	if *fundusPath != "" {
		sub.Fundus, _ = client.ReadFile(*fundusPath)
	}
	page.Preview(form.SlotOCT, sub.OCT)
	page.Preview(form.SlotFundus, sub.Fundus)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	submitErr := page.Submit(ctx, sub)
	cancel()

	if err := form.WriteText(os.Stdout, page.State()); err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
	if submitErr != nil {
		os.Exit(1)
	}
}
