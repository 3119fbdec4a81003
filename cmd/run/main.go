package main

import (
	"context"
	"fmt"
	"os"

	"github.com/thep200/readme-crawler/api"
)

func main() {
	ctx := context.Background()

	scraper := api.NewScraperAPI()
	if err := scraper.Initialize(ctx); err != nil {
		fmt.Printf("[ERROR] Failed to initialize scraper: %v\n", err)
		os.Exit(1)
	}

	if err := scraper.Run(); err != nil {
		fmt.Printf("[ERROR] Scrape failed: %v\n", err)
		os.Exit(1)
	}
}
