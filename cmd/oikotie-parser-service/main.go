package main

import (
	"flag"
	"log"
	"oikotie-parser-service/internal"
)

func main() {
	nAdverts := flag.Int("n_adverts", 0, "total number of adverts to fetch (required)")
	flag.Parse()

	if *nAdverts <= 0 {
		flag.Usage()
		log.Fatalf("--n_adverts is required and must be a positive integer")
	}

	application, err := internal.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := application.Run(*nAdverts); err != nil {
		log.Fatalf("Application run failed: %v", err)
	}
}
