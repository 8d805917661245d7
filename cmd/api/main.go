package main

import (
	"log"
	"net/http"

	"vlaradar/internal/api"
	"vlaradar/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	h := api.NewServer(cfg)
	log.Printf("vlaradar api listening on %s llm_providers=%q", cfg.APIAddr, cfg.LLMProviders)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
