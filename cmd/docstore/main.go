package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/freightline/portal-services/handlers"
	"github.com/freightline/portal-services/internal/blob"
	"github.com/freightline/portal-services/internal/docstore"
)

// Standalone document store service: just GET/PUT /document over the object
// store, without auth or upload relay. Useful for sidecar deployments and
// integration testing against a bare MinIO.
func main() {
	port := os.Getenv("DOC_STORE_PORT")
	if port == "" {
		port = "5010"
	}

	r := gin.New()
	r.Use(gin.Recovery())

	var client blob.Client
	cfg := blob.LoadMinIOConfig()
	if cfg.Endpoint != "" {
		m, err := blob.NewMinIO(cfg)
		if err != nil {
			log.Printf("warning: cannot connect to MinIO (%v) — using memory-backed store", err)
			client = blob.NewMemory(cfg.Bucket)
		} else {
			client = m
		}
	} else {
		client = blob.NewMemory("local")
	}

	store := docstore.New(client, docstore.Config{})
	handlers.NewStoreHandler(store).Register(r)

	log.Printf("document store service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
