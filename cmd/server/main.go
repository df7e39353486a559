package main

import (
	"log"
	"net/http"
	"os"

	"github.com/squaresclub/gatedb/internal/db"
	"github.com/squaresclub/gatedb/internal/web"
)

func main() {
	if err := db.Init(getEnv("GATEDB_PATH", "gatedb.db")); err != nil {
		log.Fatalf("db init: %v", err)
	}

	r := web.Router()

	addr := getEnv("ADDR", ":8080")
	log.Printf("gatedb listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal(err)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
