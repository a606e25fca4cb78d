package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	port := flag.Int("port", 8080, "target server port")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/__admin/health", *port))
	if err != nil || resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
