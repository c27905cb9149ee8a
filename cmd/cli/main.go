package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Monitor name: ")
	name := readLine(reader)
	if name == "" {
		fmt.Println("A name is required.")
		return
	}

	fmt.Print("Kind [HTTP/KEYWORD/HEARTBEAT] (default HTTP): ")
	kind := strings.ToUpper(readLine(reader))
	if kind == "" {
		kind = "HTTP"
	}

	fmt.Print("URL to monitor (e.g., https://example.com): ")
	raw := readLine(reader)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		fmt.Println("Invalid URL.")
		return
	}

	payload := map[string]any{"name": name, "kind": kind, "url": raw}

	if kind == "KEYWORD" {
		fmt.Print("Keyword to look for: ")
		payload["keyword"] = readLine(reader)
	}

	fmt.Print("Check interval in seconds (default 60): ")
	if s := readLine(reader); s != "" {
		sec, err := strconv.Atoi(s)
		if err != nil || sec <= 0 {
			fmt.Println("Invalid interval.")
			return
		}
		payload["interval_sec"] = sec
	}

	body, _ := json.Marshal(payload)
	resp, err := http.Post(api+"/api/monitors", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Println("Error contacting API:", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		fmt.Println("Added! Check GET /api/status for results.")
	} else {
		fmt.Println("API returned status:", resp.Status)
	}
}

func readLine(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
