package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/kibbyd/integration-layer/go-coordinator/internal/config"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/coordinator"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/normalize"
)

// #region main
func main() {
	configPath := flag.String("config", envOr("COORDINATOR_CONFIG", ""), "path to YAML config")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	if db := os.Getenv("COORDINATOR_DB"); db != "" {
		cfg.Database.Path = db
	}

	coord, err := coordinator.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize coordinator: %v", err)
	}
	defer coord.Close()

	fmt.Println("Integration Layer Coordinator ready.")
	fmt.Printf("  DB: %s | normalize: %v\n", cfg.Database.Path, cfg.Data.Normalize)
	fmt.Println(`Paste a JSON record like {"x":[1,2,3],"y":[10,20,30]} (or ':monitor', ':update <path>', 'quit'):`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		if strings.HasPrefix(line, ":") {
			runDirective(coord, line)
			continue
		}

		rec, err := parseRecord(line)
		if err != nil {
			log.Printf("input error: %v", err)
			continue
		}

		out, err := coord.ProcessData(rec)
		if err != nil {
			log.Printf("pipeline error: %v", err)
			if herr := coord.HandleError(err); herr != nil {
				log.Printf("recovery failed: %v", herr)
			}
			continue
		}
		printJSON(out)
	}
}

// #endregion main

// #region directives
func runDirective(coord *coordinator.Coordinator, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":monitor":
		report, err := coord.Monitor()
		if err != nil {
			log.Printf("monitor error: %v", err)
			return
		}
		printJSON(report)
	case ":update":
		if len(fields) < 2 {
			log.Printf("usage: :update <path>")
			return
		}
		if err := coord.UpdateModel(fields[1]); err != nil {
			log.Printf("update error: %v", err)
			return
		}
		fmt.Println("model updated")
	default:
		log.Printf("unknown directive %s", fields[0])
	}
}

// #endregion directives

// #region helpers

// parseRecord decodes a {"field": [values...]} JSON object. Field order is
// made deterministic by RecordFromMap since JSON objects carry no order.
func parseRecord(line string) (normalize.RawRecord, error) {
	var obj map[string][]interface{}
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return nil, fmt.Errorf("expected a JSON object of field: [values]: %w", err)
	}
	return normalize.RecordFromMap(obj), nil
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("encode error: %v", err)
		return
	}
	fmt.Println(string(data))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
