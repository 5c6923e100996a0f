package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/kibbyd/integration-layer/go-coordinator/internal/config"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/model"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/monitor"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/runlog"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to coordinator.db")
	versions := flag.Int("versions", 10, "show N most recent model versions")
	runs := flag.Int("runs", 20, "show N most recent run-log rows")
	health := flag.Int("health", 10, "show N most recent health rows")
	jsonOut := flag.Bool("json", false, "output as JSON instead of tables")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/coordinator.db [--versions N] [--runs N] [--health N] [--json]")
		os.Exit(2)
	}

	registry, err := model.NewRegistry(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer registry.Close()

	if err := run(registry, *versions, *runs, *health, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region run

type dump struct {
	Versions []model.VersionRecord `json:"versions"`
	Runs     []runlog.Entry        `json:"runs"`
	Health   []monitor.HistoryRow  `json:"health"`
}

func run(registry *model.Registry, nVersions, nRuns, nHealth int, jsonOut bool) error {
	versions, err := registry.ListVersions(nVersions)
	if err != nil {
		return err
	}

	runs, err := runlog.NewLog(registry.DB())
	if err != nil {
		return err
	}
	runRows, err := runs.Recent(nRuns)
	if err != nil {
		return err
	}

	mon, err := monitor.NewMonitor(config.Default().Monitoring, registry.DB(), nil)
	if err != nil {
		return err
	}
	healthRows, err := mon.History(nHealth)
	if err != nil {
		return err
	}

	if jsonOut {
		data, err := json.MarshalIndent(dump{versions, runRows, healthRows}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%-36s  %-16s  %-24s  %s\n", "Version", "Model", "Source", "Created")
	for _, v := range versions {
		fmt.Printf("%-36s  %-16s  %-24s  %s\n",
			v.VersionID, v.Name, v.SourcePath, v.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}

	fmt.Printf("\n%-36s  %-12s  %8s  %s\n", "Request", "Decision", "ms", "Created")
	for _, r := range runRows {
		fmt.Printf("%-36s  %-12s  %8d  %s\n",
			r.RequestID, r.Decision, r.DurationMs, r.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}

	fmt.Printf("\n%-6s  %-8s  %s\n", "ID", "Healthy", "Created")
	for _, h := range healthRows {
		fmt.Printf("%-6d  %-8t  %s\n", h.ID, h.Healthy, h.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// #endregion run
