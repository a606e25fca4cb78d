package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sophialabs/labelcheck/internal/app"
	"github.com/sophialabs/labelcheck/internal/infrastructure/usecases"
)

func main() {
	var (
		configPath string
		serve      bool
		watch      bool
		specs      string
		logLevel   string
		port       int
		asJSON     bool
	)
	flag.StringVar(&configPath, "config", "", "path to the YAML configuration file")
	flag.BoolVar(&serve, "serve", false, "run the target server instead of the checks")
	flag.BoolVar(&watch, "watch", false, "re-run the checks whenever the catalogue changes")
	flag.StringVar(&specs, "spec", "", "comma-separated specification names to check (default: all)")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.IntVar(&port, "port", 0, "target server port")
	flag.BoolVar(&asJSON, "json", false, "print summaries as JSON")
	flag.Parse()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		fail("failed to load configuration: %v", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if port != 0 {
		cfg.Serve.Port = port
	}
	if specs != "" {
		cfg.Labelcheck.Specifications = splitList(specs)
	}

	a, err := app.New(cfg)
	if err != nil {
		fail("failed to initialize: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	switch {
	case serve:
		if err := a.Serve(ctx); err != nil {
			a.Close()
			fail("error: %v", err)
		}
	case watch:
		err := a.Watch(ctx, func(result usecases.RunAllResult, err error) {
			report(os.Stdout, result, err, asJSON)
		})
		if err != nil {
			a.Close()
			fail("error: %v", err)
		}
	default:
		result, err := a.Check(ctx)
		report(os.Stdout, result, err, asJSON)
		if err != nil || !result.Passed() {
			a.Close()
			os.Exit(1)
		}
	}
}

func report(w io.Writer, result usecases.RunAllResult, err error, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result.Summaries)
	} else {
		for _, s := range result.Summaries {
			_, _ = fmt.Fprintf(w, "%s (run %s): %d labels\n", s.Specification.Name, s.RunID, s.TotalLabels)
			_, _ = fmt.Fprintf(w, "  api:  request %d pass / %d fail / %d mis, response %d pass / %d fail / %d mis, %d unresolved\n",
				s.API.RequestPass, s.API.RequestFail, s.API.RequestMis,
				s.API.ResponsePass, s.API.ResponseFail, s.API.ResponseMis, s.API.Unresolved)
			_, _ = fmt.Fprintf(w, "  file: %d pass / %d fail of %d\n", s.File.Pass, s.File.Fail, s.File.Total)
		}
	}
	if len(result.GateFailures) > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "gate failed for: %s\n", strings.Join(result.GateFailures, ", "))
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
