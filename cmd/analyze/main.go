package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/faxcloud/analyzer/internal/analysis"
	"github.com/faxcloud/analyzer/internal/faxlog"
)

// analyze runs the import and analysis pipeline on a single export file
// and prints the result as JSON. No database, cache or network needed.
func main() {
	columnsPath := flag.String("columns", "", "path to a column alias YAML file")
	contract := flag.String("contract", "", "contract ID to tag the run with")
	start := flag.String("start", "", "billing period start (YYYY-MM-DD)")
	end := flag.String("end", "", "billing period end (YYYY-MM-DD)")
	voiceRange := flag.Bool("voice-range", false, "reject numbers in the 336/337 mobile range")
	withRecords := flag.Bool("records", false, "include per-row records in the output")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <export-file>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read %s: %v", flag.Arg(0), err)
	}

	aliases := faxlog.DefaultAliases()
	if *columnsPath != "" {
		aliases, err = faxlog.LoadAliases(*columnsPath)
		if err != nil {
			log.Fatalf("load column config: %v", err)
		}
	}

	table, err := faxlog.ReadTable(bytes.NewReader(data))
	if err != nil {
		log.Fatalf("read table: %v", err)
	}

	records, meta, err := faxlog.NewImporter(aliases).Normalize(table)
	if err != nil {
		log.Fatalf("normalize: %v", err)
	}

	var phoneRules []faxlog.PhoneRule
	if *voiceRange {
		phoneRules = append(phoneRules, faxlog.RejectVoiceRange)
	}
	engine := analysis.NewEngine(faxlog.NewRowValidator(phoneRules...), analysis.NewDetector())

	result := engine.Analyze(records, analysis.RunContext{
		ContractID:  *contract,
		PeriodStart: *start,
		PeriodEnd:   *end,
	})
	if !*withRecords {
		result.Records = nil
	}

	out := map[string]interface{}{
		"meta":       meta,
		"statistics": result.Statistics,
		"anomalies":  result.Anomalies,
	}
	if result.Records != nil {
		out["records"] = result.Records
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode result: %v", err)
	}
}
