// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// genids renders metrics.json into the typed ID constants of ids.go.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/template"
)

type metricDef struct {
	Description string `json:"description"`
	MetricType  string `json:"type"`
	Name        string `json:"name"`
	FieldName   string `json:"field"`
	Unit        string `json:"unit"`
	ID          uint32 `json:"id"`
	Obsolete    bool   `json:"obsolete"`
}

var idsTemplate = template.Must(template.New("ids").Parse(`// Code generated from metrics.json. DO NOT EDIT.

package metrics

// To add a new metric append an entry to metrics.json. ONLY APPEND !
// Then run 'go generate ./metrics'.

// Below are the different metric IDs that we currently implement.
const (
	// Leave out the 0 value. It's an indication of not explicitly initialized variables.
	IDInvalid MetricID = 0
{{range .Defs}}{{if not .Obsolete}}
	// {{.Description}}
	ID{{.Name}} MetricID = {{.ID}}
{{end}}{{end}}
	// max number of ID values, keep this as *last entry*
	IDMax MetricID = {{.Max}}
)
`))

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <metrics.json> <output.go>\n", os.Args[0])
		os.Exit(1)
	}

	input, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	var defs []metricDef
	if err = json.Unmarshal(input, &defs); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshaling: %v\n", err)
		os.Exit(1)
	}

	maxID := uint32(0)
	for _, d := range defs {
		maxID = max(maxID, d.ID)
	}

	var output bytes.Buffer
	err = idsTemplate.Execute(&output, struct {
		Defs []metricDef
		Max  uint32
	}{defs, maxID + 1})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering: %v\n", err)
		os.Exit(1)
	}

	if err = os.WriteFile(os.Args[2], output.Bytes(), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
