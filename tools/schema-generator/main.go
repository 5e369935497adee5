// Command schema-generator writes the JSON schemas for finder.yml and
// scenario files to schema/definitions.
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/finder/config"
	"github.com/grovetools/finder/pkg/scenarios/file"
)

func main() {
	outputDir := "schema/definitions"
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}

	for name, generate := range map[string]func() ([]byte, error){
		"finder.schema.json":    config.GenerateSchema,
		"scenarios.schema.json": file.Schema,
	} {
		data, err := generate()
		if err != nil {
			log.Fatalf("Error generating %s: %v", name, err)
		}
		outputPath := filepath.Join(outputDir, name)
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			log.Fatalf("Error writing %s: %v", outputPath, err)
		}
		log.Printf("Wrote %s", outputPath)
	}
}
