// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"workshop-onboarding/pkg/registry"
)

var registryPath string

func main() {
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{initCmd, updateCmd, validateCmd} {
		fs.StringVar(&registryPath, "path", "configs/steps.json", "Path to registry file")
	}

	// Init command flags
	force := initCmd.Bool("force", false, "Overwrite an existing file")

	// Update command flags
	step := updateCmd.Int("step", 0, "Step number (1-5)")
	field := updateCmd.String("field", "", "Field to update (title, description, optional)")
	value := updateCmd.String("value", "", "New value for the field")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		initCmd.Parse(os.Args[2:])
		if _, err := os.Stat(registryPath); err == nil && !*force {
			fmt.Printf("Error: %s already exists, use -force to overwrite.\n", registryPath)
			os.Exit(1)
		}
		reg := registry.DefaultRegistry()
		reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
		if err := registry.SaveRegistry(reg, registryPath); err != nil {
			fmt.Printf("Error writing registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default step registry to %s\n", registryPath)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *step == 0 || *field == "" {
			fmt.Println("Error: step and field are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateStep(*step, *field, *value); err != nil {
			fmt.Printf("Error updating step: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated step %d, field %s to %q\n", *step, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d steps.\n", len(reg.Steps))

	case "help":
		fallthrough
	default:
		help()
	}
}

func updateStep(number int, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.UpdateStep(number, field, value); err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	return registry.SaveRegistry(reg, registryPath)
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  init     Write the default step registry
  update   Update a step's title, description or optional flag
  validate Validate the registry file
  help     Show this help message

Examples:
  registry-updater init -path configs/steps.es.json
  registry-updater update -path configs/steps.es.json -step 1 -field title -value "Datos básicos"
  registry-updater validate -path configs/steps.es.json

Point wizard.registry_path at the file to use it.`)
}
