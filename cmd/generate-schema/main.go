// Command generate-schema emits the JSON schema for the agent
// configuration file, for editor completion and CI validation.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/buildbeam/agentfs/pkg/config"
)

func main() {
	output := flag.String("output", "config.schema.json", "file to write the schema to, or - for stdout")
	flag.Parse()

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.ID = "https://buildbeam.dev/schemas/agentfs-config.json"
	schema.Title = "agentfs configuration"
	schema.Description = "Settings for the build agent: coordinator endpoint, path mapping, content store, metrics."

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal schema: %v\n", err)
		os.Exit(1)
	}
	out = append(out, '\n')

	if *output == "-" {
		os.Stdout.Write(out)
		return
	}
	if err := os.WriteFile(*output, out, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *output, err)
		os.Exit(1)
	}
	fmt.Printf("schema written to %s\n", *output)
}
