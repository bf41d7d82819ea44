package main

import (
	"fmt"
	"io"
	"sort"
	"text/template"

	. "github.com/elijahnyp/relay_controller/util"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after defaults, config file, environment and
flags are applied. Redirect it to relay_controller.yaml to start a config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		SetupConfig(cmd.Flags())
		return writeConfig(cmd.OutOrStdout())
	},
}

type configEntry struct {
	Key   string
	Value string
}

var configTemplate = template.Must(template.New("config").Option("missingkey=zero").Parse(
	`# relay_controller configuration
{{range .}}{{.Key}}: {{printf "%q" .Value}}
{{end}}`))

var secretKeys = map[string]bool{"password": true}

func writeConfig(out io.Writer) error {
	keys := Config.AllKeys()
	sort.Strings(keys)
	entries := make([]configEntry, 0, len(keys))
	for _, key := range keys {
		if key == "config" {
			continue
		}
		value := Config.GetString(key)
		if secretKeys[key] && value != "" {
			value = "********"
		}
		entries = append(entries, configEntry{Key: key, Value: value})
	}
	if err := configTemplate.Execute(out, entries); err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	return nil
}
