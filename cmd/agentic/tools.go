package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/martinemde/agentic/taskrun"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the builtin tools and their input schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		env := taskrun.NewLocalEnvironment(viper.GetString("workdir"))
		registry := taskrun.NewRegistry()
		if err := taskrun.RegisterBuiltinTools(registry, env); err != nil {
			return err
		}

		for _, info := range registry.List() {
			color.Cyan("%s", info.Name)
			fmt.Printf("  %s\n", info.Description)
			schema, err := json.Marshal(info.Schema.JSONSchema())
			if err != nil {
				return err
			}
			fmt.Printf("  schema: %s\n", schema)
		}
		return nil
	},
}
