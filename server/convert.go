package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/meikuraledutech/flowagent/mermaid"
	"github.com/meikuraledutech/flowagent/n8n"
)

func convertCmd() *cobra.Command {
	var (
		format string
		name   string
	)

	cmd := &cobra.Command{
		Use:   "convert <file|->",
		Short: "Convert a mermaid diagram to an n8n workflow without calling n8n",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			diagram, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return convert(cmd.OutOrStdout(), diagram, name, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, yaml)")
	cmd.Flags().StringVar(&name, "name", n8n.DefaultName, "Workflow name")
	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read diagram: %w", err)
	}
	return string(data), nil
}

func convert(w io.Writer, diagram, name, format string) error {
	s, err := mermaid.Parse(diagram)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	wf := n8n.Convert(s, name)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(wf)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(wf); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
