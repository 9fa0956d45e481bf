package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cuemby/tracething/pkg/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var docApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply documents from a YAML file",
	Long: `Create or replace documents described in a YAML file. The file may
hold several resources separated by ---.

  apiVersion: tracething/v1
  kind: Document
  metadata:
    name: motd
  spec:
    body: hello from the zone
  ---
  apiVersion: tracething/v1
  kind: Document
  metadata:
    name: readme
  spec:
    file: ./README.md

Examples:
  tracething doc apply -f documents.yaml`,
	RunE: runApply,
}

func init() {
	docApplyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	_ = docApplyCmd.MarkFlagRequired("file")
}

// Resource is one YAML document in an apply file
type Resource struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ResourceMetadata `yaml:"metadata"`
	Spec       DocumentSpec     `yaml:"spec"`
}

type ResourceMetadata struct {
	Name string `yaml:"name"`
}

// DocumentSpec carries the body inline or names a file holding it.
// A relative file is resolved against the apply file's directory.
type DocumentSpec struct {
	Body string `yaml:"body"`
	File string `yaml:"file"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	resources, err := decodeResources(f)
	if err != nil {
		return err
	}
	if len(resources) == 0 {
		return fmt.Errorf("no resources in %s", filename)
	}

	return withStore(cmd, func(store storage.Store) error {
		for _, r := range resources {
			if err := applyDocument(cmd, store, r, filepath.Dir(filename)); err != nil {
				return err
			}
		}
		return nil
	})
}

// decodeResources reads every YAML document from r
func decodeResources(r io.Reader) ([]*Resource, error) {
	dec := yaml.NewDecoder(r)

	var resources []*Resource
	for {
		var res Resource
		err := dec.Decode(&res)
		if errors.Is(err, io.EOF) {
			return resources, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		resources = append(resources, &res)
	}
}

func applyDocument(cmd *cobra.Command, store storage.Store, r *Resource, baseDir string) error {
	if r.Kind != "Document" {
		return fmt.Errorf("unsupported resource kind: %s", r.Kind)
	}

	name := r.Metadata.Name
	if name == "" {
		return fmt.Errorf("document name is required")
	}

	body := r.Spec.Body
	if r.Spec.File != "" {
		path := r.Spec.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read body of %s: %w", name, err)
		}
		body = string(data)
	}
	if body == "" {
		return fmt.Errorf("document %s has no body", name)
	}

	_, err := store.GetDocument(name)
	exists := err == nil

	if err := store.PutDocument(&storage.Document{ID: name, Body: body}); err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}

	if exists {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Document updated: %s (%d bytes)\n", name, len(body))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Document created: %s (%d bytes)\n", name, len(body))
	}
	return nil
}
