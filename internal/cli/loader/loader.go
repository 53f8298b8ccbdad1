package loader

import (
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// KindPromptScript is the only script kind understood by send -f
const KindPromptScript = "PromptScript"

// ScriptFile is a list of chat messages loaded from a YAML file
type ScriptFile struct {
	// Kind must be "PromptScript"
	Kind string `json:"kind"`
	// Metadata is informational only
	Metadata ScriptMetadata `json:"metadata,omitempty"`
	Spec     ScriptSpec     `json:"spec"`
}

// ScriptMetadata names the script
type ScriptMetadata struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// ScriptSpec holds the messages, sent in order
type ScriptSpec struct {
	Messages []string `json:"messages"`
	// StopOnError stops at the first failed message (default true)
	StopOnError *bool `json:"stopOnError,omitempty"`
}

// LoadFromFile loads a prompt script from a YAML file
func LoadFromFile(path string) (*ScriptFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a prompt script
func Parse(data []byte) (*ScriptFile, error) {
	var script ScriptFile
	if err := yaml.UnmarshalStrict(data, &script); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	if script.Kind == "" {
		return nil, fmt.Errorf("'kind' field is required")
	}
	if script.Kind != KindPromptScript {
		return nil, fmt.Errorf("invalid kind '%s', must be '%s'", script.Kind, KindPromptScript)
	}

	if len(script.Spec.Messages) == 0 {
		return nil, fmt.Errorf("spec.messages is required and must not be empty")
	}
	for i, m := range script.Spec.Messages {
		if strings.TrimSpace(m) == "" {
			return nil, fmt.Errorf("spec.messages[%d] is empty", i)
		}
	}

	return &script, nil
}

// StopOnError reports whether a failed message ends the run
func (s *ScriptFile) StopOnError() bool {
	return s.Spec.StopOnError == nil || *s.Spec.StopOnError
}
