package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/trainbin/pkg/errors"
)

// Load reads a job file, substitutes environment variables, applies defaults
// and validates the result
func Load(filePath string) (*Job, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path is chosen by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
			WithDetail("path", filePath)
	}

	job, err := Parse(data)
	if err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			e.WithDetail("path", filePath)
		}
		return nil, err
	}
	return job, nil
}

// Parse decodes a job from YAML
func Parse(data []byte) (*Job, error) {
	job := NewJob()
	content := substituteEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(content), job); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML")
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// Save writes a job to a YAML file
func Save(filePath string, job *Job) error {
	data, err := yaml.Marshal(job)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write config file").
			WithDetail("path", filePath)
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with the environment value and
// ${VAR_NAME:-fallback} with the fallback when VAR_NAME is unset or empty
func substituteEnvVars(content string) string {
	var sb strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		expr := content[start+2 : end]
		name, fallback, hasFallback := strings.Cut(expr, ":-")
		value := os.Getenv(name)
		if value == "" && hasFallback {
			value = fallback
		}

		sb.WriteString(content[:start])
		sb.WriteString(value)
		content = content[end+1:]
	}
	sb.WriteString(content)
	return sb.String()
}
