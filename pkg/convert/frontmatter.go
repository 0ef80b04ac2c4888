package convert

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatter renders a YAML front matter block followed by the body.
// v should be a struct with yaml tags so field order is stable.
func frontMatter(v any, body string) (string, error) {
	var b strings.Builder
	b.WriteString("---\n")
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.String(), nil
}
