package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// sceneSuffix marks saved scene files.
const sceneSuffix = ".scene.json"

// isScenePath reports whether path names a saved scene rather than an
// entity file.
func isScenePath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), sceneSuffix)
}

// basePath returns the output path without extension: output if given,
// otherwise input with its extension (and any .scene suffix) removed.
func basePath(output, input string) string {
	if output != "" {
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	if isScenePath(input) {
		return input[:len(input)-len(sceneSuffix)]
	}
	return strings.TrimSuffix(input, filepath.Ext(input))
}

// artifactPath returns where the artifact of format is written.
// A single requested format with an explicit output uses that path as is.
func artifactPath(output, input, format string, single bool) string {
	if single && output != "" {
		return output
	}
	if format == "json" {
		return basePath(output, input) + sceneSuffix
	}
	return basePath(output, input) + "." + format
}

// writeArtifacts writes every artifact and returns the paths in format
// order.
func writeArtifacts(artifacts map[string][]byte, input, output string) ([]string, error) {
	formats := make([]string, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	sort.Strings(formats)

	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := artifactPath(output, input, f, len(formats) == 1)
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
