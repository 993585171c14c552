package batch

import (
	"encoding/json"
	"os"
)

// Index is the summary written next to the extracted images.
type Index struct {
	Summary
	Results []Result `json:"results"`
}

// WriteIndex writes the results as JSON to path.
func WriteIndex(path string, results []Result) error {
	idx := Index{Summary: Summarize(results), Results: results}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
