package examstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadDataset reads one dataset file without opening a writable store.
func LoadDataset(dir, certification string) (Dataset, error) {
	var dataset Dataset
	raw, err := os.ReadFile(filepath.Join(dir, certification+".json"))
	if err != nil {
		return dataset, err
	}
	if err := json.Unmarshal(raw, &dataset); err != nil {
		return dataset, fmt.Errorf("failed to decode dataset %q: %w", certification, err)
	}
	return dataset, nil
}

// LoadAll reads every dataset in a directory, sorted by certification
// name. Files that are not datasets are skipped.
func LoadAll(dir string) ([]Dataset, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var datasets []Dataset
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		dataset, err := LoadDataset(dir, name)
		if err != nil || dataset.Certification == "" {
			continue
		}
		datasets = append(datasets, dataset)
	}

	sort.Slice(datasets, func(i, j int) bool {
		return datasets[i].Certification < datasets[j].Certification
	})
	return datasets, nil
}
