package common

import (
	"fmt"
	"os"
	"path/filepath"

	"record-vesting-go/internal/models"

	"gopkg.in/yaml.v2"
)

// LoadRecordManifest reads the YAML list of records to create at deploy time
func LoadRecordManifest(recordsFile string) (*models.RecordManifest, error) {
	var recordsPath string
	if filepath.IsAbs(recordsFile) {
		recordsPath = recordsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		recordsPath = filepath.Join(wd, recordsFile)
	}

	data, err := os.ReadFile(recordsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", recordsFile, err)
	}

	var manifest models.RecordManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", recordsFile, err)
	}

	for i, rec := range manifest.Records {
		if rec.Title == "" {
			return nil, fmt.Errorf("record at index %d missing title", i)
		}
		if rec.Amount == "" {
			return nil, fmt.Errorf("record at index %d missing amount", i)
		}
		if rec.Period == "" {
			return nil, fmt.Errorf("record at index %d missing period", i)
		}
		if rec.Receiver == "" {
			return nil, fmt.Errorf("record at index %d missing receiver", i)
		}
	}

	return &manifest, nil
}
