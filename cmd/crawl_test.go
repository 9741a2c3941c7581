package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/archway-labs/scout-cli/internal/model"
)

func TestCrawlBatch_MissingFile(t *testing.T) {
	err := crawlBatch(context.Background(), nil, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestCrawlBatch_EmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("[]\n"), 0644))

	err := crawlBatch(context.Background(), nil, path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no institutions")
}

func TestBatchFileDecoding(t *testing.T) {
	yamlBody := `
- institution_name: Example University
  department_hint: Computer Science
  limit: 5
- list_url: https://other.edu/people
`
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var reqs []model.InstitutionCrawlRequest
	require.NoError(t, yaml.Unmarshal(data, &reqs))
	require.Len(t, reqs, 2)
	assert.Equal(t, "Example University", reqs[0].InstitutionName)
	assert.Equal(t, "Computer Science", reqs[0].DepartmentHint)
	assert.Equal(t, 5, reqs[0].Limit)
	assert.Equal(t, "https://other.edu/people", reqs[1].ListURL)
}
