package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchScenarioValidate(t *testing.T) {
	tests := []struct {
		name     string
		scenario SearchScenario
		wantErr  bool
	}{
		{
			name:     "valid",
			scenario: SearchScenario{Name: "docs", Path: "/tmp", Level: LevelAll, Target: TargetFiles},
		},
		{
			name:     "missing path",
			scenario: SearchScenario{Name: "docs", Level: LevelAll, Target: TargetFiles},
			wantErr:  true,
		},
		{
			name:     "bad level",
			scenario: SearchScenario{Name: "docs", Path: "/tmp", Level: "deep", Target: TargetFiles},
			wantErr:  true,
		},
		{
			name:     "bad target",
			scenario: SearchScenario{Name: "docs", Path: "/tmp", Level: LevelTop, Target: "links"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scenario.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMaxDepth(t *testing.T) {
	assert.Equal(t, 1, SearchScenario{Level: LevelTop}.MaxDepth())
	assert.Equal(t, -1, SearchScenario{Level: LevelAll}.MaxDepth())
}

func TestParseLevelAndTarget(t *testing.T) {
	l, err := ParseLevel(" TOP ")
	require.NoError(t, err)
	assert.Equal(t, LevelTop, l)

	_, err = ParseLevel("sideways")
	assert.Error(t, err)

	tg, err := ParseTarget("Both")
	require.NoError(t, err)
	assert.Equal(t, TargetBoth, tg)

	_, err = ParseTarget("")
	assert.Error(t, err)
}

func TestWireFieldNames(t *testing.T) {
	data, err := json.Marshal(SearchScenario{Name: "n", Path: "/p", Level: LevelTop, Target: TargetBoth, FileExtensions: "go,md"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"n","path":"/p","level":"top","target":"both","fileExtensions":"go,md"}`, string(data))

	data, err = json.Marshal(SearchResult{Name: "a", Path: "/a", IsDir: true, ModifiedAt: "2024-01-02 03:04:05"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a","path":"/a","is_dir":true,"size":0,"modified_at":"2024-01-02 03:04:05"}`, string(data))
}
