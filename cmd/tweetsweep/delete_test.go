package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDeleteFlags(t *testing.T, args ...string) (*deleteOptions, *cobra.Command) {
	t.Helper()
	opts := &deleteOptions{}
	cmd := &cobra.Command{Use: "delete"}
	opts.addFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return opts, cmd
}

func TestDeleteCriteriaDefaultsToUnlimited(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	opts, cmd := parseDeleteFlags(t, "--older-than", "1w")

	criteria, age, err := opts.criteria(cmd, now)
	require.NoError(t, err)

	assert.Equal(t, week, age)
	assert.Equal(t, now.Add(-week).Unix(), criteria.Before)
	assert.Equal(t, int64(math.MaxInt64), criteria.MaxLikes)
	assert.Equal(t, int64(math.MaxInt64), criteria.MaxRetweets)
	assert.Empty(t, criteria.Exclude)
}

func TestDeleteCriteriaExplicitZeroLimits(t *testing.T) {
	opts, cmd := parseDeleteFlags(t, "--older-than", "30d", "--max-likes", "0", "--max-retweets", "3")

	criteria, _, err := opts.criteria(cmd, time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(0), criteria.MaxLikes)
	assert.Equal(t, int64(3), criteria.MaxRetweets)
}

func TestDeleteCriteriaExclusions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keep.txt")
	require.NoError(t, os.WriteFile(path, []byte("# pinned\n300\n\n  400  \n"), 0600))

	opts, cmd := parseDeleteFlags(t, "--older-than", "1y", "--exclude", "100,200", "--exclude-file", path)

	criteria, _, err := opts.criteria(cmd, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200", "300", "400"}, criteria.Exclude)
}

func TestDeleteCriteriaErrors(t *testing.T) {
	tests := map[string][]string{
		"bad age":            {"--older-than", "forever"},
		"negative likes":     {"--older-than", "1d", "--max-likes", "-1"},
		"negative retweets":  {"--older-than", "1d", "--max-retweets", "-2"},
		"missing exclusions": {"--older-than", "1d", "--exclude-file", "/nonexistent/keep.txt"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			opts, cmd := parseDeleteFlags(t, args...)
			_, _, err := opts.criteria(cmd, time.Now())
			assert.Error(t, err)
		})
	}
}
