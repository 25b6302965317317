package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRejectsMalformedSpec(t *testing.T) {
	s := New([]Job{{Name: "broken", Spec: "not a cron spec", Run: func(ctx context.Context) {}}})
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestStartAcceptsAllCadences(t *testing.T) {
	specs := []string{"25 */2 * * *", "50 3 * * *", "10 5 * * *"}
	var jobs []Job
	for _, spec := range specs {
		jobs = append(jobs, Job{Name: spec, Spec: spec, Run: func(ctx context.Context) {}})
	}

	s := New(jobs)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
