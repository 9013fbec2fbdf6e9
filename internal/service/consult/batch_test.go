package consult

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/internal/service/ai"
)

func TestRunBatchIsolatesSessions(t *testing.T) {
	engine, _ := newEngine(t, &stubGateway{})

	jobs := []BatchJob{
		{Name: "chat", Mode: mode.Chat, Message: "hello"},
		{Name: "social", Workflow: WorkflowSocial, Fields: map[string]string{"industry": "bakery"}},
		{Name: "default mode", Message: "no mode given"},
		{Name: "empty", Message: ""},
	}

	results := engine.RunBatch(context.Background(), jobs, 2)
	require.Len(t, results, len(jobs))

	seen := map[string]bool{}
	for i, res := range results {
		assert.Equal(t, jobs[i], res.Job)
		assert.False(t, seen[res.SessionID], "session reused")
		seen[res.SessionID] = true
	}

	require.NoError(t, results[0].Err)
	assert.Equal(t, "re: hello", results[0].Reply)
	require.NoError(t, results[1].Err)
	assert.Contains(t, results[1].Reply, "Industry: bakery")
	require.NoError(t, results[2].Err)
	assert.ErrorIs(t, results[3].Err, ErrEmptyMessage)

	msgs := history(t, engine, results[0].SessionID)
	assert.Len(t, msgs, 2)
	assert.Len(t, engine.ListSessions(), len(jobs))
}

func TestRunBatchFailureDoesNotCancelOthers(t *testing.T) {
	gw := &stubGateway{script: []result{{err: &ai.Failure{Kind: ai.KindAuth, Err: errors.New("401")}}}}
	engine, _ := newEngine(t, gw)

	// A limit of one runs the jobs in order, so the scripted failure hits the first.
	results := engine.RunBatch(context.Background(), []BatchJob{
		{Name: "first", Message: "one"},
		{Name: "second", Message: "two"},
		{Name: "third", Message: "three"},
	}, 1)
	require.Len(t, results, 3)
	assert.ErrorIs(t, results[0].Err, ai.ErrAuth)
	assert.Equal(t, "re: two", results[1].Reply)
	assert.Equal(t, "re: three", results[2].Reply)
	assert.NoError(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

func TestParseBatchNormalizesJobs(t *testing.T) {
	doc, err := ParseBatch([]byte(`
concurrency: 2
jobs:
  - name: launch
    mode: Social-Media
    message: Plan launch for PLAN-X
  - workflow: BUDGET
    fields:
      total budget: $10,000
      goals: awareness
      sector: fitness
`))
	require.NoError(t, err)

	assert.Equal(t, 2, doc.Concurrency)
	require.Len(t, doc.Jobs, 2)
	assert.Equal(t, mode.SocialMedia, doc.Jobs[0].Mode)
	assert.Equal(t, "job-2", doc.Jobs[1].Name)
	assert.Equal(t, WorkflowBudget, doc.Jobs[1].Workflow)
	assert.Equal(t, map[string]string{
		"total_budget": "$10,000",
		"goals":        "awareness",
		"industry":     "fitness",
	}, doc.Jobs[1].Fields)
}

func TestParseBatchRejectsBadJobs(t *testing.T) {
	cases := map[string]string{
		"empty":    `jobs: []`,
		"mode":     "jobs:\n  - mode: poetry\n    message: hi\n",
		"workflow": "jobs:\n  - workflow: haiku\n",
		"message":  "jobs:\n  - mode: seo\n",
		"syntax":   "jobs: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBatch([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadBatchFileMissing(t *testing.T) {
	_, err := LoadBatchFile(t.TempDir() + "/jobs.yaml")
	assert.Error(t, err)
}
