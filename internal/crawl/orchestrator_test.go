package crawl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hojomatch/hojocrawl/internal/crawl"
	"github.com/hojomatch/hojocrawl/internal/logger"
)

type recordedLane struct {
	name string
	runs *[]string
	err  error
}

func (l *recordedLane) Name() string { return l.name }

func (l *recordedLane) Run(context.Context) error {
	*l.runs = append(*l.runs, l.name)
	return l.err
}

func TestOrchestrator_RunsLanesInOrder(t *testing.T) {
	var order []string

	logs := newFakeLogStore()
	logs.counts["ok"] = 3
	logs.counts["304"] = 1
	pages := newFakePageStore()

	schemaCalled := false
	o := crawl.NewOrchestrator(
		10*time.Minute,
		func(context.Context) error { schemaCalled = true; return nil },
		[]crawl.Lane{
			&recordedLane{name: "rss", runs: &order},
			&recordedLane{name: "crawl", runs: &order, err: errors.New("boom")},
			&recordedLane{name: "discovery", runs: &order},
		},
		logs, pages, "t1", logger.NewNoOp(),
	)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, schemaCalled)
	// A failing lane does not stop the run.
	assert.Equal(t, []string{"rss", "crawl", "discovery"}, order)

	assert.Equal(t, "t1", summary.RunID)
	assert.Equal(t, 3, summary.Counts["ok"])
}

func TestOrchestrator_SchemaFailureAborts(t *testing.T) {
	var order []string

	o := crawl.NewOrchestrator(
		time.Minute,
		func(context.Context) error { return errors.New("connect refused") },
		[]crawl.Lane{&recordedLane{name: "rss", runs: &order}},
		newFakeLogStore(), newFakePageStore(), "t1", logger.NewNoOp(),
	)

	_, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, order)
}

func TestOrchestrator_DeadlineSkipsLanes(t *testing.T) {
	var order []string

	o := crawl.NewOrchestrator(
		time.Second, // under the 5s lane threshold from the start
		func(context.Context) error { return nil },
		[]crawl.Lane{&recordedLane{name: "rss", runs: &order}},
		newFakeLogStore(), newFakePageStore(), "t1", logger.NewNoOp(),
	)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, order)
	assert.NotNil(t, summary) // summary still emitted
}
