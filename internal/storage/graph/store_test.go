package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/helper-matcher/internal/staffing"
	"github.com/spigell/helper-matcher/internal/storage"
)

type executedQuery struct {
	Query  string
	Params map[string]any
}

// memoryClient records queries and replays canned read results.
type memoryClient struct {
	mu          sync.Mutex
	writes      []executedQuery
	reads       []executedQuery
	readResults []Result
	err         error
}

func (m *memoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Result{}, m.err
	}
	m.writes = append(m.writes, executedQuery{Query: cypher, Params: params})
	return Result{}, nil
}

func (m *memoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Result{}, m.err
	}
	m.reads = append(m.reads, executedQuery{Query: cypher, Params: params})
	if len(m.readResults) == 0 {
		return Result{}, nil
	}
	res := m.readResults[0]
	m.readResults = m.readResults[1:]
	return res, nil
}

func (m *memoryClient) Close(context.Context) error { return nil }

func TestPutCandidateLinksSkills(t *testing.T) {
	t.Parallel()

	client := &memoryClient{}
	store := New(client, nil)

	err := store.Candidates().Put(context.Background(), &staffing.Candidate{
		ID:         "c-1",
		HelperType: "domestic",
		Experience: map[staffing.Category]*staffing.SkillExperience{
			staffing.CategoryCooking:  {HasExperience: true, Years: 3, Level: staffing.CompetencyExpert},
			staffing.CategoryCleaning: {HasExperience: false},
		},
	})
	require.NoError(t, err)

	require.Len(t, client.writes, 1)
	params := client.writes[0].Params
	assert.Equal(t, "c-1", params["id"])
	assert.Contains(t, params["document"], `"helper_type":"domestic"`)
	assert.Equal(t, []map[string]any{{"name": "cooking", "years": 3.0, "level": "expert"}}, params["skills"])
}

func TestListByTypeDecodesAndSkipsBroken(t *testing.T) {
	t.Parallel()

	client := &memoryClient{readResults: []Result{{Records: []Record{
		{"id": "c-1", "document": `{"id":"c-1","helper_type":"domestic","age":"29"}`},
		{"id": "c-2", "document": `not json`},
		{"id": "c-3", "document": `{"helper_type":"domestic","age":"unknown"}`},
	}}}}

	got, err := New(client, nil).Candidates().ListByType(context.Background(), "domestic", 5)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 29, got[0].Age)
	assert.Equal(t, "c-3", got[1].ID)
	assert.Zero(t, got[1].Age)

	require.Len(t, client.reads, 1)
	assert.Contains(t, client.reads[0].Query, "LIMIT $limit")
	assert.Equal(t, 5, client.reads[0].Params["limit"])
}

func TestGetByIDNotFound(t *testing.T) {
	t.Parallel()

	store := New(&memoryClient{}, nil)
	_, err := store.Candidates().GetByID(context.Background(), "c-404")
	assert.ErrorIs(t, err, staffing.ErrNotFound)
	_, err = store.Jobs().GetByID(context.Background(), "j-404")
	assert.ErrorIs(t, err, staffing.ErrNotFound)
}

func TestJobRoundTripThroughDocument(t *testing.T) {
	t.Parallel()

	job := &staffing.Job{
		ID:         "j-1",
		EmployerID: "e-1",
		HelperType: "domestic",
		Requirements: map[staffing.Category]*staffing.Requirement{
			staffing.CategoryInfantcare: {Required: true, Importance: staffing.ImportanceCritical, Ages: []int{1}},
		},
	}
	client := &memoryClient{}
	store := New(client, nil)
	require.NoError(t, store.Jobs().Put(context.Background(), job))
	assert.Equal(t, []string{"infantcare"}, client.writes[0].Params["required"])

	client.readResults = []Result{{Records: []Record{{"id": "j-1", "document": client.writes[0].Params["document"]}}}}
	got, err := store.Jobs().GetByID(context.Background(), "j-1")
	require.NoError(t, err)
	assert.Equal(t, "e-1", got.EmployerID)
	assert.Equal(t, []staffing.Category{staffing.CategoryInfantcare}, got.RequiredCategories())
}

func TestClientErrorsArePersistenceFailures(t *testing.T) {
	t.Parallel()

	store := New(&memoryClient{err: errors.New("bolt: connection refused")}, nil)
	_, err := store.Candidates().ListByType(context.Background(), "domestic", 0)
	assert.ErrorIs(t, err, storage.ErrPersistence)
	err = store.Jobs().Put(context.Background(), &staffing.Job{ID: "j-1"})
	assert.ErrorIs(t, err, storage.ErrPersistence)
}
