package planner

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/journey-mapper/internal/ai"
	"github.com/ashureev/journey-mapper/internal/domain"
	"github.com/ashureev/journey-mapper/internal/reorder"
	"github.com/ashureev/journey-mapper/internal/store"
)

type fakeAssistant struct {
	mu       sync.Mutex
	journey  domain.JourneyMap
	items    []domain.JourneyItem
	result   domain.OptimizationResult
	err      error
	block    chan struct{}
	started  chan struct{}
	calls    int
	personas []*domain.Persona
}

func (f *fakeAssistant) wait(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	block, started := f.block, f.started
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeAssistant) GenerateJourney(ctx context.Context, _ string, _ domain.BusinessProfile, persona *domain.Persona, current domain.JourneyMap) (domain.JourneyMap, error) {
	f.mu.Lock()
	f.personas = append(f.personas, persona)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return current, err
	}
	return f.journey, nil
}

func (f *fakeAssistant) SuggestItems(ctx context.Context, _ string, _ domain.BusinessProfile, _ domain.JourneyStage) ([]domain.JourneyItem, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.items, nil
}

func (f *fakeAssistant) Optimize(ctx context.Context, _ string, _ domain.BusinessProfile, _ domain.JourneyMap) (domain.OptimizationResult, error) {
	if err := f.wait(ctx); err != nil {
		return domain.OptimizationResult{}, err
	}
	return f.result, nil
}

func newPlanner(t *testing.T, assistant Assistant) (*Planner, *store.MemoryStore) {
	t.Helper()
	repo := store.NewMemory()
	p := New(repo, assistant, WithClock(func() time.Time {
		return time.Date(2025, 3, 7, 23, 30, 0, 0, time.UTC)
	}))
	require.NoError(t, p.Load(context.Background()))
	return p, repo
}

func readyPlanner(t *testing.T, assistant Assistant) (*Planner, *store.MemoryStore) {
	t.Helper()
	p, repo := newPlanner(t, assistant)
	ctx := context.Background()
	require.NoError(t, p.SetCredential(ctx, "key"))
	name, offer := "Acme", "Coaching"
	_, err := p.UpdateBusiness(ctx, BusinessPatch{Name: &name, Offer: &offer})
	require.NoError(t, err)
	return p, repo
}

func generatedJourney(t *testing.T) domain.JourneyMap {
	t.Helper()
	m, err := domain.NewJourneyMap().ReplaceItems("awareness", []domain.JourneyItem{
		{ID: "a1", Content: "Ads", Type: domain.ItemTouchpoint},
		{ID: "a2", Content: "Curious", Type: domain.ItemEmotion},
	})
	require.NoError(t, err)
	return m
}

func TestNewPlannerDefaults(t *testing.T) {
	p, _ := newPlanner(t, &fakeAssistant{})
	st := p.Snapshot()

	assert.False(t, st.HasCredential)
	assert.Empty(t, st.Personas)
	assert.Nil(t, st.ActivePersonaID)
	assert.Nil(t, st.Optimization)
	assert.Equal(t, 8, st.JourneyMap.Len())
	assert.True(t, st.UI.SidebarOpen)
	assert.False(t, st.UI.PanelOpen)
}

func TestLoadRestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	p, repo := readyPlanner(t, &fakeAssistant{})
	_, err := p.AddPersona(ctx, domain.Persona{Name: "Sam"})
	require.NoError(t, err)

	restored := New(repo, &fakeAssistant{})
	require.NoError(t, restored.Load(ctx))
	st := restored.Snapshot()

	assert.True(t, st.HasCredential)
	assert.Equal(t, "Acme", st.Business.Name)
	require.Len(t, st.Personas, 1)
	assert.Equal(t, "Sam", st.Personas[0].Name)
	assert.Nil(t, st.ActivePersonaID, "active persona is not persisted")
}

func TestGenerateJourneyRequiresCredential(t *testing.T) {
	fake := &fakeAssistant{}
	p, _ := newPlanner(t, fake)

	err := p.GenerateJourney(context.Background())
	assert.ErrorIs(t, err, ai.ErrMissingCredential)
	assert.Zero(t, fake.calls)
}

func TestGenerateJourneyRequiresNameAndOffer(t *testing.T) {
	fake := &fakeAssistant{}
	p, _ := newPlanner(t, fake)
	require.NoError(t, p.SetCredential(context.Background(), "key"))

	err := p.GenerateJourney(context.Background())
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Zero(t, fake.calls)
}

func TestGenerateJourneyReplacesAndPersists(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAssistant{journey: generatedJourney(t)}
	p, repo := readyPlanner(t, fake)
	persona, err := p.AddPersona(ctx, domain.Persona{Name: "Sam"})
	require.NoError(t, err)
	before := repo.Saves()

	require.NoError(t, p.GenerateJourney(ctx))

	st := p.Snapshot()
	assert.Equal(t, 2, st.JourneyMap.ItemCount())
	assert.False(t, st.UI.Generating)
	assert.Equal(t, before+1, repo.Saves())
	require.Len(t, fake.personas, 1)
	require.NotNil(t, fake.personas[0])
	assert.Equal(t, persona.ID, fake.personas[0].ID)
}

func TestGenerateJourneyFailureKeepsJourney(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAssistant{err: ai.ErrMalformedResponse}
	p, repo := readyPlanner(t, fake)
	before := p.Snapshot().JourneyMap
	saves := repo.Saves()

	err := p.GenerateJourney(ctx)
	assert.ErrorIs(t, err, ai.ErrMalformedResponse)
	assert.Equal(t, before, p.Snapshot().JourneyMap)
	assert.Equal(t, saves, repo.Saves())
	assert.False(t, p.Snapshot().UI.Generating)
}

func TestGenerateJourneyRejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAssistant{
		journey: generatedJourney(t),
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	p, _ := readyPlanner(t, fake)

	done := make(chan error, 1)
	go func() { done <- p.GenerateJourney(ctx) }()
	<-fake.started

	assert.True(t, p.Snapshot().UI.Generating)
	assert.ErrorIs(t, p.GenerateJourney(ctx), ErrInFlight)

	close(fake.block)
	require.NoError(t, <-done)
	assert.False(t, p.Snapshot().UI.Generating)
	assert.Equal(t, 1, fake.calls)
}

func TestSuggestStageItemsAppends(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAssistant{items: []domain.JourneyItem{
		{ID: "s1", Content: "Webinar", Type: domain.ItemTouchpoint},
		{ID: "s2", Content: "Quiz", Type: domain.ItemTouchpoint},
	}}
	p, repo := readyPlanner(t, fake)
	saves := repo.Saves()

	items, err := p.SuggestStageItems(ctx, "interest")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	stage, ok := p.Snapshot().JourneyMap.Stage("interest")
	require.True(t, ok)
	assert.Equal(t, "Webinar", stage.Items[0].Content)
	assert.Equal(t, saves+1, repo.Saves())
}

func TestSuggestStageItemsPreservesConcurrentMove(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAssistant{
		items:   []domain.JourneyItem{{ID: "s1", Content: "Webinar", Type: domain.ItemTouchpoint}},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	p, _ := readyPlanner(t, fake)
	p.journey = generatedJourney(t)

	done := make(chan error, 1)
	go func() {
		_, err := p.SuggestStageItems(ctx, "interest")
		done <- err
	}()
	<-fake.started

	assert.Equal(t, []string{"interest"}, p.Snapshot().UI.Suggesting)
	_, err := p.SuggestStageItems(ctx, "interest")
	assert.ErrorIs(t, err, ErrInFlight)

	require.NoError(t, p.MoveItem(ctx, reorder.DropResult{
		DraggableID: "a1",
		Source:      domain.Location{StageID: "awareness", Index: 0},
		Destination: &domain.Location{StageID: "interest", Index: 0},
	}))
	close(fake.block)
	require.NoError(t, <-done)

	stage, _ := p.Snapshot().JourneyMap.Stage("interest")
	require.Len(t, stage.Items, 2)
	assert.Equal(t, "a1", stage.Items[0].ID)
	assert.Equal(t, "s1", stage.Items[1].ID)
	assert.Empty(t, p.Snapshot().UI.Suggesting)
}

func TestSuggestStageItemsUnknownStage(t *testing.T) {
	p, _ := readyPlanner(t, &fakeAssistant{})
	_, err := p.SuggestStageItems(context.Background(), "loyalty")
	assert.ErrorIs(t, err, domain.ErrStageNotFound)
}

func TestSuggestStageItemsEmptyResultLeavesJourney(t *testing.T) {
	p, repo := readyPlanner(t, &fakeAssistant{items: []domain.JourneyItem{}})
	saves := repo.Saves()

	items, err := p.SuggestStageItems(context.Background(), "interest")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, saves, repo.Saves())
}

func TestOptimizeStoresResultWithoutPersisting(t *testing.T) {
	want := domain.OptimizationResult{
		Bottlenecks: []string{"slow onboarding"},
		QuickWins:   []string{"welcome email"},
		Automations: []string{},
		Agents:      []string{},
		ContentGaps: []string{},
	}
	p, repo := readyPlanner(t, &fakeAssistant{result: want})
	saves := repo.Saves()

	got, err := p.Optimize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	st := p.Snapshot()
	require.NotNil(t, st.Optimization)
	assert.Equal(t, want, *st.Optimization)
	assert.True(t, st.UI.PanelOpen)
	assert.False(t, st.UI.Optimizing)
	assert.Equal(t, saves, repo.Saves())
}

func TestOptimizeFailureKeepsPreviousResult(t *testing.T) {
	fake := &fakeAssistant{result: domain.OptimizationResult{Bottlenecks: []string{"x"}}}
	p, _ := readyPlanner(t, fake)
	_, err := p.Optimize(context.Background())
	require.NoError(t, err)

	fake.err = ai.ErrTransport
	_, err = p.Optimize(context.Background())
	assert.ErrorIs(t, err, ai.ErrTransport)
	require.NotNil(t, p.Snapshot().Optimization)
	assert.Equal(t, []string{"x"}, p.Snapshot().Optimization.Bottlenecks)
}

func TestPersonaLifecycle(t *testing.T) {
	ctx := context.Background()
	p, _ := newPlanner(t, &fakeAssistant{})

	_, err := p.AddPersona(ctx, domain.Persona{Name: "  "})
	assert.ErrorIs(t, err, ErrPrecondition)

	first, err := p.AddPersona(ctx, domain.Persona{Name: "Sam"})
	require.NoError(t, err)
	second, err := p.AddPersona(ctx, domain.Persona{Name: "Kim"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	require.NotNil(t, p.Snapshot().ActivePersonaID)
	assert.Equal(t, second.ID, *p.Snapshot().ActivePersonaID)

	require.NoError(t, p.SelectPersona(first.ID))
	assert.ErrorIs(t, p.SelectPersona("nope"), ErrPersonaNotFound)

	require.NoError(t, p.DeletePersona(ctx, first.ID))
	assert.Nil(t, p.Snapshot().ActivePersonaID)
	assert.Len(t, p.Snapshot().Personas, 1)
	assert.ErrorIs(t, p.DeletePersona(ctx, first.ID), ErrPersonaNotFound)
}

func TestUpdateBusinessGoalsText(t *testing.T) {
	p, _ := newPlanner(t, &fakeAssistant{})
	text := "grow, ,retain "

	b, err := p.UpdateBusiness(context.Background(), BusinessPatch{GoalsText: &text})
	require.NoError(t, err)
	assert.Equal(t, []string{"grow", "retain"}, b.Goals)
}

func TestMoveItemNoopSkipsPersistence(t *testing.T) {
	ctx := context.Background()
	p, repo := newPlanner(t, &fakeAssistant{})
	saves := repo.Saves()

	require.NoError(t, p.MoveItem(ctx, reorder.DropResult{DraggableID: "x"}))
	assert.Equal(t, saves, repo.Saves())
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _ := readyPlanner(t, &fakeAssistant{journey: generatedJourney(t)})
	_, err := src.AddPersona(ctx, domain.Persona{Name: "Sam", PainPoints: "time"})
	require.NoError(t, err)
	require.NoError(t, src.GenerateJourney(ctx))

	name, data, err := src.Export()
	require.NoError(t, err)
	assert.Equal(t, "journey_map_2025-03-07.json", name)
	assert.Contains(t, string(data), "\n  \"businessData\"")

	dst, _ := newPlanner(t, &fakeAssistant{})
	res, err := dst.Import(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Business: true, Personas: true, Journey: true}, res)

	assert.Equal(t, src.Document(), dst.Document())
}

func TestImportJourneyOnlyKeepsOtherParts(t *testing.T) {
	ctx := context.Background()
	p, _ := readyPlanner(t, &fakeAssistant{})
	persona, err := p.AddPersona(ctx, domain.Persona{Name: "Sam"})
	require.NoError(t, err)

	journey := generatedJourney(t)
	data, err := json.Marshal(map[string]any{"journeyMap": journey})
	require.NoError(t, err)

	res, err := p.Import(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Journey: true}, res)

	st := p.Snapshot()
	assert.Equal(t, "Acme", st.Business.Name)
	require.NotNil(t, st.ActivePersonaID)
	assert.Equal(t, persona.ID, *st.ActivePersonaID)
	assert.Equal(t, journey, st.JourneyMap)
}

func TestImportClearsMissingActivePersona(t *testing.T) {
	ctx := context.Background()
	p, _ := newPlanner(t, &fakeAssistant{})
	_, err := p.AddPersona(ctx, domain.Persona{Name: "Sam"})
	require.NoError(t, err)

	_, err = p.Import(ctx, []byte(`{"personas":[{"id":"p2","name":"Kim"}]}`))
	require.NoError(t, err)
	assert.Nil(t, p.Snapshot().ActivePersonaID)
}

func TestImportFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	p, repo := readyPlanner(t, &fakeAssistant{})
	before := p.Document()
	saves := repo.Saves()

	cases := map[string]string{
		"not json":        `{`,
		"bad journey":     `{"businessData":{"name":"Other"},"journeyMap":{"stages":{},"stageOrder":["a"]}}`,
		"bad item type":   `{"journeyMap":{"stages":{"a":{"id":"a","title":"A","items":[{"id":"1","content":"x","type":"mood"}]}},"stageOrder":["a"]}}`,
		"wrong root type": `[]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Import(ctx, []byte(raw))
			assert.ErrorIs(t, err, ErrInvalidImport)
		})
	}
	assert.Equal(t, before, p.Document())
	assert.Equal(t, saves, repo.Saves())
}

func TestPersistFailureIsReported(t *testing.T) {
	p := New(failingRepo{}, &fakeAssistant{})
	err := p.SetCredential(context.Background(), "key")
	assert.Error(t, err)
}

type failingRepo struct{}

func (failingRepo) Load(context.Context) (*store.State, error) { return &store.State{}, nil }
func (failingRepo) Save(context.Context, *store.State) error {
	return errors.New("disk full")
}
func (failingRepo) Ping(context.Context) error { return nil }
func (failingRepo) Close() error              { return nil }

type staticModel struct{ text string }

func (m staticModel) Generate(context.Context, string, ai.Request) (string, error) {
	return m.text, nil
}

func TestImportRejectsJourneyWithoutStages(t *testing.T) {
	ctx := context.Background()
	svc := ai.NewService(staticModel{text: `[{"stage":"Awareness","touchpoints":["Blog post"]}]`}, nil)
	p, _ := readyPlanner(t, svc)

	for _, raw := range []string{`{"journeyMap":{}}`, `{"journeyMap":{"stages":{},"stageOrder":[]}}`} {
		_, err := p.Import(ctx, []byte(raw))
		assert.ErrorIs(t, err, ErrInvalidImport, raw)
	}
	assert.Equal(t, 8, p.Snapshot().JourneyMap.Len())

	require.NoError(t, p.GenerateJourney(ctx))
	stage, ok := p.Snapshot().JourneyMap.Stage("awareness")
	require.True(t, ok)
	require.Len(t, stage.Items, 1)
	assert.Equal(t, "Blog post", stage.Items[0].Content)
	assert.Equal(t, domain.ItemTouchpoint, stage.Items[0].Type)
}

func TestImportRejectsBadPersonaIDs(t *testing.T) {
	ctx := context.Background()
	p, repo := newPlanner(t, &fakeAssistant{})
	saves := repo.Saves()

	cases := map[string]string{
		"duplicate id": `{"personas":[{"id":"p1","name":"Sam"},{"id":"p1","name":"Kim"}]}`,
		"empty id":     `{"personas":[{"id":"","name":"Sam"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Import(ctx, []byte(raw))
			assert.ErrorIs(t, err, ErrInvalidImport)
		})
	}
	assert.Empty(t, p.Snapshot().Personas)
	assert.Equal(t, saves, repo.Saves())
}

// deadlineRepo fails saves whose context is already done.
type deadlineRepo struct{ *store.MemoryStore }

func (r deadlineRepo) Save(ctx context.Context, s *store.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.MemoryStore.Save(ctx, s)
}

// expiringAssistant cancels the caller's context before returning, as when
// the AI call finishes right at its deadline.
type expiringAssistant struct {
	fakeAssistant
	cancel context.CancelFunc
}

func (e *expiringAssistant) GenerateJourney(ctx context.Context, key string, b domain.BusinessProfile, persona *domain.Persona, current domain.JourneyMap) (domain.JourneyMap, error) {
	m, err := e.fakeAssistant.GenerateJourney(ctx, key, b, persona, current)
	e.cancel()
	return m, err
}

func (e *expiringAssistant) SuggestItems(ctx context.Context, key string, b domain.BusinessProfile, stage domain.JourneyStage) ([]domain.JourneyItem, error) {
	items, err := e.fakeAssistant.SuggestItems(ctx, key, b, stage)
	e.cancel()
	return items, err
}

func TestAIResultSavedAfterDeadline(t *testing.T) {
	repo := deadlineRepo{store.NewMemory()}
	assistant := &expiringAssistant{fakeAssistant: fakeAssistant{
		journey: generatedJourney(t),
		items:   []domain.JourneyItem{{ID: "s1", Content: "Webinar", Type: domain.ItemTouchpoint}},
	}}
	p := New(repo, assistant)
	setup := context.Background()
	require.NoError(t, p.SetCredential(setup, "key"))
	name, offer := "Acme", "Coaching"
	_, err := p.UpdateBusiness(setup, BusinessPatch{Name: &name, Offer: &offer})
	require.NoError(t, err)
	saves := repo.Saves()

	ctx, cancel := context.WithCancel(context.Background())
	assistant.cancel = cancel
	require.NoError(t, p.GenerateJourney(ctx))

	ctx, cancel = context.WithCancel(context.Background())
	assistant.cancel = cancel
	_, err = p.SuggestStageItems(ctx, "interest")
	require.NoError(t, err)

	assert.Equal(t, saves+2, repo.Saves())
	stored, err := repo.Load(setup)
	require.NoError(t, err)
	require.NotNil(t, stored.Journey)
	assert.Equal(t, 3, stored.Journey.ItemCount())
}
