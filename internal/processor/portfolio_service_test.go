package processor

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-portfolio-go/internal/agent"
	"ai-portfolio-go/internal/editor"
	"ai-portfolio-go/internal/parser"
	"ai-portfolio-go/internal/storage"
	"ai-portfolio-go/internal/types"
)

const generatedJSON = `{
  "personalDetails": {"name": "Jane Doe", "title": "Engineer", "email": "jane@example.com", "summary": "Builds things."},
  "workExperience": [{"company": "Acme", "jobTitle": "Engineer", "startDate": "2020", "endDate": "Present", "responsibilities": ["Shipped"]}],
  "skills": [{"category": "Languages", "name": "Go", "level": 90}],
  "seo": {"title": "Jane", "description": "Jane's portfolio"}
}`

type recordingPublisher struct {
	mu     sync.Mutex
	events []*storage.PortfolioCommittedEvent
	err    error
}

func (p *recordingPublisher) PublishCommitted(_ context.Context, ev *storage.PortfolioCommittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []*storage.PortfolioCommittedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*storage.PortfolioCommittedEvent(nil), p.events...)
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(_ context.Context, r io.Reader, _ string) (string, error) {
	_, _ = io.ReadAll(r)
	return f.text, f.err
}

type fixture struct {
	svc       *PortfolioService
	model     *agent.MockChatModel
	archive   *storage.InMemoryInputArchive
	snapshots *storage.InMemorySnapshotStore
	publisher *recordingPublisher
}

func newFixture(t *testing.T, model *agent.MockChatModel, extra ...ComponentOpt) *fixture {
	t.Helper()
	gen, err := parser.NewPortfolioGenerator(model, parser.WithGeneratorLogger(zerolog.Nop()))
	require.NoError(t, err)

	f := &fixture{
		model:     model,
		archive:   storage.NewInMemoryInputArchive(),
		snapshots: storage.NewInMemorySnapshotStore(),
		publisher: &recordingPublisher{},
	}
	opts := []ComponentOpt{
		WithGenerator(gen),
		WithArchive(f.archive),
		WithSnapshots(f.snapshots),
		WithPublisher(f.publisher),
	}
	opts = append(opts, extra...)

	f.svc, err = NewPortfolioService(opts,
		WithLogger(zerolog.Nop()),
		WithEditorOptions(editor.WithSaveIndicatorDuration(50*time.Millisecond), editor.WithLogger(zerolog.Nop())),
	)
	require.NoError(t, err)
	return f
}

func TestNewPortfolioService_RequiresGenerator(t *testing.T) {
	_, err := NewPortfolioService(nil)
	assert.Error(t, err)
}

// 场景A：空输入在调用模型前被拒绝
func TestGenerate_EmptyInputRejected(t *testing.T) {
	f := newFixture(t, agent.NewMockChatModel(generatedJSON, nil))

	_, err := f.svc.Generate(context.Background(), "   ")
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, 0, f.model.Calls())
	assert.Equal(t, 0, f.archive.Len(), "空输入不应归档")

	_, _, err = f.svc.Snapshot()
	assert.ErrorIs(t, err, types.ErrRecordNotLoaded)
	assert.False(t, f.svc.Generating())
}

func TestGenerate_ReplacesRecordAndRunsHooks(t *testing.T) {
	f := newFixture(t, agent.NewMockChatModel(generatedJSON, nil))

	record, err := f.svc.Generate(context.Background(), "Jane Doe resume")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", record.PersonalDetails.Name)

	current, version, err := f.svc.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)
	assert.Equal(t, record, current)

	assert.Equal(t, 1, f.archive.Len())
	require.Len(t, f.snapshots.Snapshots(), 1)
	assert.Equal(t, SourceGenerate, f.snapshots.Snapshots()[0].Source)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, uint64(1), events[0].Version)
	assert.Equal(t, "Jane Doe", events[0].Record.PersonalDetails.Name)
	assert.NotEmpty(t, events[0].EventID)
}

func TestGenerate_FailureKeepsPriorRecord(t *testing.T) {
	model := agent.NewMockChatModelSequential([]agent.MockResponse{
		{Content: generatedJSON},
		{Error: errors.New("upstream 500")},
	})
	f := newFixture(t, model)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, "first")
	require.NoError(t, err)

	_, err = f.svc.Generate(ctx, "second")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrGeneration)
	assert.Equal(t, types.GenerationFailedMessage, err.Error())

	current, version, err := f.svc.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)
	assert.Equal(t, "Jane Doe", current.PersonalDetails.Name)
	assert.Len(t, f.publisher.Events(), 1)
}

func TestGenerate_SingleFlight(t *testing.T) {
	model := agent.NewMockChatModel(generatedJSON, nil)
	model.Block = make(chan struct{})
	f := newFixture(t, model)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Generate(context.Background(), "slow resume")
		done <- err
	}()

	require.Eventually(t, func() bool { return model.Calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, f.svc.Generating())

	_, err := f.svc.Generate(context.Background(), "impatient click")
	assert.ErrorIs(t, err, types.ErrGenerationInProgress)

	close(model.Block)
	require.NoError(t, <-done)
	assert.False(t, f.svc.Generating())
	assert.Equal(t, 1, model.Calls())
}

func TestGenerateFromPDF(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t, agent.NewMockChatModel(generatedJSON, nil), WithExtractor(&fakeExtractor{text: "Jane Doe, Engineer"}))

		record, err := f.svc.GenerateFromPDF(context.Background(), strings.NewReader("%PDF-1.4"), "cv.pdf")
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", record.PersonalDetails.Name)
		assert.Contains(t, f.model.ReceivedMessages()[0][1].Content, "Jane Doe, Engineer")
		assert.Equal(t, 1, f.archive.Len())
	})

	t.Run("no extractor", func(t *testing.T) {
		f := newFixture(t, agent.NewMockChatModel(generatedJSON, nil))
		_, err := f.svc.GenerateFromPDF(context.Background(), strings.NewReader("%PDF"), "cv.pdf")
		var vErr *types.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, MsgPDFUnsupported, vErr.Message)
	})

	t.Run("extraction fails", func(t *testing.T) {
		f := newFixture(t, agent.NewMockChatModel(generatedJSON, nil), WithExtractor(&fakeExtractor{err: parser.ErrEmptyPDFText}))
		_, err := f.svc.GenerateFromPDF(context.Background(), strings.NewReader("%PDF"), "scan.pdf")
		var vErr *types.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, MsgPDFNoText, vErr.Message)
		assert.Equal(t, 0, f.model.Calls())
		assert.False(t, f.svc.Generating())
	})
}

func TestEditorCommitThroughService(t *testing.T) {
	f := newFixture(t, agent.NewMockChatModel(generatedJSON, nil))
	ctx := context.Background()

	ed := f.svc.NewEditor()
	defer ed.Close()

	_, err := ed.Working()
	assert.ErrorIs(t, err, types.ErrRecordNotLoaded)

	_, err = f.svc.Generate(ctx, "resume")
	require.NoError(t, err)

	require.NoError(t, ed.Apply(editor.SetPersonal(editor.PersonalName, "Janet")))
	authoritative, _, err := f.svc.Current()
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", authoritative.PersonalDetails.Name, "未提交的修改不影响权威记录")

	require.NoError(t, ed.Commit(ctx))
	authoritative, version, err := f.svc.Current()
	require.NoError(t, err)
	assert.Equal(t, "Janet", authoritative.PersonalDetails.Name)
	assert.Equal(t, uint64(2), version)
	assert.True(t, ed.SavedRecently())
	assert.Eventually(t, func() bool { return !ed.SavedRecently() }, time.Second, 10*time.Millisecond)

	snaps := f.snapshots.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, SourceCommit, snaps[1].Source)
	assert.Len(t, f.publisher.Events(), 2)
}

func TestEditorResetsAfterRegeneration(t *testing.T) {
	f := newFixture(t, agent.NewMockChatModel(generatedJSON, nil))
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, "resume")
	require.NoError(t, err)

	ed := f.svc.NewEditor()
	defer ed.Close()
	require.NoError(t, ed.Apply(editor.SetPersonal(editor.PersonalName, "Unsaved")))

	_, err = f.svc.Generate(ctx, "resume again")
	require.NoError(t, err)

	working, err := ed.Working()
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", working.PersonalDetails.Name, "重新生成后应丢弃未保存的修改")
}

func TestHookFailureDoesNotFailCommit(t *testing.T) {
	f := newFixture(t, agent.NewMockChatModel(generatedJSON, nil))
	f.publisher.err = errors.New("broker down")

	_, err := f.svc.Generate(context.Background(), "resume")
	require.NoError(t, err)
	_, version, err := f.svc.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), version)
}

func TestHooksReceiveIndependentCopies(t *testing.T) {
	f := newFixture(t, agent.NewMockChatModel(generatedJSON, nil))
	f.svc.OnReplace(func(_ context.Context, ev ReplaceEvent) error {
		ev.Record.PersonalDetails.Name = "mutated by hook"
		return nil
	})

	_, err := f.svc.Generate(context.Background(), "resume")
	require.NoError(t, err)
	current, _, err := f.svc.Current()
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", current.PersonalDetails.Name)
}

func TestLoad(t *testing.T) {
	t.Run("from snapshot", func(t *testing.T) {
		f := newFixture(t, agent.NewMockChatModel(generatedJSON, nil))
		saved := types.NewEmptyPortfolio()
		saved.PersonalDetails.Name = "Restored"
		_, err := f.snapshots.SaveSnapshot(context.Background(), saved, 7, SourceCommit)
		require.NoError(t, err)

		require.NoError(t, f.svc.Load(context.Background()))
		current, version, err := f.svc.Current()
		require.NoError(t, err)
		assert.Equal(t, "Restored", current.PersonalDetails.Name)
		assert.Equal(t, uint64(1), version)
		assert.Len(t, f.snapshots.Snapshots(), 1, "加载不应再次写入快照")
		assert.Empty(t, f.publisher.Events())
	})

	t.Run("empty store", func(t *testing.T) {
		f := newFixture(t, agent.NewMockChatModel(generatedJSON, nil))
		assert.ErrorIs(t, f.svc.Load(context.Background()), types.ErrRecordNotLoaded)
	})

	t.Run("no store", func(t *testing.T) {
		gen, err := parser.NewPortfolioGenerator(agent.NewMockChatModel(generatedJSON, nil))
		require.NoError(t, err)
		svc, err := NewPortfolioService([]ComponentOpt{WithGenerator(gen)}, WithLogger(zerolog.Nop()))
		require.NoError(t, err)
		assert.ErrorIs(t, svc.Load(context.Background()), types.ErrRecordNotLoaded)
	})
}
