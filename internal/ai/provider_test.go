package ai_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/repoinsight/internal/ai"
	"github.com/xxxsen/repoinsight/internal/model"
	"github.com/xxxsen/repoinsight/internal/pkg/errs"
)

type fakeProvider struct {
	name    string
	answer  string
	vector  []float32
	err     error
	lastMdl string
	msgs    []ai.Message
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Generate(ctx context.Context, mdl string, msgs []ai.Message) (string, error) {
	p.lastMdl = mdl
	p.msgs = msgs
	if p.err != nil {
		return "", p.err
	}
	return p.answer, nil
}

func (p *fakeProvider) Embed(ctx context.Context, mdl string, text string) ([]float32, error) {
	p.lastMdl = mdl
	if p.err != nil {
		return nil, p.err
	}
	return p.vector, nil
}

func TestBuildMessages(t *testing.T) {
	history := []model.SessionMessage{
		{Role: model.RoleUser, Content: "q1"},
		{Role: model.RoleAssistant, Content: "a1"},
	}
	msgs := ai.BuildMessages("system text", "fragment one fragment two", history)
	require.Len(t, msgs, 3)
	require.Equal(t, ai.RoleSystem, msgs[0].Role)
	require.Contains(t, msgs[0].Content, "system text")
	require.Contains(t, msgs[0].Content, "Context:\nfragment one fragment two")
	require.Equal(t, ai.RoleUser, msgs[1].Role)
	require.Equal(t, ai.RoleAssistant, msgs[2].Role)
}

func TestBuildMessagesWithoutContext(t *testing.T) {
	msgs := ai.BuildMessages("system text", "", nil)
	require.Len(t, msgs, 1)
	require.Equal(t, "system text", msgs[0].Content)
}

func TestGeneratorWrapsProviderErrors(t *testing.T) {
	p := &fakeProvider{name: "fake", err: fmt.Errorf("boom")}
	gen := ai.NewGenerator(p, "m1")
	_, err := gen.Generate(context.Background(), "sys", "", nil)
	require.ErrorIs(t, err, errs.ErrProvider)
	require.Equal(t, "m1", p.lastMdl)
}

func TestEmbedderPassesModel(t *testing.T) {
	p := &fakeProvider{name: "fake", vector: []float32{1, 2}}
	emb := ai.NewEmbedder(p, "m-embed")
	vec, err := emb.Embed(context.Background(), "text")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2}, vec)
	require.Equal(t, "m-embed", p.lastMdl)
	require.Equal(t, "m-embed", emb.ModelName())
}

func TestNewProviderUnknownName(t *testing.T) {
	_, err := ai.NewProvider("no-such-vendor", nil)
	require.Error(t, err)

	_, err = ai.NewProvider("", nil)
	require.Error(t, err)
}

func TestGroupGeneratorFailover(t *testing.T) {
	bad := &fakeProvider{name: "bad", err: fmt.Errorf("down")}
	good := &fakeProvider{name: "good", answer: "hello"}
	gen := ai.NewGroupGenerator([]ai.GeneratorEntry{
		{Name: "bad", Generator: ai.NewGenerator(bad, "m1")},
		{Name: "good", Generator: ai.NewGenerator(good, "m2")},
	})

	res, err := gen.Generate(context.Background(), "sys", "", nil)
	require.NoError(t, err)
	require.Equal(t, "hello", res)
}

func TestGroupGeneratorAllFail(t *testing.T) {
	bad := &fakeProvider{name: "bad", err: fmt.Errorf("down")}
	gen := ai.NewGroupGenerator([]ai.GeneratorEntry{
		{Name: "b1", Generator: ai.NewGenerator(bad, "m1")},
		{Name: "b2", Generator: ai.NewGenerator(bad, "m2")},
	})

	_, err := gen.Generate(context.Background(), "sys", "", nil)
	require.ErrorIs(t, err, errs.ErrProvider)
}

func TestGroupEmbedderFailover(t *testing.T) {
	bad := &fakeProvider{name: "bad", err: fmt.Errorf("down")}
	good := &fakeProvider{name: "good", vector: []float32{1}}
	emb := ai.NewGroupEmbedder([]ai.EmbedderEntry{
		{Name: "bad", Embedder: ai.NewEmbedder(bad, "m1")},
		{Name: "good", Embedder: ai.NewEmbedder(good, "m2")},
	})

	vec, err := emb.Embed(context.Background(), "text")
	require.NoError(t, err)
	require.Equal(t, []float32{1}, vec)
	require.Equal(t, "m1", emb.ModelName())
}

func TestGroupSingleEntryIsUnwrapped(t *testing.T) {
	good := &fakeProvider{name: "good", answer: "hello"}
	inner := ai.NewGenerator(good, "m1")
	require.Equal(t, inner, ai.NewGroupGenerator([]ai.GeneratorEntry{{Name: "good", Generator: inner}}))
	require.Nil(t, ai.NewGroupGenerator(nil))
}
