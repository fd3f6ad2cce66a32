package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/scholargraph/internal/domain"
)

type fakeExpander struct {
	out string
	err error
}

func (f *fakeExpander) Expand(_ context.Context, _ string) (string, error) {
	return f.out, f.err
}

// fakeEmbedder returns vec for any text and records what it embedded.
type fakeEmbedder struct {
	mu    sync.Mutex
	vec   []float32
	err   error
	texts []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: f.vec}, nil
}

func (f *fakeEmbedder) embedded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// fixedRouter always routes to the same collections.
type fixedRouter struct {
	ready  bool
	routes []domain.Route
	topK   int
}

func (f *fixedRouter) EnsureReady(context.Context) bool { return f.ready }

func (f *fixedRouter) Rank(_ []float32, topK int) []domain.Route {
	f.topK = topK
	return f.routes
}

// passSelector keeps the first n candidates.
type passSelector struct{}

func (passSelector) Select(cands []domain.Route, n int) []domain.Route {
	if n < len(cands) {
		return cands[:n]
	}
	return cands
}

type queryCall struct {
	collection    string
	limit, offset int
}

// fakePapers serves canned results per collection.
type fakePapers struct {
	mu      sync.Mutex
	results map[string][]domain.Paper
	errs    map[string]error
	block   map[string]chan struct{}
	delay   time.Duration
	calls   []queryCall
}

func (f *fakePapers) Query(
	_ context.Context, collection string, _ []float32, limit, offset int,
) ([]domain.Paper, error) {
	f.mu.Lock()
	f.calls = append(f.calls, queryCall{collection: collection, limit: limit, offset: offset})
	block := f.block[collection]
	err := f.errs[collection]
	res := append([]domain.Paper(nil), f.results[collection]...)
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	time.Sleep(f.delay)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (f *fakePapers) recorded() []queryCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queryCall(nil), f.calls...)
}

type fakeRewarder struct {
	mu      sync.Mutex
	rewards map[string]float64
	err     error
}

func (f *fakeRewarder) ApplyReward(_ context.Context, id string, amount float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rewards == nil {
		f.rewards = map[string]float64{}
	}
	f.rewards[id] += amount
	return 1 + f.rewards[id], f.err
}

func (f *fakeRewarder) snapshot() map[string]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]float64, len(f.rewards))
	for k, v := range f.rewards {
		out[k] = v
	}
	return out
}

// goPool runs every task on its own goroutine.
type goPool struct{}

func (goPool) Submit(task func()) error {
	go task()
	return nil
}

type closedPool struct{}

func (closedPool) Submit(func()) error { return errors.New("pool closed") }

func papers(collection string, scores ...float64) []domain.Paper {
	out := make([]domain.Paper, len(scores))
	for i, s := range scores {
		p := domain.NewPaper(domain.StringID(fmt.Sprintf("%s-%d", collection, i)), "")
		p.Score = s
		out[i] = p
	}
	return out
}
