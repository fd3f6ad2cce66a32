package paper

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/kailas-cloud/scholargraph/internal/domain"
)

// Analysis is an LLM analysis of a paper in Markdown and rendered HTML.
type Analysis struct {
	Paper    domain.Paper `json:"paper"`
	Markdown string       `json:"markdown"`
	HTML     string       `json:"analysis"`
}

// Service serves paper details and analyses.
type Service struct {
	catalog  *domain.Catalog
	papers   Retriever
	analyzer Analyzer
	md       goldmark.Markdown
}

// New creates a paper service.
func New(catalog *domain.Catalog, papers Retriever, analyzer Analyzer) *Service {
	return &Service{
		catalog:  catalog,
		papers:   papers,
		analyzer: analyzer,
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Get returns a paper with all of its concepts.
// Unknown collections and missing points are domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, collection string, id domain.PointID) (domain.Paper, error) {
	if !s.catalog.Has(collection) {
		return domain.Paper{}, fmt.Errorf("collection %q: %w", collection, domain.ErrNotFound)
	}

	p, err := s.papers.Retrieve(ctx, collection, id)
	if err != nil {
		return domain.Paper{}, fmt.Errorf("retrieve paper %s/%s: %w", collection, id, err)
	}
	p.Collection = collection
	p.DisplayCollection = s.catalog.DisplayName(collection)
	return p, nil
}

// Analyze fetches a paper and renders an LLM analysis of it as HTML.
func (s *Service) Analyze(ctx context.Context, collection string, id domain.PointID) (Analysis, error) {
	p, err := s.Get(ctx, collection, id)
	if err != nil {
		return Analysis{}, err
	}

	md, err := s.analyzer.Analyze(ctx, p.Title, p.Abstract)
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze paper %s/%s: %w", collection, id, err)
	}

	var buf bytes.Buffer
	if err := s.md.Convert([]byte(md), &buf); err != nil {
		return Analysis{}, fmt.Errorf("render analysis: %w", err)
	}
	return Analysis{Paper: p, Markdown: md, HTML: buf.String()}, nil
}
