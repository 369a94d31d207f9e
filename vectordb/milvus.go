package vectordb

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/dominicdesy/intelia-expert-sub005/common/logger"
	"github.com/dominicdesy/intelia-expert-sub005/config"
	"github.com/dominicdesy/intelia-expert-sub005/schema"
)

// metadata columns fetched alongside content; absent columns are
// skipped silently so leaner collections still work.
var metadataFields = []string{"title", "source", "breed", "species", "age_days", "phase"}

// Milvus implements Provider against a Milvus collection.
type Milvus struct {
	c            client.Client
	collection   string
	metricType   string
	vectorField  string
	contentField string
}

func NewMilvus(ctx context.Context, cfg config.VectorDBConfig) (*Milvus, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	return &Milvus{
		c:            c,
		collection:   cfg.Collection,
		metricType:   cfg.MetricType,
		vectorField:  cfg.VectorField,
		contentField: cfg.ContentField,
	}, nil
}

func (m *Milvus) Close() error { return m.c.Close() }

func (m *Milvus) outputFields() []string {
	return append([]string{m.contentField}, metadataFields...)
}

func (m *Milvus) SearchVectors(ctx context.Context, vector []float32, opts schema.SearchOptions) ([]schema.SearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("milvus: empty query vector")
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, fmt.Errorf("milvus: search params: %w", err)
	}
	expr := buildFilterExpr(opts.Filter)

	results, err := m.c.Search(ctx, m.collection, nil, expr, m.outputFields(),
		[]entity.Vector{entity.FloatVector(vector)}, m.vectorField,
		entity.MetricType(m.metricType), topK, sp)
	if err != nil {
		return nil, fmt.Errorf("milvus: search: %w", err)
	}

	var out []schema.SearchResult
	for _, rs := range results {
		for i := 0; i < rs.ResultCount; i++ {
			sr, ok := m.toResult(rs.IDs, rs.Fields, i, rs.Scores[i])
			if !ok {
				continue
			}
			if opts.Threshold > 0 && sr.Score < opts.Threshold {
				continue
			}
			out = append(out, sr)
		}
	}
	return out, nil
}

func (m *Milvus) SearchKeywords(ctx context.Context, terms []string, opts schema.SearchOptions) ([]schema.SearchResult, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}
	var clauses []string
	for _, t := range terms {
		t = escapeExpr(t)
		if t == "" {
			continue
		}
		clauses = append(clauses, fmt.Sprintf(`%s like "%%%s%%"`, m.contentField, t))
	}
	if len(clauses) == 0 {
		return nil, nil
	}
	expr := "(" + strings.Join(clauses, " or ") + ")"
	if f := buildFilterExpr(opts.Filter); f != "" {
		expr = f + " and " + expr
	}

	rs, err := m.c.Query(ctx, m.collection, nil, expr, m.outputFields(),
		client.WithLimit(int64(topK)))
	if err != nil {
		return nil, fmt.Errorf("milvus: keyword query: %w", err)
	}

	var idCol entity.Column
	fields := make(map[string]entity.Column, len(rs))
	n := 0
	for _, col := range rs {
		fields[col.Name()] = col
		if col.Len() > n {
			n = col.Len()
		}
		if col.Name() == "id" {
			idCol = col
		}
	}

	var out []schema.SearchResult
	for i := 0; i < n; i++ {
		sr, ok := m.buildResult(idCol, fields, i)
		if !ok {
			continue
		}
		// keyword matches carry no index score; rank by term coverage
		sr.Score = keywordScore(sr.Document.Content, terms)
		out = append(out, sr)
	}
	return out, nil
}

func (m *Milvus) toResult(ids entity.Column, rs client.ResultSet, idx int, raw float32) (schema.SearchResult, bool) {
	fields := make(map[string]entity.Column, len(rs))
	for _, col := range rs {
		fields[col.Name()] = col
	}
	sr, ok := m.buildResult(ids, fields, idx)
	if !ok {
		return schema.SearchResult{}, false
	}
	score, isDist := NormalizeScore(m.metricType, raw)
	sr.Score = score
	sr.HasDistance = isDist
	if isDist {
		sr.RawDistance = float64(raw)
	}
	return sr, true
}

func (m *Milvus) buildResult(ids entity.Column, fields map[string]entity.Column, idx int) (schema.SearchResult, bool) {
	contentCol, ok := fields[m.contentField]
	if !ok {
		return schema.SearchResult{}, false
	}
	content, err := contentCol.GetAsString(idx)
	if err != nil || content == "" {
		return schema.SearchResult{}, false
	}

	doc := schema.Document{Content: content, Metadata: make(map[string]string, len(metadataFields))}
	if ids != nil {
		if id, err := ids.GetAsString(idx); err == nil {
			doc.ID = id
		}
	}
	for _, name := range metadataFields {
		col, ok := fields[name]
		if !ok {
			continue
		}
		if v, err := col.GetAsString(idx); err == nil && v != "" {
			doc.Metadata[name] = v
		}
	}
	return schema.SearchResult{Document: doc}, true
}

// buildFilterExpr turns the metadata filter into a Milvus boolean
// expression. Keys are trusted (fixed entity names); values are escaped.
func buildFilterExpr(filter map[string]string) string {
	if len(filter) == 0 {
		return ""
	}
	clauses := make([]string, 0, len(filter))
	for _, key := range []string{"breed", "species", "age_days", "phase", "sex"} {
		v, ok := filter[key]
		if !ok {
			continue
		}
		clauses = append(clauses, fmt.Sprintf(`%s == "%s"`, key, escapeExpr(v)))
	}
	return strings.Join(clauses, " and ")
}

func escapeExpr(v string) string {
	v = strings.ReplaceAll(v, `\`, ``)
	v = strings.ReplaceAll(v, `"`, ``)
	v = strings.ReplaceAll(v, `%`, ``)
	return strings.TrimSpace(v)
}

func keywordScore(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lc := strings.ToLower(content)
	hits := 0
	for _, t := range terms {
		if strings.Contains(lc, strings.ToLower(t)) {
			hits++
		}
	}
	s := float64(hits) / float64(len(terms))
	if s > 0 {
		logger.Debugf("vectordb: keyword match %d/%d", hits, len(terms))
	}
	return s
}
