package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"legiseye/internal/model"
)

const analysisSystemPrompt = `You are a legal document analyst. Read the document and reply with a single JSON object and nothing else, using exactly this shape:
{
  "summary": "plain-language summary in 3-6 sentences",
  "document_type": "e.g. Lease Agreement, NDA, Employment Contract",
  "risk_score": 0-100 integer, higher means riskier for the reader,
  "key_points": ["short statements of the most important obligations, rights and dates"],
  "risk_factors": [{"title": "...", "description": "why it matters", "severity": "low|medium|high|critical", "clause": "quoted or referenced clause"}],
  "glossary_terms": [{"term": "legal term used in the document", "definition": "plain-language definition"}]
}
Base every statement on the document text. Do not invent clauses.`

type rawAnalysis struct {
	Summary       string               `json:"summary"`
	DocumentType  string               `json:"document_type"`
	RiskScore     json.Number          `json:"risk_score"`
	KeyPoints     []string             `json:"key_points"`
	RiskFactors   []model.RiskFactor   `json:"risk_factors"`
	GlossaryTerms []model.GlossaryTerm `json:"glossary_terms"`
}

// parseAnalysis extracts the JSON object from an LLM reply, tolerating code
// fences and surrounding prose, and normalizes it.
func parseAnalysis(reply string) (*model.DocumentAnalysis, error) {
	obj := extractJSONObject(reply)
	if obj == "" {
		return nil, ErrAnalysisMalformed
	}
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisMalformed, err)
	}
	summary := strings.TrimSpace(raw.Summary)
	if summary == "" {
		return nil, fmt.Errorf("%w: empty summary", ErrAnalysisMalformed)
	}

	return &model.DocumentAnalysis{
		Summary:       summary,
		DocumentType:  strings.TrimSpace(raw.DocumentType),
		RiskScore:     clampScore(raw.RiskScore),
		KeyPoints:     normalizeKeyPoints(raw.KeyPoints),
		RiskFactors:   normalizeRiskFactors(raw.RiskFactors),
		GlossaryTerms: normalizeGlossary(raw.GlossaryTerms),
	}, nil
}

func extractJSONObject(reply string) string {
	s := strings.TrimSpace(reply)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = rest
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func clampScore(n json.Number) int {
	// Out-of-range values come back as ±Inf with ErrRange and still clamp.
	f, err := n.Float64()
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || math.IsNaN(f) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, f))))
}

func normalizeKeyPoints(points []string) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSeverity(s string) string {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case model.SeverityLow, model.SeverityMedium, model.SeverityHigh, model.SeverityCritical:
		return v
	default:
		return model.SeverityMedium
	}
}

func normalizeRiskFactors(factors []model.RiskFactor) []model.RiskFactor {
	out := make([]model.RiskFactor, 0, len(factors))
	for _, f := range factors {
		f.Title = strings.TrimSpace(f.Title)
		f.Description = strings.TrimSpace(f.Description)
		f.Clause = strings.TrimSpace(f.Clause)
		if f.Title == "" && f.Description == "" {
			continue
		}
		f.Severity = normalizeSeverity(f.Severity)
		out = append(out, f)
	}
	return out
}

func normalizeGlossary(terms []model.GlossaryTerm) []model.GlossaryTerm {
	out := make([]model.GlossaryTerm, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t.Term = strings.TrimSpace(t.Term)
		t.Definition = strings.TrimSpace(t.Definition)
		key := strings.ToLower(t.Term)
		if t.Term == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
