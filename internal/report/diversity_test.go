package report

import "testing"

func TestAnalyzeProviderDiversity(t *testing.T) {
	t.Parallel()
	sources := []Source{
		{ID: 1, Provider: "A"},
		{ID: 2, Provider: "A"},
		{ID: 3, Provider: "B"},
	}
	res := AnalyzeProviderDiversity(sources)
	if !res.Diverse {
		t.Fatal("expected diverse=true")
	}
	if res.TotalProviders != 2 {
		t.Fatalf("TotalProviders = %d, want 2", res.TotalProviders)
	}
	if res.PrimaryProvider != "A" {
		t.Fatalf("PrimaryProvider = %q, want A", res.PrimaryProvider)
	}
	if res.Distribution["A"] != 2 || res.Distribution["B"] != 1 {
		t.Fatalf("distribution = %v", res.Distribution)
	}
}

func TestAnalyzeProviderDiversityEmpty(t *testing.T) {
	t.Parallel()
	res := AnalyzeProviderDiversity(nil)
	if res.Diverse || res.TotalProviders != 0 || res.PrimaryProvider != "None" {
		t.Fatalf("unexpected analysis for empty list: %+v", res)
	}
}

func TestAnalyzeProviderDiversityTieBreak(t *testing.T) {
	t.Parallel()
	sources := []Source{
		{ID: 1, Provider: "B"},
		{ID: 2, Provider: "A"},
		{ID: 3, Provider: "B"},
		{ID: 4, Provider: "A"},
	}
	res := AnalyzeProviderDiversity(sources)
	if res.PrimaryProvider != "B" {
		t.Fatalf("tie should break on first-encountered order, got %q", res.PrimaryProvider)
	}
}

func TestAnalyzeProviderDiversitySingleProvider(t *testing.T) {
	t.Parallel()
	res := AnalyzeProviderDiversity([]Source{{ID: 1, Provider: "Solo"}})
	if res.Diverse {
		t.Fatal("single provider must not be diverse")
	}
	if res.PrimaryProvider != "Solo" {
		t.Fatalf("PrimaryProvider = %q", res.PrimaryProvider)
	}
}
