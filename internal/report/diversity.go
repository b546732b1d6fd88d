package report

// AnalyzeProviderDiversity profiles the contributing institutions behind a
// source list. Sources are diverse when more than one provider contributed;
// the primary provider is the most frequent one, ties broken by
// first-encountered order so a given run is deterministic.
func AnalyzeProviderDiversity(sources []Source) ProviderAnalysis {
	if len(sources) == 0 {
		return ProviderAnalysis{PrimaryProvider: "None", Distribution: map[string]int{}}
	}

	counts := make(map[string]int)
	var order []string
	for _, s := range sources {
		provider := s.Provider
		if provider == "" {
			provider = "Unknown"
		}
		if _, seen := counts[provider]; !seen {
			order = append(order, provider)
		}
		counts[provider]++
	}

	primary := order[0]
	for _, provider := range order[1:] {
		if counts[provider] > counts[primary] {
			primary = provider
		}
	}

	return ProviderAnalysis{
		Diverse:         len(counts) > 1,
		TotalProviders:  len(counts),
		PrimaryProvider: primary,
		Distribution:    counts,
	}
}

// sectionProviders returns the providers of the cited sources, in citation
// order, skipping ids outside the source list.
func sectionProviders(sources []Source, sourcesUsed []int) []string {
	var providers []string
	for _, id := range sourcesUsed {
		if id >= 1 && id <= len(sources) {
			providers = append(providers, sources[id-1].Provider)
		}
	}
	return providers
}
