package report

import (
	"fmt"
	"strings"
)

const boxWidth = 80

// FormatSection renders an accepted section as a boxed summary for the
// operator log: header, wrapped content, cited sources with providers, and a
// one-line diversity note.
func FormatSection(section Section, sources []Source) string {
	label := "Section"
	if section.IsBibliography {
		label = "Bibliography"
	}
	header := fmt.Sprintf(" %s %d/%d: %s ", label, section.SectionNumber, section.TotalSections, section.Title)

	var b strings.Builder
	b.WriteString("┌" + strings.Repeat("─", boxWidth-2) + "┐\n")
	writeBoxLine(&b, header)
	b.WriteString("├" + strings.Repeat("─", boxWidth-2) + "┤\n")

	for _, line := range wrap(section.Content, boxWidth-4) {
		writeBoxLine(&b, " "+line)
	}

	if !section.IsBibliography && len(section.SourcesUsed) > 0 {
		writeBoxLine(&b, "")
		writeBoxLine(&b, " Sources Used:")
		providers := map[string]struct{}{}
		var firstProvider string
		for _, id := range section.SourcesUsed {
			if id < 1 || id > len(sources) {
				continue
			}
			src := sources[id-1]
			if firstProvider == "" {
				firstProvider = src.Provider
			}
			providers[src.Provider] = struct{}{}
			marker := ""
			if src.IsPDF {
				marker = " [PDF]"
			}
			writeBoxLine(&b, fmt.Sprintf("   [%d] %s from %s%s", id, src.MediaType, src.Provider, marker))
		}
		writeBoxLine(&b, "")
		if len(providers) > 1 {
			writeBoxLine(&b, fmt.Sprintf(" This section uses sources from %d different providers.", len(providers)))
		} else if firstProvider != "" {
			writeBoxLine(&b, fmt.Sprintf(" This section uses sources from only one provider: %s.", firstProvider))
		}
	}

	b.WriteString("└" + strings.Repeat("─", boxWidth-2) + "┘")
	return b.String()
}

// FormatBibliography renders one citation line per source, in source order.
func FormatBibliography(sources []Source) []string {
	if len(sources) == 0 {
		return nil
	}
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, FormatCitationLine(s))
	}
	return out
}

// FormatCitationLine renders one source as a bibliography entry:
// (Date). Title [Media]. Provider. Retrieved from URL.
func FormatCitationLine(s Source) string {
	date := s.Date
	if date == "" {
		date = "n.d."
	}
	var marker string
	switch s.MediaType {
	case MediaImage:
		marker = " [Image]"
	case MediaVideo:
		marker = " [Video]"
	case MediaSound:
		marker = " [Audio]"
	}
	return fmt.Sprintf("[%d] (%s). %s%s. %s. Retrieved from %s", s.ID, date, s.Title, marker, s.Provider, s.URL)
}

func writeBoxLine(b *strings.Builder, text string) {
	runes := []rune(text)
	if len(runes) > boxWidth-2 {
		runes = runes[:boxWidth-2]
	}
	pad := boxWidth - 2 - len(runes)
	b.WriteString("│" + string(runes) + strings.Repeat(" ", pad) + "│\n")
}

// wrap splits text into lines at most width runes long, breaking on spaces
// where possible.
func wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			if len([]rune(line))+1+len([]rune(word)) <= width {
				line += " " + word
				continue
			}
			lines = append(lines, line)
			line = word
		}
		lines = append(lines, line)
	}
	return lines
}
