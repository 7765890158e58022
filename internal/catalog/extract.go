package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/DarienLibrary/covercache-public/internal/config"
	"github.com/DarienLibrary/covercache-public/internal/entities"
	"github.com/DarienLibrary/covercache-public/internal/isbn"
)

var oclcPattern = regexp.MustCompile(`^\(OCoLC\)\s*[ocnm]*(\d+)\s*$`)

// ExtractedIdentifier is a (source, value) pair found in tag data.
type ExtractedIdentifier struct {
	Source entities.SourceName
	Value  string
}

type providerIndicator struct {
	source entities.SourceName
	re     *regexp.Regexp
}

type substitution struct {
	re          *regexp.Regexp
	replacement string
}

type linkIndicator struct {
	re   *regexp.Regexp
	subs []substitution
}

// Extractor turns raw tag rows into identifiers using the configured
// indicator tables.
type Extractor struct {
	providers []providerIndicator
	links     []linkIndicator
	work      *regexp.Regexp
}

func NewExtractor(cfg config.Catalog) (*Extractor, error) {
	e := &Extractor{}

	sources := make([]string, 0, len(cfg.ProviderIndicators))
	for source := range cfg.ProviderIndicators {
		sources = append(sources, string(source))
	}
	sort.Strings(sources)
	for _, source := range sources {
		pattern := cfg.ProviderIndicators[entities.SourceName(source)]
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("provider indicator %s: %w", source, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("provider indicator %s: pattern needs a capture group", source)
		}
		e.providers = append(e.providers, providerIndicator{source: entities.SourceName(source), re: re})
	}

	for i, li := range cfg.LinkIndicators {
		// links must match from the start of the value
		re, err := regexp.Compile(`^(?:` + li.Pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("link indicator %d: %w", i, err)
		}
		ind := linkIndicator{re: re}
		for _, sub := range li.Substitutions {
			subRe, err := regexp.Compile(sub.Pattern)
			if err != nil {
				return nil, fmt.Errorf("link indicator %d substitution: %w", i, err)
			}
			ind.subs = append(ind.subs, substitution{re: subRe, replacement: sub.Replacement})
		}
		e.links = append(e.links, ind)
	}

	e.work = regexp.MustCompile(`^` + regexp.QuoteMeta(cfg.WorkPrefix) + `(\d+)$`)
	return e, nil
}

// Extract derives identifiers from a record's tags. Rows that match nothing
// are skipped. The result has no duplicates and keeps discovery order.
func (e *Extractor) Extract(tags IdentifierTags) []ExtractedIdentifier {
	var out []ExtractedIdentifier
	seen := make(map[ExtractedIdentifier]bool)
	add := func(id ExtractedIdentifier) {
		if id.Value == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	for _, data := range tags.Links {
		for _, p := range e.providers {
			if m := p.re.FindStringSubmatch(data); m != nil {
				add(ExtractedIdentifier{Source: p.source, Value: m[1]})
			}
		}
		for _, l := range e.links {
			value := l.re.FindString(data)
			if value == "" {
				continue
			}
			for _, s := range l.subs {
				value = s.re.ReplaceAllString(value, s.replacement)
			}
			add(ExtractedIdentifier{Source: entities.SourceLink, Value: value})
		}
	}

	for _, data := range tags.ISBNs {
		if v, ok := isbn.Normalize(data); ok {
			add(ExtractedIdentifier{Source: entities.SourceISBN, Value: v})
		}
	}

	for _, data := range tags.OCLCs {
		if m := oclcPattern.FindStringSubmatch(data); m != nil {
			add(ExtractedIdentifier{Source: entities.SourceOCLC, Value: m[1]})
		}
	}
	return out
}

// WorkID parses a work tag value of the form <prefix><digits>.
func (e *Extractor) WorkID(raw string) (int, bool) {
	m := e.work.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// WorkAssignments maps manifestation ids to work ids for every work tag that
// matches the prefix. A later row for the same manifestation wins.
func (e *Extractor) WorkAssignments(rows []TagRow) map[int]int {
	out := make(map[int]int)
	for _, row := range rows {
		if id, ok := e.WorkID(row.Data); ok {
			out[row.ManifestationID] = id
		}
	}
	return out
}
