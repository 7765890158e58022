package works

import (
	"bytes"
	"encoding/json"

	"github.com/DarienLibrary/covercache-public/internal/entities"
)

// SourceCount is a count for one source.
type SourceCount struct {
	Source entities.SourceName
	Count  int64
}

// OrderedCounts marshals to a JSON object that keeps its slice order.
type OrderedCounts []SourceCount

func (o OrderedCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(c.Source))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, _ := json.Marshal(c.Count)
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Stats summarises the cache.
type Stats struct {
	Works                        int64                         `json:"works"`
	Manifestations               int64                         `json:"manifestations"`
	Identifiers                  int64                         `json:"identifiers"`
	Covers                       int64                         `json:"covers"`
	WorksWithCovers              int64                         `json:"works_with_covers"`
	WorksWithoutCovers           int64                         `json:"works_without_covers"`
	WorksWithNoWayToGetCovers    int64                         `json:"works_with_no_way_to_get_covers"`
	IdentifiersBySource          map[entities.SourceName]int64 `json:"identifiers_by_source"`
	WorthlessIdentifiersBySource map[entities.SourceName]int64 `json:"worthless_identifiers_by_source"`
	CoversBySource               OrderedCounts                 `json:"covers_by_source"`
}

type sourceRow struct {
	Source entities.SourceName
	Count  int64
}

// Stats computes aggregate counts. Covers by source are listed in the given
// precedence order.
func (r *Repository) Stats(precedence []entities.SourceName) (*Stats, error) {
	s := &Stats{
		IdentifiersBySource:          make(map[entities.SourceName]int64),
		WorthlessIdentifiersBySource: make(map[entities.SourceName]int64),
	}

	counts := []struct {
		model any
		dest  *int64
	}{
		{&entities.Work{}, &s.Works},
		{&entities.Manifestation{}, &s.Manifestations},
		{&entities.Identifier{}, &s.Identifiers},
		{&entities.Cover{}, &s.Covers},
	}
	for _, c := range counts {
		if err := r.db.Model(c.model).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	err := r.db.Raw(`
SELECT COUNT(DISTINCT m.work_id) FROM manifestations m
JOIN manifestation_identifiers mi ON mi.manifestation_id = m.id
JOIN covers c ON c.identifier_id = mi.identifier_id
WHERE m.work_id IS NOT NULL`).Scan(&s.WorksWithCovers).Error
	if err != nil {
		return nil, err
	}
	s.WorksWithoutCovers = s.Works - s.WorksWithCovers

	err = r.db.Raw(`
SELECT COUNT(*) FROM works w
WHERE NOT EXISTS (
	SELECT 1 FROM manifestations m
	JOIN manifestation_identifiers mi ON mi.manifestation_id = m.id
	WHERE m.work_id = w.id
)`).Scan(&s.WorksWithNoWayToGetCovers).Error
	if err != nil {
		return nil, err
	}

	var bySource []sourceRow
	if err := r.db.Raw(`SELECT source, COUNT(*) AS count FROM identifiers GROUP BY source`).Scan(&bySource).Error; err != nil {
		return nil, err
	}
	for _, row := range bySource {
		s.IdentifiersBySource[row.Source] = row.Count
		s.WorthlessIdentifiersBySource[row.Source] = 0
	}

	var worthless []sourceRow
	err = r.db.Raw(`
SELECT i.source AS source, COUNT(DISTINCT i.id) AS count FROM identifiers i
JOIN manifestation_identifiers mi ON mi.identifier_id = i.id
JOIN manifestations m ON m.id = mi.manifestation_id
WHERE m.work_id IS NOT NULL
	AND NOT EXISTS (
		SELECT 1 FROM manifestations m2
		JOIN manifestation_identifiers mi2 ON mi2.manifestation_id = m2.id
		JOIN covers c ON c.identifier_id = mi2.identifier_id
		WHERE m2.work_id = m.work_id
	)
GROUP BY i.source`).Scan(&worthless).Error
	if err != nil {
		return nil, err
	}
	for _, row := range worthless {
		s.WorthlessIdentifiersBySource[row.Source] = row.Count
	}

	var covers []sourceRow
	if err := r.db.Raw(`SELECT source, COUNT(*) AS count FROM covers GROUP BY source`).Scan(&covers).Error; err != nil {
		return nil, err
	}
	coverCounts := make(map[entities.SourceName]int64, len(covers))
	for _, row := range covers {
		coverCounts[row.Source] = row.Count
	}
	s.CoversBySource = make(OrderedCounts, 0, len(precedence))
	for _, source := range precedence {
		s.CoversBySource = append(s.CoversBySource, SourceCount{Source: source, Count: coverCounts[source]})
	}

	return s, nil
}
