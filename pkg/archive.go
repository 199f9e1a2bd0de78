package pkg

import (
	"fmt"
	"time"

	"github.com/fatih/structs"
)

// CountrySnapshot is the archived form of one country on one run date.
type CountrySnapshot struct {
	CountryCode string
	Country     string
	UpdatedAt   time.Time `structs:",omitnested"`
	Cases       float64
	Deaths      float64
	Recovered   float64
	Active      float64
}

type snapshotNodes struct {
	created   []interface{}
	unchanged []interface{}
	changed   []interface{}
}

// snapshotsByCode keys the countries by ISO3 code, falling back to the name
// for territories without one.
func snapshotsByCode(countries []CountryMetrics) map[string]CountrySnapshot {
	result := make(map[string]CountrySnapshot, len(countries))
	for _, c := range countries {
		code := c.CountryInfo.Iso3
		if code == "" {
			code = c.Country
		}
		result[code] = CountrySnapshot{
			CountryCode: code,
			Country:     c.Country,
			UpdatedAt:   time.Unix(0, c.Updated*int64(time.Millisecond)).UTC(),
			Cases:       c.Cases,
			Deaths:      c.Deaths,
			Recovered:   c.Recovered,
			Active:      c.Active,
		}
	}
	return result
}

// compareToPrevRun splits the current snapshots into countries seen for the
// first time, countries whose case count did not move since the previous run
// (only the previous document id is kept) and countries that changed.
func compareToPrevRun(
	current map[string]CountrySnapshot,
	runDate string,
	prevRunNodes map[string]interface{},
) (snapshotNodes, error) {
	var nodes snapshotNodes
	for code, snapshot := range current {
		node := structs.Map(snapshot)
		node["date"] = runDate
		node["_key"] = fmt.Sprintf("%s-%s", runDate, sanitizeKey(code))
		node["collection"] = snapshotCollection

		prevObj, ok := prevRunNodes[code]
		if !ok {
			nodes.created = append(nodes.created, node)
			continue
		}
		prevNode, ok := prevObj.(map[string]interface{})
		if !ok {
			return nodes, fmt.Errorf("unknown format of previous run node for %s", code)
		}
		prevCases, ok := prevNode["Cases"].(float64)
		if !ok {
			return nodes, fmt.Errorf("previous run node for %s has no cases", code)
		}
		if snapshot.Cases == prevCases {
			nodes.unchanged = append(nodes.unchanged, prevNode["_id"])
			continue
		}
		node["diff"] = snapshot.Cases - prevCases
		node["prevAssetId"] = prevNode["_id"]
		nodes.changed = append(nodes.changed, node)
	}
	return nodes, nil
}

// sanitizeKey keeps the characters ArangoDB accepts in a document key.
func sanitizeKey(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func snapshotID(key string) string {
	return fmt.Sprintf("%s/%s", snapshotCollection, key)
}

// newSnapshotEdge derives the edge key from its endpoints so importing the
// same edge twice leaves a single document.
func newSnapshotEdge(from, to string) SnapshotEdge {
	return SnapshotEdge{
		Key:        sanitizeKey(from + "--" + to),
		From:       from,
		To:         to,
		Collection: edgeCollection,
	}
}
