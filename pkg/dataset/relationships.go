package dataset

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// overlapThreshold is the minimum share of a foreign-key candidate's
// distinct non-null values that must exist in a target primary key for
// a value-overlap relationship to be emitted.
const overlapThreshold = 0.8

// DetectRelationships finds references between the given datasets and
// records them on both endpoints (outgoing on the source, incoming on
// the target). Detection runs name-based matching first, then value
// overlap; duplicates are collapsed keeping the higher confidence.
func DetectRelationships(datasets map[string]*Dataset) {
	for _, ds := range datasets {
		ds.Relationships = nil
		ds.Incoming = nil
	}

	for _, src := range datasets {
		seen := map[string]bool{}
		for _, fkCol := range src.ForeignKeyCandidates {
			if rel, ok := matchByName(src, fkCol, datasets); ok {
				key := rel.SourceColumn + "→" + rel.TargetDataset
				if !seen[key] {
					seen[key] = true
					src.Relationships = append(src.Relationships, rel)
				}
			}
			for _, rel := range matchByOverlap(src, fkCol, datasets) {
				key := rel.SourceColumn + "→" + rel.TargetDataset
				if !seen[key] {
					seen[key] = true
					src.Relationships = append(src.Relationships, rel)
				}
			}
		}
	}

	for _, src := range datasets {
		for _, rel := range src.Relationships {
			if target, ok := datasets[rel.TargetDataset]; ok {
				target.Incoming = append(target.Incoming, rel)
			}
		}
	}
}

// matchByName strips the foreign-key suffix and looks for a dataset
// whose name matches the base, tolerating plural/singular and
// underscore differences. The target must have a primary key.
func matchByName(src *Dataset, fkCol string, datasets map[string]*Dataset) (Relationship, bool) {
	base := stripFKSuffix(fkCol)
	if base == "" {
		return Relationship{}, false
	}
	for name, target := range datasets {
		if target == src || target.PrimaryKey == "" {
			continue
		}
		if namesEquivalent(base, name) {
			return Relationship{
				SourceDataset: src.Name,
				SourceColumn:  fkCol,
				TargetDataset: name,
				TargetColumn:  target.PrimaryKey,
				Confidence:    1.0,
				Method:        MethodName,
			}, true
		}
	}
	return Relationship{}, false
}

// matchByOverlap emits a relationship when at least overlapThreshold of
// the candidate's distinct non-null values appear in a target's primary
// key, tagged with the measured overlap as confidence.
func matchByOverlap(src *Dataset, fkCol string, datasets map[string]*Dataset) []Relationship {
	srcValues := distinctStrings(src.Column(fkCol))
	if len(srcValues) == 0 {
		return nil
	}

	var out []Relationship
	for name, target := range datasets {
		if target == src || target.PrimaryKey == "" {
			continue
		}
		targetValues := map[string]bool{}
		for _, v := range target.Column(target.PrimaryKey) {
			if !isNull(v) {
				targetValues[cellString(v)] = true
			}
		}
		matched := 0
		for v := range srcValues {
			if targetValues[v] {
				matched++
			}
		}
		overlap := float64(matched) / float64(len(srcValues))
		if overlap >= overlapThreshold {
			out = append(out, Relationship{
				SourceDataset: src.Name,
				SourceColumn:  fkCol,
				TargetDataset: name,
				TargetColumn:  target.PrimaryKey,
				Confidence:    overlap,
				Method:        MethodOverlap,
			})
		}
	}
	return out
}

func stripFKSuffix(col string) string {
	lower := strings.ToLower(col)
	for _, suffix := range fkSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return strings.TrimSuffix(lower, suffix)
		}
	}
	return ""
}

// namesEquivalent compares a base name against a dataset name modulo
// case, underscores, and singular/plural form.
func namesEquivalent(base, datasetName string) bool {
	b := normalizeName(base)
	n := normalizeName(datasetName)
	if b == n {
		return true
	}
	return inflection.Plural(b) == n || inflection.Singular(n) == b ||
		inflection.Singular(b) == inflection.Singular(n)
}

func normalizeName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "")
}

func distinctStrings(values []any) map[string]bool {
	out := map[string]bool{}
	for _, v := range values {
		if !isNull(v) {
			out[cellString(v)] = true
		}
	}
	return out
}
