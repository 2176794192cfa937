package fallback

import (
	"strings"

	"github.com/company-researcher/backend/internal/report"
)

// Bucket is a thematic label derived from a source's title and snippet via
// case-insensitive keyword membership. Classification is deliberately a flat,
// auditable keyword table rather than anything learned: the fallback must be
// deterministic.
type Bucket string

const (
	BucketFinancial      Bucket = "financial"
	BucketProductService Bucket = "product_service"
	BucketCompetitor     Bucket = "competitor"
	BucketGeneral        Bucket = "general"
)

var thematicBuckets = []Bucket{BucketFinancial, BucketProductService, BucketCompetitor}

var bucketKeywords = map[Bucket][]string{
	BucketFinancial: {
		"revenue", "earnings", "market cap", "eps", "p/e",
		"profit", "income", "sales", "quarterly", "fiscal",
	},
	BucketProductService: {
		"brand", "product", "service", "launch", "portfolio", "offering",
	},
	BucketCompetitor: {
		"competitor", "vs.", "market share", "rival", "competition",
	},
}

// Classify returns every thematic bucket a source matches, or general when
// none match. A source can belong to several buckets; callers count it once
// per bucket but only once toward run totals.
func Classify(src report.SourceRecord) []Bucket {
	text := strings.ToLower(src.Title + " " + src.Snippet)

	var matched []Bucket
	for _, bucket := range thematicBuckets {
		for _, keyword := range bucketKeywords[bucket] {
			if strings.Contains(text, keyword) {
				matched = append(matched, bucket)
				break
			}
		}
	}

	if len(matched) == 0 {
		return []Bucket{BucketGeneral}
	}
	return matched
}

func matches(src report.SourceRecord, bucket Bucket) bool {
	for _, b := range Classify(src) {
		if b == bucket {
			return true
		}
	}
	return false
}
