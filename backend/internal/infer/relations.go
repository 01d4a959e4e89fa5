package infer

import (
	"regexp"

	"blog-graph/backend/internal/models"
)

// clause is up to 50 characters that do not end a sentence
const clause = `[^.。!?！？]{0,50}`

type relationPattern struct {
	keyword  string
	relType  string
	reversed bool // also try target ... keyword ... source
	english  bool // keyword needs word boundaries
}

var relationPatterns = []relationPattern{
	{keyword: "是", relType: models.RelIsA, reversed: true},
	{keyword: "包含", relType: models.RelContains},
	{keyword: "使用", relType: models.RelUses},
	{keyword: "依赖", relType: models.RelDependsOn},
	{keyword: "is", relType: models.RelIsA, reversed: true, english: true},
	{keyword: "contains", relType: models.RelContains, english: true},
	{keyword: "uses", relType: models.RelUses, english: true},
	{keyword: "depends on", relType: models.RelDependsOn, english: true},
}

func buildPattern(a, b string, p relationPattern) *regexp.Regexp {
	kw := regexp.QuoteMeta(p.keyword)
	if p.english {
		kw = `\b` + kw + `\b`
	}
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(a) + clause + kw + clause + regexp.QuoteMeta(b))
}

// DetectRelationType scans text for "source <verb> target" within one sentence
// and returns the relation of the first matching pattern, or RELATED_TO.
func DetectRelationType(source, target, text string) string {
	if source == "" || target == "" || text == "" {
		return models.RelRelatedTo
	}
	for _, p := range relationPatterns {
		if buildPattern(source, target, p).MatchString(text) {
			return p.relType
		}
		if p.reversed && buildPattern(target, source, p).MatchString(text) {
			return p.relType
		}
	}
	return models.RelRelatedTo
}
