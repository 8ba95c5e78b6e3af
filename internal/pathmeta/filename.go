package pathmeta

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloo-solutions/examvault/internal/domain"
)

// FileMeta is what a structured exam filename such as
// 8461_2024_jun_p1_higher_qp.pdf encodes.
type FileMeta struct {
	SpecCode  string
	Year      int
	Session   string
	Paper     string
	Tier      string
	DocType   string
	Provider  string
	TopicSlug string
	Sample    bool
}

var (
	sessions  = map[string]bool{"jun": true, "nov": true, "mar": true, "jan": true}
	tiers     = map[string]bool{"foundation": true, "higher": true, "core": true, "extended": true}
	docTypes  = map[string]bool{"qp": true, "ms": true, "er": true, "gt": true, "sp": true}
	providers = map[string]bool{"sme": true, "pmt": true}
	paperRe   = regexp.MustCompile(`^p\d(-insert)?$`)
)

// ParseFilename scans underscore-separated tokens. The first token is always
// the spec code; unrecognised tokens form the topic slug.
func ParseFilename(filename string) (FileMeta, error) {
	stem := filename
	if i := strings.LastIndex(filename, "."); i >= 0 {
		stem = filename[:i]
	}
	tokens := strings.Split(stem, "_")
	if tokens[0] == "" {
		return FileMeta{}, fmt.Errorf("empty filename: %q", filename)
	}

	meta := FileMeta{SpecCode: tokens[0]}
	if len(tokens) < 2 {
		return meta, nil
	}
	if strings.EqualFold(tokens[1], "specification") {
		meta.DocType = "spec"
		return meta, nil
	}

	start := 1
	if strings.EqualFold(tokens[1], "sample") {
		meta.Sample = true
		start = 2
	}

	var unmatched []string
	for _, tok := range tokens[start:] {
		lower := strings.ToLower(tok)
		switch {
		case yearRe.MatchString(lower):
			meta.Year, _ = strconv.Atoi(lower)
		case sessions[lower]:
			meta.Session = lower
		case paperRe.MatchString(lower):
			meta.Paper = strings.SplitN(lower, "-", 2)[0]
		case tiers[lower]:
			meta.Tier = lower
		case docTypes[lower]:
			meta.DocType = lower
		case providers[lower]:
			meta.Provider = lower
			meta.DocType = "rev"
		default:
			unmatched = append(unmatched, lower)
		}
	}
	if len(unmatched) > 0 {
		meta.TopicSlug = strings.Join(unmatched, "_")
	}
	if meta.Sample && meta.DocType == "qp" {
		meta.DocType = "sp"
	}

	return meta, nil
}

// RefineSourceType lets the filename's document type override the folder's.
func RefineSourceType(pathType, docType string) string {
	switch docType {
	case "qp":
		return domain.SourceTypePastPaper
	case "ms":
		return domain.SourceTypeMarkingScheme
	case "er":
		return domain.SourceTypeExaminerReport
	case "gt":
		return domain.SourceTypeGradeThreshold
	case "sp":
		return domain.SourceTypeSamplePaper
	case "spec":
		return domain.SourceTypeSpecification
	case "rev":
		return domain.SourceTypeRevision
	}
	return pathType
}
