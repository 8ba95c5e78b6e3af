// Package pathmeta derives exam document metadata from a remote folder path
// and from structured exam filenames.
package pathmeta

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloo-solutions/examvault/internal/domain"
)

// PathMeta is what a folder path of the form
// <board>/<qualification>/<subject>/<type>/... encodes.
type PathMeta struct {
	Board         string
	Qualification string
	SubjectCode   string
	SourceType    string
	Provider      string
	Year          int
	Filename      string
}

var sourceTypeFolders = map[string]string{
	"papers":           domain.SourceTypePastPaper,
	"specs":            domain.SourceTypeSpecification,
	"revision":         domain.SourceTypeRevision,
	"marking":          domain.SourceTypeMarkingScheme,
	"mark_schemes":     domain.SourceTypeMarkingScheme,
	"examiner":         domain.SourceTypeExaminerReport,
	"examiner_reports": domain.SourceTypeExaminerReport,
	"grade_thresholds": domain.SourceTypeGradeThreshold,
}

var providerFolders = map[string]string{
	"sne":                  "seneca",
	"seneca":               "seneca",
	"pmt":                  "pmt",
	"physicsandmathstutor": "pmt",
}

var (
	yearRe        = regexp.MustCompile(`^(19|20)\d{2}$`)
	subjectCodeRe = regexp.MustCompile(`(?i)\b(\d+[A-Z]+\d*|\d{4,})\b`)
)

// ParsePath parses a slash-separated path relative to the Drive root.
// Unknown type folders default to revision.
func ParsePath(path string) (PathMeta, error) {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 4 {
		return PathMeta{}, fmt.Errorf("path too short, expected board/qualification/subject/type: %q", path)
	}

	meta := PathMeta{
		Board:         strings.ToUpper(parts[0]),
		Qualification: strings.ToUpper(parts[1]),
		SubjectCode:   subjectCode(parts[2]),
		Filename:      parts[len(parts)-1],
		SourceType:    domain.SourceTypeRevision,
	}
	if st, ok := sourceTypeFolders[strings.ToLower(parts[3])]; ok {
		meta.SourceType = st
	}

	// segments between the type folder and the filename
	var rest []string
	if len(parts) > 5 {
		rest = parts[4 : len(parts)-1]
	} else if len(parts) > 4 {
		rest = parts[4:]
	}
	for _, seg := range rest {
		if yearRe.MatchString(seg) {
			meta.Year, _ = strconv.Atoi(seg)
		} else if p, ok := providerFolders[strings.ToLower(seg)]; ok {
			meta.Provider = p
		}
	}

	return meta, nil
}

func subjectCode(folder string) string {
	if m := subjectCodeRe.FindStringSubmatch(folder); m != nil {
		return strings.ToUpper(m[1])
	}
	return strings.TrimSpace(folder)
}
