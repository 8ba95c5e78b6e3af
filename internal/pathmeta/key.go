package pathmeta

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/examvault/internal/domain"
)

var keyFolders = map[string]string{
	domain.SourceTypeSpecification:  "spec",
	domain.SourceTypePastPaper:      "papers",
	domain.SourceTypeMarkingScheme:  "papers",
	domain.SourceTypeExaminerReport: "papers",
	domain.SourceTypeGradeThreshold: "papers",
	domain.SourceTypeSamplePaper:    "papers",
	domain.SourceTypeRevision:       "revision",
}

// FileKey builds the blob store key for an original file, e.g.
// aqa/gcse/8461/papers/2024/8461_2024_jun_p1_higher_qp.pdf.
func FileKey(board, qualification, specCode, sourceType string, year int, filename string) string {
	base := strings.ToLower(board) + "/" + strings.ToLower(qualification) + "/" + strings.ToLower(specCode)
	folder, ok := keyFolders[sourceType]
	if !ok {
		folder = domain.SourceTypeOther
	}
	if folder == "papers" && year > 0 {
		return fmt.Sprintf("%s/%s/%d/%s", base, folder, year, strings.ToLower(filename))
	}
	return fmt.Sprintf("%s/%s/%s", base, folder, strings.ToLower(filename))
}

// UnstructuredKey is used for files whose path does not follow the
// board/qualification/subject layout.
func UnstructuredKey(remoteFileID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", domain.SourceTypeOther, remoteFileID, strings.ToLower(filename))
}

// Title turns a filename into a display title, appending the year when known.
func Title(filename string, year int) string {
	stem := filename
	if i := strings.LastIndex(filename, "."); i > 0 {
		stem = filename[:i]
	}
	title := strings.ReplaceAll(stem, "_", " ")
	if year > 0 {
		title = fmt.Sprintf("%s (%d)", title, year)
	}
	return title
}
