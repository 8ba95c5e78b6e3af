package domain

import "encoding/json"

// Source types a document can be classified as.
const (
	SourceTypePastPaper      = "past_paper"
	SourceTypeSpecification  = "specification"
	SourceTypeRevision       = "revision"
	SourceTypeMarkingScheme  = "marking_scheme"
	SourceTypeExaminerReport = "examiner_report"
	SourceTypeGradeThreshold = "grade_threshold"
	SourceTypeSamplePaper    = "sample_paper"
	SourceTypeOther          = "other"
)

// DefaultContentType tags chunks that no classifier has labelled.
const DefaultContentType = "general"

// DocumentMetadata holds the known document attributes derived from the
// remote path and filename. Extra carries keys with no dedicated field.
type DocumentMetadata struct {
	SourceType    string            `json:"source_type,omitempty"`
	SourcePath    string            `json:"source_path,omitempty"`
	Board         string            `json:"board,omitempty"`
	Qualification string            `json:"qualification,omitempty"`
	SubjectCode   string            `json:"subject_code,omitempty"`
	Provider      string            `json:"provider,omitempty"`
	Year          int               `json:"year,omitempty"`
	Session       string            `json:"session,omitempty"`
	PaperNumber   string            `json:"paper_number,omitempty"`
	Tier          string            `json:"tier,omitempty"`
	DocType       string            `json:"doc_type,omitempty"`
	PageCount     int               `json:"page_count,omitempty"`
	MimeType      string            `json:"mime_type,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// ChunkMetadata is attached to each chunk. ContentType is the classifier tag.
type ChunkMetadata struct {
	ContentType string            `json:"content_type,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// MarshalMetadata encodes v for a JSONB column.
func MarshalMetadata(v any) ([]byte, error) {
	return json.Marshal(v)
}

// UnmarshalDocumentMetadata decodes a JSONB column. Empty input yields the zero value.
func UnmarshalDocumentMetadata(raw []byte) (DocumentMetadata, error) {
	var m DocumentMetadata
	if len(raw) == 0 {
		return m, nil
	}
	err := json.Unmarshal(raw, &m)
	return m, err
}

// UnmarshalChunkMetadata decodes a JSONB column. Empty input yields the zero value.
func UnmarshalChunkMetadata(raw []byte) (ChunkMetadata, error) {
	var m ChunkMetadata
	if len(raw) == 0 {
		return m, nil
	}
	err := json.Unmarshal(raw, &m)
	return m, err
}
