package pathmeta

import "github.com/cloo-solutions/examvault/internal/domain"

// Description is the document-level metadata derived for one remote file.
type Description struct {
	Title    string
	FileKey  string
	Metadata domain.DocumentMetadata
}

// Describe combines path and filename metadata for a remote file. Files
// outside the board/qualification/subject layout still get a title and a key
// under other/.
func Describe(f domain.RemoteFile) Description {
	meta := domain.DocumentMetadata{
		SourcePath: f.Path,
		MimeType:   f.MimeType,
	}

	pm, err := ParsePath(f.Path)
	if err != nil {
		meta.SourceType = domain.SourceTypeOther
		return Description{
			Title:    Title(f.Name, 0),
			FileKey:  UnstructuredKey(f.ID, f.Name),
			Metadata: meta,
		}
	}

	fm, _ := ParseFilename(f.Name)

	year := pm.Year
	if year == 0 {
		year = fm.Year
	}
	sourceType := RefineSourceType(pm.SourceType, fm.DocType)
	provider := pm.Provider
	if provider == "" {
		provider = fm.Provider
	}

	meta.SourceType = sourceType
	meta.Board = pm.Board
	meta.Qualification = pm.Qualification
	meta.SubjectCode = pm.SubjectCode
	meta.Provider = provider
	meta.Year = year
	meta.Session = fm.Session
	meta.PaperNumber = fm.Paper
	meta.Tier = fm.Tier
	meta.DocType = fm.DocType
	if fm.TopicSlug != "" {
		meta.Extra = map[string]string{"topic_slug": fm.TopicSlug}
	}

	return Description{
		Title:    Title(f.Name, year),
		FileKey:  FileKey(pm.Board, pm.Qualification, pm.SubjectCode, sourceType, year, f.Name),
		Metadata: meta,
	}
}
