package vision

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/mrsinham/lesiontrack/internal/dicom"
)

// StudyMeta is the study-level identity and series list of a DICOM folder.
// Identity fields come from the first readable file that carries them.
type StudyMeta struct {
	Folder    string
	PatientID string
	StudyDate *string
	StudyUID  string
	Series    []SeriesInfo
}

// Key returns the identifier annotations are matched against: the study UID,
// else the study date, else the folder path.
func (m *StudyMeta) Key() string {
	switch {
	case m.StudyUID != "":
		return m.StudyUID
	case m.StudyDate != nil:
		return *m.StudyDate
	default:
		return m.Folder
	}
}

// scanDCM lists files with a .dcm or .DCM extension under folder.
func scanDCM(folder string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext == ".dcm" || ext == ".DCM" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// ReadStudy reads the headers of files and groups them by series, keeping
// first-seen order. Unreadable files are skipped.
func ReadStudy(folder string, files []string, log zerolog.Logger) *StudyMeta {
	meta := &StudyMeta{Folder: folder}
	index := make(map[string]int)

	for _, f := range files {
		h, err := dicom.ReadHeader(f)
		if err != nil {
			log.Debug().Err(err).Str("path", f).Msg("skipping unreadable file")
			continue
		}
		if meta.PatientID == "" {
			meta.PatientID = h.PatientID
		}
		if meta.StudyDate == nil {
			meta.StudyDate = dicom.ISODate(h.StudyDate)
		}
		if meta.StudyUID == "" {
			meta.StudyUID = h.StudyInstanceUID
		}

		i, ok := index[h.SeriesInstanceUID]
		if !ok {
			i = len(meta.Series)
			index[h.SeriesInstanceUID] = i
			meta.Series = append(meta.Series, SeriesInfo{
				SeriesUID:          h.SeriesInstanceUID,
				Modality:           h.Modality,
				PixelSpacing:       h.PixelSpacing,
				RepresentativeFile: f,
			})
		}
		meta.Series[i].FileCount++
	}
	return meta
}
