package archive

// Phase identifies a stage of the export or import pipeline. It is a closed
// set so UIs can switch exhaustively.
type Phase string

const (
	// Export phases.
	PhaseFetchingItems    Phase = "fetching-items"
	PhaseDownloadingFiles Phase = "downloading-files"
	PhaseCreatingZip      Phase = "creating-zip"

	// Import phases.
	PhaseCreatingTags   Phase = "creating-tags"
	PhaseCreatingItems  Phase = "creating-items"
	PhaseUploadingFiles Phase = "uploading-files"
)

// Progress is one unit-of-work report. Current/Total render a determinate
// progress bar; Total of zero means indeterminate.
type Progress struct {
	Phase   Phase  `json:"phase"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// ProgressFunc receives progress reports. It is invoked synchronously after
// each unit of work; callers must not block in it.
type ProgressFunc func(Progress)

// report invokes fn if non-nil.
func (fn ProgressFunc) report(p Progress) {
	if fn != nil {
		fn(p)
	}
}
