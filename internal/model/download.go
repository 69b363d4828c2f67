package model

// DownloadEvent is one message of the download progress stream.
type DownloadEvent struct {
	Done     bool   `json:"done"`
	Running  bool   `json:"running"`
	Progress int    `json:"progresso"`
	Total    int    `json:"total"`
	Current  string `json:"atual"`
	Success  int    `json:"sucesso"`
	Failed   int    `json:"falha"`
}

// Completed is the number of processed items.
func (e DownloadEvent) Completed() int {
	return e.Success + e.Failed
}

// MarkedExport is one marked camera returned by the export endpoint.
type MarkedExport struct {
	Loja     string   `json:"loja"`
	Position Position `json:"position"`
	Filename string   `json:"filename"`
	MarkedAt string   `json:"marked_at"`
	Note     string   `json:"note"`
}
