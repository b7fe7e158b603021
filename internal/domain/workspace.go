package domain

import "go.lsp.dev/protocol"

// FileReference is a candidate context file. Recomputed on every request.
type FileReference struct {
	URL          string `json:"url"`
	RelativePath string `json:"relativePath"`
	FileName     string `json:"fileName"`
}

// WorkspaceFolder is one discovered sub-project
type WorkspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// WorkspaceInfo identifies the IDE workspace a request belongs to.
// WorkspaceURL is the container (or project) the IDE has open; ProjectURL is
// the active project root used for relative paths.
type WorkspaceInfo struct {
	WorkspaceURL string `json:"workspaceURL"`
	ProjectURL   string `json:"projectURL"`
}

// Key is the identity used to find the backend connection for a workspace
func (w WorkspaceInfo) Key() string {
	if w.WorkspaceURL != "" {
		return w.WorkspaceURL
	}
	return w.ProjectURL
}

type FileChange struct {
	URI  protocol.DocumentURI    `json:"uri"`
	Type protocol.FileChangeType `json:"type"`
}

// WatchedFilesEvent is a batch of file changes within one workspace
type WatchedFilesEvent struct {
	WorkspaceURI string       `json:"workspaceUri"`
	Changes      []FileChange `json:"changes"`
}
