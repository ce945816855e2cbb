package view

import "github.com/moyoez/fileserver-admin/types"

// AllFolders is the folder option meaning "no filter".
const AllFolders = ""

// FolderOptions is the folder filter state derived from a listing.
type FolderOptions struct {
	Options  []string `json:"options"`
	Selected string   `json:"selected"`
}

// DeriveFolderOptions collects the distinct non-empty folders in first-seen order.
// selected survives only if it is still one of them, otherwise it resets to AllFolders.
func DeriveFolderOptions(files []types.FileRecord, selected string) FolderOptions {
	seen := make(map[string]struct{}, len(files))
	options := make([]string, 0)
	for _, f := range files {
		if f.Folder == "" {
			continue
		}
		if _, ok := seen[f.Folder]; ok {
			continue
		}
		seen[f.Folder] = struct{}{}
		options = append(options, f.Folder)
	}
	if _, ok := seen[selected]; !ok {
		selected = AllFolders
	}
	return FolderOptions{Options: options, Selected: selected}
}
