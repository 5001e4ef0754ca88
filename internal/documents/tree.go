package documents

import (
	"sort"
	"strings"
)

// Folder is one node of the folder-structured file display.
type Folder struct {
	Name    string          `json:"name"`
	Path    string          `json:"path"`
	Folders []*Folder       `json:"folders"`
	Files   []ExtractedFile `json:"files"`
}

// BuildTree nests files by their folder path. The root has an empty path.
func BuildTree(files []ExtractedFile) *Folder {
	root := &Folder{Name: "", Path: "", Folders: []*Folder{}, Files: []ExtractedFile{}}
	index := map[string]*Folder{"": root}

	var walk func(p string) *Folder
	walk = func(p string) *Folder {
		if f, ok := index[p]; ok {
			return f
		}
		parentPath, name := "", p
		if i := strings.LastIndex(p, "/"); i >= 0 {
			parentPath, name = p[:i], p[i+1:]
		}
		parent := walk(parentPath)
		f := &Folder{Name: name, Path: p, Folders: []*Folder{}, Files: []ExtractedFile{}}
		parent.Folders = append(parent.Folders, f)
		index[p] = f
		return f
	}

	for _, file := range files {
		folder := walk(strings.Trim(file.FolderPath, "/"))
		folder.Files = append(folder.Files, file)
	}

	sortFolder(root)
	return root
}

func sortFolder(f *Folder) {
	sort.Slice(f.Folders, func(i, j int) bool { return f.Folders[i].Name < f.Folders[j].Name })
	sort.Slice(f.Files, func(i, j int) bool { return f.Files[i].FileName < f.Files[j].FileName })
	for _, sub := range f.Folders {
		sortFolder(sub)
	}
}
