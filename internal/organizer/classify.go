package organizer

import (
	"path/filepath"
	"strings"
)

// inferredTypes buckets file extensions into coarse categories the model
// can use when proposing folder structures.
var inferredTypes = map[string]string{
	".txt":  "document",
	".md":   "document",
	".doc":  "document",
	".docx": "document",
	".odt":  "document",
	".pdf":  "document",
	".rtf":  "document",
	".csv":  "document",
	".xls":  "document",
	".xlsx": "document",

	".png":  "image",
	".jpg":  "image",
	".jpeg": "image",
	".gif":  "image",
	".bmp":  "image",
	".svg":  "image",
	".webp": "image",
	".tiff": "image",
	".heic": "image",

	".go":   "code",
	".py":   "code",
	".js":   "code",
	".ts":   "code",
	".c":    "code",
	".h":    "code",
	".cpp":  "code",
	".java": "code",
	".rb":   "code",
	".rs":   "code",
	".sh":   "code",
	".html": "code",
	".css":  "code",
	".json": "code",
	".yaml": "code",
	".yml":  "code",
	".toml": "code",
	".sql":  "code",

	".zip": "archive",
	".tar": "archive",
	".gz":  "archive",
	".tgz": "archive",
	".bz2": "archive",
	".xz":  "archive",
	".7z":  "archive",
	".rar": "archive",

	".mp3":  "audio",
	".wav":  "audio",
	".flac": "audio",
	".ogg":  "audio",
	".m4a":  "audio",

	".mp4":  "video",
	".mov":  "video",
	".avi":  "video",
	".mkv":  "video",
	".webm": "video",
}

// InferType classifies a file name by extension.
func InferType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if inferred, ok := inferredTypes[ext]; ok {
		return inferred
	}
	return "other"
}
