package files

import (
	"strings"
)

// FileType is the coarse category a file is accounted under.
type FileType string

const (
	FileTypeDocument FileType = "document"
	FileTypeImage    FileType = "image"
	FileTypeVideo    FileType = "video"
	FileTypeAudio    FileType = "audio"
	FileTypeOther    FileType = "other"
)

// AllFileTypes returns every FileType in display order.
func AllFileTypes() []FileType {
	return []FileType{FileTypeDocument, FileTypeImage, FileTypeVideo, FileTypeAudio, FileTypeOther}
}

// ParseFileType converts user input into a FileType.
func ParseFileType(raw string) (FileType, bool) {
	switch FileType(strings.ToLower(strings.TrimSpace(raw))) {
	case FileTypeDocument:
		return FileTypeDocument, true
	case FileTypeImage:
		return FileTypeImage, true
	case FileTypeVideo:
		return FileTypeVideo, true
	case FileTypeAudio:
		return FileTypeAudio, true
	case FileTypeOther:
		return FileTypeOther, true
	default:
		return "", false
	}
}

// TypeFromExtension maps a lower-cased extension to its FileType.
// Unknown extensions are FileTypeOther.
func TypeFromExtension(ext string) FileType {
	switch ext {
	case "pdf", "doc", "docx", "txt", "xls", "xlsx", "csv", "rtf", "ods",
		"ppt", "odp", "md", "html", "htm", "epub", "pages", "fig", "psd",
		"ai", "indd", "xd", "sketch", "afdesign", "afphoto":
		return FileTypeDocument
	case "jpg", "jpeg", "png", "gif", "bmp", "svg", "webp":
		return FileTypeImage
	case "mp4", "avi", "mov", "mkv", "webm":
		return FileTypeVideo
	case "mp3", "wav", "ogg", "flac":
		return FileTypeAudio
	default:
		return FileTypeOther
	}
}

// ExtensionOf returns the lower-cased suffix after the last dot of name,
// or "" when there is none.
func ExtensionOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// FileTypeOf derives type and extension from a display name.
func FileTypeOf(name string) (FileType, string) {
	ext := ExtensionOf(name)
	return TypeFromExtension(ext), ext
}
