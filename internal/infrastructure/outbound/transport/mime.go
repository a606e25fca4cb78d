package transport

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

var officeTypes = map[string]string{
	".json": "application/json",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".zip":  "application/zip",
}

// ContentTypeFor determines the upload content type from the file extension,
// falling back to body sniffing.
func ContentTypeFor(filename string, body []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := officeTypes[ext]; ok {
		return ct
	}
	if ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	if len(body) > 0 {
		return http.DetectContentType(body)
	}
	return "application/octet-stream"
}
