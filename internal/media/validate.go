// Package media validates, describes and probes audio/video files before
// they are uploaded.
package media

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"
)

// MaxFileSize is the upload ceiling, 100 MiB.
const MaxFileSize = 100 * 1024 * 1024

var (
	ErrInvalidFileType = errors.New("Invalid file type. Please select an audio or video file (Supported: MP3, WAV, M4A, OGG, FLAC, AAC, WEBM, MP4, AVI, MOV, MKV, etc.).")
	ErrFileTooLarge    = errors.New("File is too large. Maximum size is 100MB.")
)

var allowedTypes = map[string]bool{
	// audio
	"audio/mpeg":     true,
	"audio/wav":      true,
	"audio/wave":     true,
	"audio/x-wav":    true,
	"audio/mp4":      true,
	"audio/x-m4a":    true,
	"audio/ogg":      true,
	"audio/flac":     true,
	"audio/x-flac":   true,
	"audio/aac":      true,
	"audio/x-ms-wma": true,
	"audio/webm":     true,
	// video
	"video/mp4":        true,
	"video/x-msvideo":  true,
	"video/quicktime":  true,
	"video/x-matroska": true,
	"video/x-flv":      true,
	"video/x-ms-wmv":   true,
	"video/webm":       true,
	"video/mpeg":       true,
	"video/3gpp":       true,
	"video/mp2t":       true,
}

var allowedExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".ogg": true,
	".flac": true, ".aac": true, ".wma": true, ".webm": true,
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true,
	".flv": true, ".wmv": true, ".mpeg": true, ".mpg": true,
	".3gp": true, ".m4v": true, ".ts": true,
}

// File describes a candidate upload.
type File struct {
	Name     string
	MIMEType string
	Size     int64
}

// AllowedMIMEType reports whether t is in the media-type allow-list.
func AllowedMIMEType(t string) bool {
	return allowedTypes[strings.ToLower(t)]
}

// AllowedExtension reports whether the extension of name is in the allow-list.
func AllowedExtension(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsValidType accepts a file when either its declared type or its extension
// is allowed.
func IsValidType(f File) bool {
	return AllowedMIMEType(f.MIMEType) || AllowedExtension(f.Name)
}

// Validate checks type then size.
func Validate(f File) error {
	if !IsValidType(f) {
		return ErrInvalidFileType
	}
	if f.Size > MaxFileSize {
		return ErrFileTooLarge
	}
	return nil
}

// TypeByName guesses the declared media type from the file name. Parameters
// such as charset are dropped.
func TypeByName(name string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if t == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}
