// Package medialoader resolves a user supplied path to a playable video.
// Plain video files are played from disk; archives (ZIP, 7z, gzip, tar.gz,
// RAR) are searched for the first video entry, which is extracted into
// memory.
package medialoader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06} // empty archive
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21} // "Rar!"
)

// maxMediaSize bounds a single extracted video.
const maxMediaSize = 512 * 1024 * 1024

// VideoExtensions are the file extensions treated as video by LoadVideo.
var VideoExtensions = []string{
	".mp4", ".mkv", ".avi", ".webm", ".mov", ".m4v",
	".mpg", ".mpeg", ".ts", ".flv", ".wmv",
}

var (
	// ErrNoMediaFile is returned when an archive holds no video entry.
	ErrNoMediaFile = errors.New("no video file found in archive")
	// ErrUnsupportedFormat is returned for paths that are neither a known
	// archive nor a video.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileTooLarge is returned when an extracted entry exceeds the size
	// limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size limit")
)

type formatType int

const (
	formatUnknown formatType = iota
	formatRaw
	formatZIP
	format7z
	formatGzip
	formatRAR
)

// Media is a resolved video. Exactly one of Path and Data is set.
type Media struct {
	// Name is the base name of the video, used for display and logging.
	Name string
	// Path is set for videos played directly from disk.
	Path string
	// Data holds a video extracted from an archive.
	Data []byte
}

// InMemory reports whether the video was extracted from an archive.
func (m Media) InMemory() bool {
	return m.Data != nil
}

// LoadVideo is Load with VideoExtensions.
func LoadVideo(path string) (Media, error) {
	return Load(path, VideoExtensions)
}

// Load resolves path. Archives are detected by magic bytes first and file
// extension second; the first entry matching one of extensions is
// extracted. A plain file is accepted when its extension matches and is
// left on disk.
func Load(path string, extensions []string) (Media, error) {
	f, err := os.Open(path)
	if err != nil {
		return Media{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	header := make([]byte, 16)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return Media{}, fmt.Errorf("failed to read file header: %w", err)
	}

	var (
		name string
		data []byte
	)
	switch detectFormat(header[:n], path, extensions) {
	case formatRaw:
		return Media{Name: filepath.Base(path), Path: path}, nil
	case formatZIP:
		data, name, err = extractFromZIP(path, extensions)
	case format7z:
		data, name, err = extractFrom7z(path, extensions)
	case formatGzip:
		data, name, err = extractFromGzip(path, extensions)
	case formatRAR:
		data, name, err = extractFromRAR(path, extensions)
	default:
		return Media{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return Media{}, err
	}
	if data == nil {
		data = []byte{}
	}
	return Media{Name: name, Data: data}, nil
}

// detectFormat classifies a file from its leading bytes, falling back to
// its extension.
func detectFormat(header []byte, path string, extensions []string) formatType {
	switch {
	case bytes.HasPrefix(header, magicZIP), bytes.HasPrefix(header, magicZIPEnd):
		return formatZIP
	case bytes.HasPrefix(header, magicRAR):
		return formatRAR
	case bytes.HasPrefix(header, magic7z):
		return format7z
	case bytes.HasPrefix(header, magicGzip):
		return formatGzip
	}

	lower := strings.ToLower(path)
	switch ext := filepath.Ext(lower); ext {
	case ".zip":
		return formatZIP
	case ".7z":
		return format7z
	case ".gz", ".tgz":
		return formatGzip
	case ".rar":
		return formatRAR
	}
	if isMediaFile(lower, extensions) {
		return formatRaw
	}
	return formatUnknown
}

// isMediaFile reports whether name ends in one of extensions, ignoring case.
func isMediaFile(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// limitedRead reads all of r, failing once more than maxMediaSize bytes
// arrive.
func limitedRead(r io.Reader) ([]byte, error) {
	return readAtMost(r, maxMediaSize)
}

func readAtMost(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	return data, nil
}
