package medialoader

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode/v2"
)

// readEntry opens an entry of a random access archive and reads it whole.
func readEntry(name string, open func() (io.ReadCloser, error)) ([]byte, string, error) {
	rc, err := open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s in archive: %w", name, err)
	}
	defer rc.Close()

	data, err := limitedRead(rc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, filepath.Base(name), nil
}

// firstVideo returns the index of the first regular file entry whose name
// has a video extension, or -1.
func firstVideo(n int, info func(i int) (string, fs.FileInfo), extensions []string) int {
	for i := 0; i < n; i++ {
		name, fi := info(i)
		if fi.IsDir() || !isMediaFile(name, extensions) {
			continue
		}
		return i
	}
	return -1
}

func extractFromZIP(path string, extensions []string) ([]byte, string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	i := firstVideo(len(r.File), func(i int) (string, fs.FileInfo) {
		return r.File[i].Name, r.File[i].FileInfo()
	}, extensions)
	if i < 0 {
		return nil, "", ErrNoMediaFile
	}
	f := r.File[i]
	return readEntry(f.Name, func() (io.ReadCloser, error) { return f.Open() })
}

func extractFrom7z(path string, extensions []string) ([]byte, string, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open 7z: %w", err)
	}
	defer r.Close()

	i := firstVideo(len(r.File), func(i int) (string, fs.FileInfo) {
		return r.File[i].Name, r.File[i].FileInfo()
	}, extensions)
	if i < 0 {
		return nil, "", ErrNoMediaFile
	}
	f := r.File[i]
	return readEntry(f.Name, func() (io.ReadCloser, error) { return f.Open() })
}

// extractFromGzip handles both tarballs and single compressed files. A
// single file must still carry a video extension once ".gz" is removed.
func extractFromGzip(path string, extensions []string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open gzip: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gr.Close()

	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") {
		return extractFromTar(gr, extensions)
	}

	name := filepath.Base(path)
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		name = name[:len(name)-len(".gz")]
	}
	if !isMediaFile(name, extensions) {
		return nil, "", ErrNoMediaFile
	}
	data, err := limitedRead(gr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decompress gzip: %w", err)
	}
	return data, name, nil
}

func extractFromTar(r io.Reader, extensions []string) ([]byte, string, error) {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, "", ErrNoMediaFile
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || !isMediaFile(hdr.Name, extensions) {
			continue
		}
		data, err := limitedRead(tr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s from tar: %w", hdr.Name, err)
		}
		return data, filepath.Base(hdr.Name), nil
	}
}

// extractFromRAR scans a RAR archive sequentially.
func extractFromRAR(path string, extensions []string) ([]byte, string, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open rar: %w", err)
	}
	defer r.Close()

	for {
		hdr, err := r.Next()
		if err == io.EOF {
			return nil, "", ErrNoMediaFile
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read rar entry: %w", err)
		}
		if hdr.IsDir || !isMediaFile(hdr.Name, extensions) {
			continue
		}
		data, err := limitedRead(r)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", hdr.Name, err)
		}
		return data, filepath.Base(hdr.Name), nil
	}
}
