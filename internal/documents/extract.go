package documents

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"hotelpricing/internal/logger"
	"hotelpricing/internal/storage"

	"github.com/google/uuid"
)

const maxArchiveEntries = 5000

// Extractor unpacks stored uploads and describes the files inside.
type Extractor struct {
	store    storage.Storage
	maxEntry int64
	log      *slog.Logger
}

func NewExtractor(store storage.Storage, maxEntry int64) *Extractor {
	return &Extractor{
		store:    store,
		maxEntry: maxEntry,
		log:      logger.For("extractor"),
	}
}

// Extract returns the files contained in u. Archives are unpacked into
// storage under uploads/<uploadID>/; other files describe themselves.
func (e *Extractor) Extract(ctx context.Context, u *Upload) ([]ExtractedFile, error) {
	data, err := e.store.Get(ctx, u.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("load original: %w", err)
	}

	if u.FileType != TypeZip {
		f := e.describe(u.OriginalFileName, "", data)
		f.StorageKey = u.StorageKey
		return []ExtractedFile{f}, nil
	}

	return e.extractZip(ctx, u.ID, data)
}

func (e *Extractor) extractZip(ctx context.Context, uploadID string, data []byte) (files []ExtractedFile, err error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if len(zr.File) > maxArchiveEntries {
		return nil, fmt.Errorf("archive has %d entries, limit is %d", len(zr.File), maxArchiveEntries)
	}

	var stored []string
	defer func() {
		if err != nil {
			e.discard(context.WithoutCancel(ctx), uploadID, stored)
		}
	}()

	files = []ExtractedFile{}
	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if zf.FileInfo().IsDir() {
			continue
		}

		name, folder, ok := entryPath(zf.Name)
		if !ok {
			e.log.Warn("skipping archive entry", "entry", zf.Name)
			continue
		}
		if zf.UncompressedSize64 > uint64(e.maxEntry) {
			e.log.Warn("skipping oversized archive entry", "entry", zf.Name, "size", zf.UncompressedSize64)
			continue
		}

		content, err := readEntry(zf, e.maxEntry)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", zf.Name, err)
		}

		key := path.Join("uploads", uploadID, folder, name)
		if _, err := e.store.Put(ctx, key, bytes.NewReader(content), int64(len(content)), ContentType(name)); err != nil {
			return nil, fmt.Errorf("store %s: %w", key, err)
		}
		stored = append(stored, key)

		f := e.describe(name, folder, content)
		f.StorageKey = key
		files = append(files, f)
	}

	e.log.Info("archive extracted", "upload", uploadID, "files", len(files))
	return files, nil
}

// discard removes the entries of a failed extraction so a retry starts clean.
func (e *Extractor) discard(ctx context.Context, uploadID string, keys []string) {
	for _, key := range keys {
		if err := e.store.Delete(ctx, key); err != nil {
			e.log.Warn("orphaned archive entry", "upload", uploadID, "key", key, "err", err)
		}
	}
	if len(keys) > 0 {
		e.log.Info("partial extraction removed", "upload", uploadID, "files", len(keys))
	}
}

func (e *Extractor) describe(name, folder string, data []byte) ExtractedFile {
	f := ExtractedFile{
		ID:         uuid.New().String(),
		FileName:   name,
		FolderPath: folder,
		FileType:   ClassifyFile(name),
		Size:       int64(len(data)),
	}

	switch f.FileType {
	case TypeExcel:
		sheets, err := ListWorksheets(name, data)
		if err != nil {
			e.log.Warn("worksheet listing failed", "file", name, "err", err)
		}
		f.Worksheets = sheets
	case TypePDF:
		pages, err := PDFPageCount(data)
		if err != nil {
			e.log.Warn("pdf page count failed", "file", name, "err", err)
		}
		f.PageCount = pages
	}
	return f
}

// entryPath splits an archive entry into base name and folder. It rejects
// entries escaping the archive root and skips macOS metadata and dot files.
func entryPath(entry string) (name, folder string, ok bool) {
	p := strings.ReplaceAll(entry, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", "", false
	}

	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", "", false
	}

	for _, part := range strings.Split(clean, "/") {
		if part == "__MACOSX" || strings.HasPrefix(part, ".") {
			return "", "", false
		}
	}

	folder = path.Dir(clean)
	if folder == "." {
		folder = ""
	}
	return path.Base(clean), folder, true
}

func readEntry(zf *zip.File, limit int64) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("entry exceeds %d bytes", limit)
	}
	return data, nil
}
