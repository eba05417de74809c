package pager

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 4096 // 4 kilobytes
	DefaultMaxPages = 100
)

var (
	ErrCorruptFile        = errors.New("corrupt db file")
	ErrResourceExhausted  = errors.New("page limit reached")
	ErrPagerClosed        = errors.New("pager is closed")
	errInvalidPagerConfig = errors.New("invalid pager config")
)

type DBFile interface {
	io.ReadSeeker
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// IOError wraps a failed read, write or seek on the database file.
// These are fatal, the file should not be used any further.
type IOError struct {
	Op      string
	PageIdx uint32
	Err     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s page %d: %s", e.Op, e.PageIdx, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Pager owns the database file and an in-memory cache of fixed-size pages.
// Pages are loaded lazily and only written back by Flush / FlushAll.
type Pager struct {
	pageSize   uint32
	maxPages   uint32
	totalPages uint32 // highest used page index + 1
	filePages  uint32 // pages present in the file when it was opened

	// pages is a sparse array where index = page index,
	// nil entries are pages not loaded yet
	pages [][]byte

	file     DBFile
	fileSize int64
	closed   bool

	logger *zap.Logger
}

// New opens the pager on top of the database file. The file length has to be
// an exact multiple of the page size.
func New(logger *zap.Logger, file DBFile, pageSize, maxPages uint32) (*Pager, error) {
	if pageSize == 0 || maxPages == 0 {
		return nil, fmt.Errorf("%w: page size %d, max pages %d", errInvalidPagerConfig, pageSize, maxPages)
	}

	aPager := &Pager{
		pageSize: pageSize,
		maxPages: maxPages,
		pages:    make([][]byte, 0, maxPages),
		file:     file,
		logger:   logger,
	}

	fileSize, err := aPager.file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, &IOError{Op: "seek", Err: err}
	}
	aPager.fileSize = fileSize

	// Basic check to verify file size is a multiple of page size
	if fileSize%int64(pageSize) != 0 {
		return nil, fmt.Errorf("%w: file size %d is not a whole number of %d byte pages", ErrCorruptFile, fileSize, pageSize)
	}

	totalPages := fileSize / int64(pageSize)
	if totalPages > int64(maxPages) {
		return nil, fmt.Errorf("%w: file has %d pages, max pages %d", ErrResourceExhausted, totalPages, maxPages)
	}
	aPager.totalPages = uint32(totalPages)
	aPager.filePages = uint32(totalPages)

	logger.Sugar().With(
		"file_size", fileSize,
		"total_pages", int(aPager.totalPages),
		"page_size", int(pageSize),
	).Debug("opened pager")

	return aPager, nil
}

func (p *Pager) PageSize() uint32 {
	return p.pageSize
}

func (p *Pager) MaxPages() uint32 {
	return p.maxPages
}

// TotalPages is the number of pages in use, which is also the index
// of the next unused page.
func (p *Pager) TotalPages() uint32 {
	return p.totalPages
}

// CanAllocate reports whether n more pages fit into the page budget.
func (p *Pager) CanAllocate(n uint32) bool {
	return uint64(p.totalPages)+uint64(n) <= uint64(p.maxPages)
}

// GetPage returns a cached page or loads it. Pages past the end of the file
// start zeroed. Requesting a page extends the number of used pages.
func (p *Pager) GetPage(ctx context.Context, pageIdx uint32) ([]byte, error) {
	if p.closed {
		return nil, ErrPagerClosed
	}
	if pageIdx >= p.maxPages {
		return nil, fmt.Errorf("%w: page index %d, max pages %d", ErrResourceExhausted, pageIdx, p.maxPages)
	}

	if int(pageIdx) < len(p.pages) && p.pages[pageIdx] != nil {
		return p.pages[pageIdx], nil
	}

	// Cache miss, allocate memory and load from file if the page is there
	buf := make([]byte, p.pageSize)
	if pageIdx < p.filePages {
		offset := int64(pageIdx) * int64(p.pageSize)
		n, err := p.file.ReadAt(buf, offset)
		if err != nil && !(errors.Is(err, io.EOF) && n == len(buf)) {
			return nil, &IOError{Op: "read", PageIdx: pageIdx, Err: err}
		}
	}

	// Extend sparse array with nil entries to accommodate pageIdx
	for len(p.pages) < int(pageIdx)+1 {
		p.pages = append(p.pages, nil)
	}
	p.pages[pageIdx] = buf

	if pageIdx >= p.totalPages {
		p.totalPages = pageIdx + 1
	}

	return buf, nil
}

// Flush writes a whole page back to its offset in the file.
// Pages which were never loaded are skipped.
func (p *Pager) Flush(ctx context.Context, pageIdx uint32) error {
	if p.closed {
		return ErrPagerClosed
	}
	if int(pageIdx) >= len(p.pages) || p.pages[pageIdx] == nil {
		return nil
	}

	_, err := p.file.WriteAt(p.pages[pageIdx], int64(pageIdx)*int64(p.pageSize))
	if err != nil {
		return &IOError{Op: "write", PageIdx: pageIdx, Err: err}
	}
	return nil
}

// FlushAll writes every resident page in ascending page order.
func (p *Pager) FlushAll(ctx context.Context) error {
	flushed := 0
	for pageIdx := range p.pages {
		if p.pages[pageIdx] == nil {
			continue
		}
		if err := p.Flush(ctx, uint32(pageIdx)); err != nil {
			return err
		}
		flushed += 1
	}

	p.logger.Sugar().With(
		"flushed_pages", flushed,
		"total_pages", int(p.totalPages),
	).Debug("flushed pages")

	return nil
}

// Close flushes all pages and closes the file. Errors from both steps are returned.
func (p *Pager) Close(ctx context.Context) error {
	if p.closed {
		return nil
	}
	err := p.FlushAll(ctx)
	p.closed = true
	p.pages = nil
	return multierr.Append(err, p.file.Close())
}
