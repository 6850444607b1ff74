package minitable

import (
	"context"
	"fmt"
	"io"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type DBFile interface {
	io.ReadSeeker
	io.ReaderAt
	io.WriterAt
	io.Closer
}

type pagerImpl struct {
	totalPages uint32 // total number of pages, including new pages not flushed yet
	filePages  uint32 // number of pages present in the file when opened
	maxPages   uint32

	// pages are never evicted, the whole table lives in memory
	// until the pager is closed
	pages map[PageIndex]*Page

	file     DBFile
	fileSize int64
	logger   *zap.Logger
}

// NewPager wraps the database file. The file size must be a multiple
// of page size, otherwise the file is considered corrupted.
func NewPager(logger *zap.Logger, file DBFile, maxPages uint32) (*pagerImpl, error) {
	if maxPages == 0 {
		maxPages = DefaultMaxPages
	}
	aPager := &pagerImpl{
		maxPages: maxPages,
		pages:    make(map[PageIndex]*Page),
		file:     file,
		logger:   logger,
	}

	fileSize, err := aPager.file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seek end of db file: %w", err)
	}
	aPager.fileSize = fileSize

	// Basic check to verify file size is a multiple of page size (4096B)
	if fileSize%PageSize != 0 {
		return nil, fmt.Errorf("%w: %d", ErrCorruptFile, fileSize)
	}

	totalPages := fileSize / PageSize
	if totalPages > int64(maxPages) {
		return nil, fmt.Errorf("%w: file has %d pages, limit is %d", ErrPageOutOfBounds, totalPages, maxPages)
	}
	aPager.totalPages = uint32(totalPages)
	aPager.filePages = uint32(totalPages)

	return aPager, nil
}

func (p *pagerImpl) TotalPages() uint32 {
	return p.totalPages
}

func (p *pagerImpl) MaxPages() uint32 {
	return p.maxPages
}

// GetPage returns a cached page or loads it. Pages past the end of the file
// start as empty leaf nodes and extend the total page count.
func (p *pagerImpl) GetPage(ctx context.Context, pageIdx PageIndex) (*Page, error) {
	if p.pages == nil {
		return nil, ErrPagerClosed
	}
	if uint32(pageIdx) >= p.maxPages {
		return nil, fmt.Errorf("%w: page %d, max pages %d", ErrPageOutOfBounds, pageIdx, p.maxPages)
	}

	if aPage, ok := p.pages[pageIdx]; ok {
		return aPage, nil
	}

	buf := make([]byte, PageSize)

	if uint32(pageIdx) < p.filePages {
		offset := int64(pageIdx) * PageSize
		if _, err := p.file.ReadAt(buf, offset); err != nil {
			return nil, fmt.Errorf("read page %d: %w", pageIdx, err)
		}
		p.logger.Sugar().With("page_index", int(pageIdx)).Debug("loaded page from file")
	}

	aPage, err := unmarshalPage(pageIdx, buf)
	if err != nil {
		return nil, fmt.Errorf("unmarshal page %d: %w", pageIdx, err)
	}
	p.pages[pageIdx] = aPage

	if uint32(pageIdx) >= p.totalPages {
		p.totalPages = uint32(pageIdx) + 1
	}

	return aPage, nil
}

// Flush writes the whole page back to its offset in the file.
func (p *pagerImpl) Flush(ctx context.Context, pageIdx PageIndex) error {
	aPage, ok := p.pages[pageIdx]
	if !ok {
		return fmt.Errorf("%w: page %d", ErrPageNotLoaded, pageIdx)
	}

	buf := make([]byte, PageSize)
	if _, err := marshalPage(aPage, buf); err != nil {
		return fmt.Errorf("error flushing page %d: %w", pageIdx, err)
	}

	if _, err := p.file.WriteAt(buf, int64(pageIdx)*PageSize); err != nil {
		return fmt.Errorf("write page %d: %w", pageIdx, err)
	}

	return nil
}

// Close flushes every loaded page and closes the file, the pager
// cannot be used afterwards.
func (p *pagerImpl) Close(ctx context.Context) error {
	indexes := make([]PageIndex, 0, len(p.pages))
	for pageIdx := range p.pages {
		indexes = append(indexes, pageIdx)
	}
	slices.Sort(indexes)

	var err error
	for _, pageIdx := range indexes {
		err = multierr.Append(err, p.Flush(ctx, pageIdx))
	}
	err = multierr.Append(err, p.file.Close())

	p.logger.Sugar().With(
		"flushed_pages", len(indexes),
		"total_pages", int(p.totalPages),
	).Debug("closed pager")

	p.pages = nil

	return err
}
