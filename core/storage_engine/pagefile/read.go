package pagefile

import (
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
)

// ReadBlock reads page pageNum into memPage, which must hold at least
// PageSize bytes, and moves the cursor to pageNum. On failure the contents
// of memPage are undefined.
func (h *Handle) ReadBlock(pageNum int, memPage []byte) (err error) {
	start := time.Now()
	defer func() { h.observe(opReadBlock, start, err) }()

	file, err := h.file(opReadBlock)
	if err != nil {
		return err
	}
	if memPage == nil {
		return newError(KindFileHandleNotInitialized, opReadBlock, h.fileName, "invalid page buffer", nil)
	}
	if len(memPage) < PageSize {
		return newError(KindReadNonExistingPage, opReadBlock, h.fileName, "page buffer smaller than page size", nil)
	}
	if pageNum < 0 || pageNum >= h.totalPages {
		return newError(KindReadNonExistingPage, opReadBlock, h.fileName, "page does not exist", nil)
	}

	offset := int64(pageNum) * PageSize
	n, err := file.ReadAt(memPage[:PageSize], offset)
	if n != PageSize {
		if err == nil || errors.Is(err, io.EOF) {
			err = errShortRead(n)
		}
		return newError(KindReadNonExistingPage, opReadBlock, h.fileName, "could not read page", err)
	}

	h.curPagePos = pageNum
	h.sm.pagesRead(1)
	h.logger.Debug("Read page", zap.Int("pageNum", pageNum))
	return nil
}

// ReadFirstBlock reads page 0.
func (h *Handle) ReadFirstBlock(memPage []byte) error {
	if err := h.checkNavigable(); err != nil {
		return err
	}
	return h.ReadBlock(0, memPage)
}

// ReadPreviousBlock reads the page before the cursor.
func (h *Handle) ReadPreviousBlock(memPage []byte) error {
	if err := h.checkNavigable(); err != nil {
		return err
	}
	if h.curPagePos <= 0 {
		return h.navigationError("no previous page")
	}
	return h.ReadBlock(h.curPagePos-1, memPage)
}

// ReadCurrentBlock re-reads the page under the cursor.
func (h *Handle) ReadCurrentBlock(memPage []byte) error {
	if err := h.checkNavigable(); err != nil {
		return err
	}
	return h.ReadBlock(h.curPagePos, memPage)
}

// ReadNextBlock reads the page after the cursor. It fails when the cursor
// is already on the last page.
func (h *Handle) ReadNextBlock(memPage []byte) error {
	if err := h.checkNavigable(); err != nil {
		return err
	}
	if h.curPagePos >= h.totalPages-1 {
		return h.navigationError("no next page")
	}
	return h.ReadBlock(h.curPagePos+1, memPage)
}

// ReadLastBlock reads the final page of the file.
func (h *Handle) ReadLastBlock(memPage []byte) error {
	if err := h.checkNavigable(); err != nil {
		return err
	}
	if h.totalPages == 0 {
		return h.navigationError("no pages in file")
	}
	return h.ReadBlock(h.totalPages-1, memPage)
}

// checkNavigable rejects nil and closed handles before a navigation target
// is resolved, so they report ErrFileHandleNotInitialized.
func (h *Handle) checkNavigable() error {
	_, err := h.file(opReadBlock)
	return err
}

func (h *Handle) navigationError(msg string) error {
	err := newError(KindReadNonExistingPage, opReadBlock, h.fileName, msg, nil)
	h.observe(opReadBlock, time.Now(), err)
	return err
}
