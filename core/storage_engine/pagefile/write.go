package pagefile

import (
	"io"
	"time"

	"go.uber.org/zap"
)

// WriteBlock writes the first PageSize bytes of memPage to page pageNum and
// moves the cursor there. Only existing pages can be written; use
// AppendEmptyBlock or EnsureCapacity to grow the file first.
func (h *Handle) WriteBlock(pageNum int, memPage []byte) (err error) {
	start := time.Now()
	defer func() { h.observe(opWriteBlock, start, err) }()

	file, err := h.file(opWriteBlock)
	if err != nil {
		return err
	}
	if memPage == nil {
		return newError(KindFileHandleNotInitialized, opWriteBlock, h.fileName, "invalid page buffer", nil)
	}
	if len(memPage) < PageSize {
		return newError(KindWriteFailed, opWriteBlock, h.fileName, "page buffer smaller than page size", nil)
	}
	if pageNum < 0 || pageNum >= h.totalPages {
		return newError(KindWriteFailed, opWriteBlock, h.fileName, "invalid page number", nil)
	}

	offset := int64(pageNum) * PageSize
	n, err := file.WriteAt(memPage[:PageSize], offset)
	if err == nil && n != PageSize {
		err = errShortWrite(n)
	}
	if err != nil {
		return newError(KindWriteFailed, opWriteBlock, h.fileName, "could not write page", err)
	}
	if err := h.flush(file); err != nil {
		return newError(KindWriteFailed, opWriteBlock, h.fileName, "could not flush page", err)
	}

	h.curPagePos = pageNum
	h.sm.pagesWritten(1)
	h.logger.Debug("Wrote page", zap.Int("pageNum", pageNum))
	return nil
}

// WriteCurrentBlock writes memPage to the page under the cursor.
func (h *Handle) WriteCurrentBlock(memPage []byte) error {
	if h == nil {
		return newError(KindFileHandleNotInitialized, opWriteBlock, "", "file handle not initialized", nil)
	}
	return h.WriteBlock(h.curPagePos, memPage)
}

// AppendEmptyBlock adds one zero-filled page at the end of the file. The
// offset comes from the file's actual length, not from the page count. The
// cursor does not move.
func (h *Handle) AppendEmptyBlock() (err error) {
	start := time.Now()
	defer func() { h.observe(opAppend, start, err) }()
	return h.appendEmptyBlock()
}

// appendEmptyBlock does the work of AppendEmptyBlock without recording it,
// so EnsureCapacity reports a failed append once, under its own op.
func (h *Handle) appendEmptyBlock() error {
	file, err := h.file(opAppend)
	if err != nil {
		return err
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return newError(KindWriteFailed, opAppend, h.fileName, "could not seek to end of file", err)
	}
	n, err := file.WriteAt(zeroPage[:], end)
	if err == nil && n != PageSize {
		err = errShortWrite(n)
	}
	if err != nil {
		return newError(KindWriteFailed, opAppend, h.fileName, "could not append empty page", err)
	}
	if err := h.flush(file); err != nil {
		return newError(KindWriteFailed, opAppend, h.fileName, "could not flush appended page", err)
	}

	h.totalPages++
	h.sm.pagesAppended(1)
	h.logger.Debug("Appended empty page", zap.Int64("offset", end), zap.Int("totalNumPages", h.totalPages))
	return nil
}

// EnsureCapacity appends empty pages until the file holds at least
// numberOfPages pages. numberOfPages must be positive. The first failed
// append is returned as is; pages appended before it are kept.
func (h *Handle) EnsureCapacity(numberOfPages int) (err error) {
	start := time.Now()
	defer func() { h.observe(opEnsureCapacity, start, err) }()

	if _, err := h.file(opEnsureCapacity); err != nil {
		return err
	}
	if numberOfPages <= 0 {
		return newError(KindWriteFailed, opEnsureCapacity, h.fileName, "invalid number of pages", nil)
	}

	for h.totalPages < numberOfPages {
		if err := h.appendEmptyBlock(); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handle) flush(file interface{ Sync() error }) error {
	if !h.sm.config.SyncWrites {
		return nil
	}
	return file.Sync()
}
