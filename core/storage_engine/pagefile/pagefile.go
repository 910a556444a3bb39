// Package pagefile implements fixed-size page access to flat files: the
// lowest layer of the storage engine. A paged file is a plain concatenation
// of PageSize byte pages with no header; page i lives at byte offset
// i*PageSize.
//
// A Handle is not safe for concurrent use, and only one Handle should be
// open on a given path at a time.
package pagefile

import (
	"os"
	"time"

	"github.com/google/uuid"
	internaltelemetry "github.com/sushant-115/pagestore/internal/telemetry"
	"go.uber.org/zap"
)

// PageSize is the size in bytes of every page in every page file.
const PageSize = 4096

const (
	opCreate         = "create"
	opOpen           = "open"
	opClose          = "close"
	opDestroy        = "destroy"
	opReadBlock      = "read_block"
	opWriteBlock     = "write_block"
	opAppend         = "append_empty_block"
	opEnsureCapacity = "ensure_capacity"
	opSync           = "sync"
)

// zeroPage is only ever written from, never into.
var zeroPage [PageSize]byte

// Config controls how page files are written.
type Config struct {
	// SyncWrites makes every page write and append fsync the file before returning.
	SyncWrites bool `yaml:"sync_writes"`
	// FileMode is the permission used when creating page files.
	FileMode uint32 `yaml:"file_mode"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		SyncWrites: false,
		FileMode:   0o644,
	}
}

// StorageManager creates, opens and destroys page files. It carries the
// configuration, logger and metrics shared by all handles it opens.
type StorageManager struct {
	config  Config
	logger  *zap.Logger
	metrics *internaltelemetry.PageFileMetrics
}

// NewStorageManager returns a StorageManager. logger and metrics may be nil.
func NewStorageManager(config Config, logger *zap.Logger, metrics *internaltelemetry.PageFileMetrics) *StorageManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.FileMode == 0 {
		config.FileMode = DefaultConfig().FileMode
	}
	return &StorageManager{
		config:  config,
		logger:  logger.Named("pagefile"),
		metrics: metrics,
	}
}

// Config returns the manager's configuration.
func (sm *StorageManager) Config() Config { return sm.config }

// CreatePageFile creates path, truncating any existing content, and writes
// a single zero-filled page. The file is not left open.
func (sm *StorageManager) CreatePageFile(path string) (err error) {
	start := time.Now()
	defer func() { sm.observe(opCreate, path, start, err) }()

	if path == "" {
		return newError(KindFileNotFound, opCreate, path, "invalid filename", nil)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(sm.config.FileMode))
	if err != nil {
		return newError(KindWriteFailed, opCreate, path, "could not create page file", err)
	}

	n, err := file.Write(zeroPage[:])
	if err == nil && n != PageSize {
		err = errShortWrite(n)
	}
	if err != nil {
		_ = file.Close()
		return newError(KindWriteFailed, opCreate, path, "could not write empty page", err)
	}
	if sm.config.SyncWrites {
		if err := file.Sync(); err != nil {
			_ = file.Close()
			return newError(KindWriteFailed, opCreate, path, "could not sync page file", err)
		}
	}
	if err := file.Close(); err != nil {
		return newError(KindWriteFailed, opCreate, path, "could not close page file", err)
	}

	sm.logger.Info("Page file created", zap.String("path", path))
	return nil
}

// OpenPageFile opens an existing page file for reading and writing. The
// returned handle is positioned on page 0 and its page count is the file
// size divided by PageSize; a trailing partial page is ignored.
func (sm *StorageManager) OpenPageFile(path string) (h *Handle, err error) {
	start := time.Now()
	defer func() { sm.observe(opOpen, path, start, err) }()

	if path == "" {
		return nil, newError(KindFileNotFound, opOpen, path, "invalid filename", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, newError(KindFileNotFound, opOpen, path, "file does not exist", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, newError(KindFileNotFound, opOpen, path, "could not open file", err)
	}
	fi, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, newError(KindFileNotFound, opOpen, path, "could not stat file", err)
	}

	id := uuid.New()
	h = &Handle{
		id:         id,
		fileName:   path,
		totalPages: int(fi.Size() / PageSize),
		curPagePos: 0,
		res:        &resource{file: file},
		sm:         sm,
		logger:     sm.logger.With(zap.String("path", path), zap.String("handle_id", id.String())),
	}
	sm.handleOpened()
	h.logger.Info("Page file opened", zap.Int("totalNumPages", h.totalPages))
	return h, nil
}

// DestroyPageFile removes path from storage. It does not touch open handles;
// operations on a handle whose file was destroyed are outside the contract.
func (sm *StorageManager) DestroyPageFile(path string) (err error) {
	start := time.Now()
	defer func() { sm.observe(opDestroy, path, start, err) }()

	if path == "" {
		return newError(KindFileNotFound, opDestroy, path, "invalid filename", nil)
	}
	if err := os.Remove(path); err != nil {
		return newError(KindFileNotFound, opDestroy, path, "could not delete file", err)
	}
	sm.logger.Info("Page file destroyed", zap.String("path", path))
	return nil
}

// resource is the open OS file owned by a handle. A handle without a
// resource is closed.
type resource struct {
	file *os.File
}

// Handle is an open page file: its path, size in pages and cursor.
type Handle struct {
	id         uuid.UUID
	fileName   string
	totalPages int
	curPagePos int
	res        *resource

	sm     *StorageManager
	logger *zap.Logger
}

// file returns the open OS file, or ErrFileHandleNotInitialized when h is
// nil or closed.
func (h *Handle) file(op string) (*os.File, error) {
	if h == nil {
		return nil, newError(KindFileHandleNotInitialized, op, "", "file handle not initialized", nil)
	}
	if h.res == nil {
		return nil, newError(KindFileHandleNotInitialized, op, "", "file not open", nil)
	}
	return h.res.file, nil
}

// ID identifies the handle in logs. It is the zero UUID for a nil handle.
func (h *Handle) ID() uuid.UUID {
	if h == nil {
		return uuid.Nil
	}
	return h.id
}

// FileName returns the path the handle was opened with, or "" once closed.
func (h *Handle) FileName() string {
	if h == nil {
		return ""
	}
	return h.fileName
}

// TotalNumPages returns the number of pages in the file.
func (h *Handle) TotalNumPages() int {
	if h == nil {
		return 0
	}
	return h.totalPages
}

// GetBlockPos returns the current page position, or -1 for a nil handle.
func (h *Handle) GetBlockPos() int {
	if h == nil {
		return -1
	}
	return h.curPagePos
}

// IsOpen reports whether the handle still owns an open file.
func (h *Handle) IsOpen() bool {
	return h != nil && h.res != nil
}

// Close releases the file and resets the handle. Closing a nil or already
// closed handle fails with ErrFileHandleNotInitialized.
func (h *Handle) Close() (err error) {
	start := time.Now()
	defer func() { h.observe(opClose, start, err) }()

	file, err := h.file(opClose)
	if err != nil {
		return err
	}
	path := h.fileName
	closeErr := file.Close()

	h.res = nil
	h.fileName = ""
	h.totalPages = 0
	h.curPagePos = 0
	h.sm.handleClosed()

	if closeErr != nil {
		return newError(KindWriteFailed, opClose, path, "could not close file", closeErr)
	}
	h.logger.Info("Page file closed")
	return nil
}

// Sync flushes the file's contents to stable storage.
func (h *Handle) Sync() (err error) {
	start := time.Now()
	defer func() { h.observe(opSync, start, err) }()

	file, err := h.file(opSync)
	if err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return newError(KindWriteFailed, opSync, h.fileName, "could not sync file", err)
	}
	return nil
}

// NewPageBuffer allocates a zeroed buffer of exactly one page.
func NewPageBuffer() []byte {
	return make([]byte, PageSize)
}
