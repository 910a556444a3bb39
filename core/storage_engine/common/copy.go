package common

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"sync"

	"github.com/sushant-115/pagestore/core/storage_engine/pagefile"
	"golang.org/x/time/rate"
)

var bufPool = sync.Pool{
	New: func() interface{} { return pagefile.NewPageBuffer() },
}

// CopyResult describes a finished copy.
type CopyResult struct {
	Pages    int
	Checksum []byte // sha256 of the source pages, set only when verifying
}

// CopyPageFile copies every page of srcPath into a new page file at dstPath
// through the page file API. dstPath is created (or truncated) first. When
// rateBytesPerSec > 0 the copy is throttled to that rate. With verify set
// the destination is re-read and its checksum compared with the source's.
func CopyPageFile(ctx context.Context, sm *pagefile.StorageManager, srcPath, dstPath string, rateBytesPerSec int64, verify bool) (*CopyResult, error) {
	if filepath.Clean(srcPath) == filepath.Clean(dstPath) {
		return nil, fmt.Errorf("src and dst are the same file: %s", srcPath)
	}

	src, err := sm.OpenPageFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open src: %w", err)
	}
	defer src.Close()

	// A created page file always holds one page, so an empty source has no
	// faithful copy.
	total := src.TotalNumPages()
	if total == 0 {
		return nil, fmt.Errorf("src %s: %w: no pages to copy", srcPath, pagefile.ErrReadNonExistingPage)
	}

	if err := checkDistinct(srcPath, dstPath); err != nil {
		return nil, err
	}
	if err := sm.CreatePageFile(dstPath); err != nil {
		return nil, fmt.Errorf("create dst: %w", err)
	}
	dst, err := sm.OpenPageFile(dstPath)
	if err != nil {
		return nil, fmt.Errorf("open dst: %w", err)
	}
	defer dst.Close()

	if err := dst.EnsureCapacity(total); err != nil {
		return nil, fmt.Errorf("grow dst: %w", err)
	}

	// Set up throughput limiter using golang.org/x/time/rate
	var limiter *rate.Limiter
	if rateBytesPerSec > 0 {
		burst := pagefile.PageSize
		if rateBytesPerSec > int64(burst) {
			burst = int(rateBytesPerSec)
		}
		limiter = rate.NewLimiter(rate.Limit(rateBytesPerSec), burst)
	}

	var srcSum hash.Hash
	if verify {
		srcSum = sha256.New()
	}

	buf := bufPool.Get().([]byte)
	defer bufPool.Put(buf)

	for pageNum := 0; pageNum < total; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limiter != nil {
			if err := limiter.WaitN(ctx, pagefile.PageSize); err != nil {
				return nil, fmt.Errorf("rate limiter error: %w", err)
			}
		}
		if err := src.ReadBlock(pageNum, buf); err != nil {
			return nil, fmt.Errorf("read page %d: %w", pageNum, err)
		}
		if err := dst.WriteBlock(pageNum, buf); err != nil {
			return nil, fmt.Errorf("write page %d: %w", pageNum, err)
		}
		if srcSum != nil {
			srcSum.Write(buf[:pagefile.PageSize])
		}
	}

	if err := dst.Sync(); err != nil {
		return nil, fmt.Errorf("sync error: %w", err)
	}

	res := &CopyResult{Pages: total}
	if !verify {
		return res, nil
	}

	res.Checksum = srcSum.Sum(nil)
	dstSum, err := checksum(dst, buf)
	if err != nil {
		return nil, fmt.Errorf("verify dst: %w", err)
	}
	if !bytes.Equal(res.Checksum, dstSum) {
		return nil, fmt.Errorf("checksum mismatch: src %x, dst %x", res.Checksum, dstSum)
	}
	return res, nil
}

// checkDistinct fails when dstPath already names srcPath's file through a
// symlink, hard link or alternate path, since creating dst would truncate src.
func checkDistinct(srcPath, dstPath string) error {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("stat src: %w", err)
	}
	dstInfo, err := os.Stat(dstPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat dst: %w", err)
	}
	if os.SameFile(srcInfo, dstInfo) {
		return fmt.Errorf("src and dst are the same file: %s, %s", srcPath, dstPath)
	}
	return nil
}

// checksum hashes every page of h in order.
func checksum(h *pagefile.Handle, buf []byte) ([]byte, error) {
	sum := sha256.New()
	for pageNum := 0; pageNum < h.TotalNumPages(); pageNum++ {
		if err := h.ReadBlock(pageNum, buf); err != nil {
			return nil, err
		}
		sum.Write(buf[:pagefile.PageSize])
	}
	return sum.Sum(nil), nil
}
