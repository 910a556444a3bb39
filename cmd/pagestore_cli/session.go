package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sushant-115/pagestore/core/storage_engine/common"
	"github.com/sushant-115/pagestore/core/storage_engine/pagefile"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// errQuit is returned by processCommand for exit/quit.
var errQuit = errors.New("quit")

// previewBytes is how much of a page "read" commands dump.
const previewBytes = 64

// session holds the single page file handle the shell operates on.
type session struct {
	sm     *pagefile.StorageManager
	handle *pagefile.Handle
	page   []byte
	out    io.Writer
	tracer trace.Tracer
	logger *zap.Logger
}

func newSession(sm *pagefile.StorageManager, out io.Writer, tracer trace.Tracer, logger *zap.Logger) *session {
	return &session{
		sm:     sm,
		page:   pagefile.NewPageBuffer(),
		out:    out,
		tracer: tracer,
		logger: logger,
	}
}

// close releases the open handle, if any.
func (s *session) close() {
	if s.handle.IsOpen() {
		if err := s.handle.Close(); err != nil {
			s.logger.Warn("Failed to close page file on exit", zap.Error(err))
		}
	}
}

// processCommand handles a single command, either from args or interactive mode.
func (s *session) processCommand(ctx context.Context, args []string) (err error) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Error: No command provided.")
		return errors.New("no command provided")
	}
	command := strings.ToLower(args[0])

	_, span := s.tracer.Start(ctx, "pagefile.cli."+command)
	defer func() {
		if err != nil && !errors.Is(err, errQuit) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.printError(err)
		}
		span.End()
	}()
	s.logger.Debug("Processing command", zap.Strings("args", args))

	switch command {
	case "create":
		if len(args) < 2 {
			return usage("create <file>")
		}
		if err := s.sm.CreatePageFile(args[1]); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Created %s with 1 empty page.\n", args[1])
	case "open":
		if len(args) < 2 {
			return usage("open <file>")
		}
		if s.handle.IsOpen() {
			return fmt.Errorf("%s is already open, close it first", s.handle.FileName())
		}
		h, err := s.sm.OpenPageFile(args[1])
		if err != nil {
			return err
		}
		s.handle = h
		span.SetAttributes(attribute.String("pagefile.path", h.FileName()))
		fmt.Fprintf(s.out, "Opened %s: %d pages.\n", h.FileName(), h.TotalNumPages())
	case "close":
		if err := s.handle.Close(); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Closed.")
	case "destroy":
		if len(args) < 2 {
			return usage("destroy <file>")
		}
		if err := s.sm.DestroyPageFile(args[1]); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Destroyed %s.\n", args[1])
	case "info":
		if !s.handle.IsOpen() {
			fmt.Fprintln(s.out, "No page file open.")
			return nil
		}
		fmt.Fprintf(s.out, "File: %s\nPages: %d\nPosition: %d\nHandle: %s\n",
			s.handle.FileName(), s.handle.TotalNumPages(), s.handle.GetBlockPos(), s.handle.ID())
	case "pos":
		fmt.Fprintf(s.out, "Position: %d\n", s.handle.GetBlockPos())
	case "read":
		if len(args) < 2 {
			return usage("read <pageNum>")
		}
		pageNum, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid page number %q: %w", args[1], err)
		}
		return s.readWith(span, func() error { return s.handle.ReadBlock(pageNum, s.page) })
	case "first":
		return s.readWith(span, func() error { return s.handle.ReadFirstBlock(s.page) })
	case "last":
		return s.readWith(span, func() error { return s.handle.ReadLastBlock(s.page) })
	case "current":
		return s.readWith(span, func() error { return s.handle.ReadCurrentBlock(s.page) })
	case "next":
		return s.readWith(span, func() error { return s.handle.ReadNextBlock(s.page) })
	case "prev":
		return s.readWith(span, func() error { return s.handle.ReadPreviousBlock(s.page) })
	case "write":
		if len(args) < 3 {
			return usage("write <pageNum> <pattern>")
		}
		pageNum, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid page number %q: %w", args[1], err)
		}
		if err := s.handle.WriteBlock(pageNum, fillPattern(strings.Join(args[2:], " "))); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Wrote page %d.\n", pageNum)
	case "writecur":
		if len(args) < 2 {
			return usage("writecur <pattern>")
		}
		if err := s.handle.WriteCurrentBlock(fillPattern(strings.Join(args[1:], " "))); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Wrote page %d.\n", s.handle.GetBlockPos())
	case "append":
		if err := s.handle.AppendEmptyBlock(); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Appended empty page, file now has %d pages.\n", s.handle.TotalNumPages())
	case "ensure":
		if len(args) < 2 {
			return usage("ensure <numberOfPages>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid number of pages %q: %w", args[1], err)
		}
		if err := s.handle.EnsureCapacity(n); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "File has %d pages.\n", s.handle.TotalNumPages())
	case "sync":
		if err := s.handle.Sync(); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Synced.")
	case "copy":
		if len(args) < 2 {
			return usage("copy <dstFile> [bytesPerSec]")
		}
		if !s.handle.IsOpen() {
			return fmt.Errorf("copy: %w: no page file open", pagefile.ErrFileHandleNotInitialized)
		}
		var rateBytes int64
		if len(args) > 2 {
			if rateBytes, err = strconv.ParseInt(args[2], 10, 64); err != nil {
				return fmt.Errorf("invalid rate %q: %w", args[2], err)
			}
		}
		if err := s.handle.Sync(); err != nil {
			return err
		}
		res, err := common.CopyPageFile(ctx, s.sm, s.handle.FileName(), args[1], rateBytes, true)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Copied %d pages to %s (sha256 %x).\n", res.Pages, args[1], res.Checksum)
	case "help":
		fmt.Fprintln(s.out, "Commands:")
		fmt.Fprintln(s.out, "  create <file>              create a page file with one empty page")
		fmt.Fprintln(s.out, "  open <file>                open a page file")
		fmt.Fprintln(s.out, "  close                      close the open page file")
		fmt.Fprintln(s.out, "  destroy <file>             delete a page file")
		fmt.Fprintln(s.out, "  info | pos")
		fmt.Fprintln(s.out, "  read <pageNum>")
		fmt.Fprintln(s.out, "  first | last | current | next | prev")
		fmt.Fprintln(s.out, "  write <pageNum> <pattern>  fill a page by repeating pattern")
		fmt.Fprintln(s.out, "  writecur <pattern>")
		fmt.Fprintln(s.out, "  append")
		fmt.Fprintln(s.out, "  ensure <numberOfPages>")
		fmt.Fprintln(s.out, "  sync")
		fmt.Fprintln(s.out, "  copy <dstFile> [bytesPerSec]")
		fmt.Fprintln(s.out, "  help")
		fmt.Fprintln(s.out, "  exit / quit")
	case "exit", "quit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, type 'help' for a list of commands", command)
	}
	return nil
}

// readWith runs a read operation and prints a preview of the page it loaded.
func (s *session) readWith(span trace.Span, read func() error) error {
	if err := read(); err != nil {
		return err
	}
	pos := s.handle.GetBlockPos()
	span.SetAttributes(attribute.Int("pagefile.page", pos))
	fmt.Fprintf(s.out, "Page %d:\n%s", pos, hex.Dump(s.page[:previewBytes]))
	return nil
}

func (s *session) printError(err error) {
	kind := pagefile.KindOf(err)
	if kind == pagefile.KindUnknown {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Error [%s rc=%d]: %v\n", kind, kind.ReturnCode(), err)
}

// fillPattern repeats pattern over a whole page.
func fillPattern(pattern string) []byte {
	page := bytes.Repeat([]byte(pattern), pagefile.PageSize/len(pattern)+1)
	return page[:pagefile.PageSize]
}

func usage(u string) error {
	return fmt.Errorf("usage: %s", u)
}

// splitCommands splits "a b; c d" into [[a b] [c d]].
func splitCommands(line string) [][]string {
	var cmds [][]string
	for _, part := range strings.Split(line, ";") {
		if fields := strings.Fields(part); len(fields) > 0 {
			cmds = append(cmds, fields)
		}
	}
	return cmds
}
