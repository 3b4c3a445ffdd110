package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

type Command int

const (
	CommandUnknown Command = iota
	CommandHelp
	CommandDownload
	CommandUpload
	CommandReset
	CommandList
	CommandQuit
)

var commandTable = map[string]Command{
	"h": CommandHelp,
	"m": CommandHelp,
	"s": CommandDownload,
	"u": CommandUpload,
	"r": CommandReset,
	"l": CommandList,
	"q": CommandQuit,
}

const Prompt = "> "

const Menu = "~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~\n" +
	"u - uploads all files in sync folder\n" +
	"s - Downloads all files in drive\n" +
	"h - displays this menu\n" +
	"r - deletes all files in drive\n" +
	"l - lists all files in drive\n" +
	"q - exits menu\n" +
	"~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~~"

// ParseCommand matches one line of input, ignoring case and surrounding
// whitespace.
func ParseCommand(input string) Command {
	cmd, ok := commandTable[strings.ToLower(strings.TrimSpace(input))]
	if !ok {
		return CommandUnknown
	}

	return cmd
}

// Shell reads single-letter commands until q or end of input. A failed
// sync operation ends the loop; its error is returned from Run.
type Shell struct {
	reconciler *Reconciler
	in         *bufio.Scanner
	out        io.Writer
}

func NewShell(reconciler *Reconciler, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		reconciler: reconciler,
		in:         bufio.NewScanner(in),
		out:        out,
	}
}

func (s *Shell) Run(ctx context.Context) error {
	s.printMenu()
	for {
		fmt.Fprint(s.out, Prompt)
		if !s.in.Scan() {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}

		line := s.in.Text()
		cmd := ParseCommand(line)
		if cmd == CommandQuit {
			return nil
		}

		Log.WithField("input", line).Debug("Shell command")
		if err := s.dispatch(ctx, cmd, line); err != nil {
			Log.WithError(err).Error("Command failed")
			return err
		}
	}
}

func (s *Shell) dispatch(ctx context.Context, cmd Command, line string) error {
	switch cmd {
	case CommandHelp:
		s.printMenu()
	case CommandDownload:
		fmt.Fprintln(s.out, "Downloading all files in drive...")
		report, err := s.reconciler.Download(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Download complete: %v\n", report.Summary())
	case CommandUpload:
		fmt.Fprintln(s.out, "Uploading all files in sync folder...")
		report, err := s.reconciler.Upload(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Upload complete: %v\n", report.Summary())
	case CommandReset:
		fmt.Fprintln(s.out, "Deleting all files in drive...")
		report, err := s.reconciler.ResetDrive(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Drive reset: %d files deleted\n", len(report.Deleted))
	case CommandList:
		names, err := s.reconciler.DriveFileNames(ctx)
		if err != nil {
			return err
		}
		s.printNames(names)
	default:
		fmt.Fprintf(s.out, "Unrecognized command %q. Type h for the list of commands.\n", strings.TrimSpace(line))
	}

	return nil
}

func (s *Shell) printMenu() {
	fmt.Fprintln(s.out, Menu)
}

func (s *Shell) printNames(names []string) {
	if len(names) == 0 {
		fmt.Fprintln(s.out, "No files in drive")
		return
	}

	for i, name := range names {
		fmt.Fprintf(s.out, "%d. %v\n", i+1, name)
	}
}
