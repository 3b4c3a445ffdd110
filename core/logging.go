package core

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Log is shared by the reconciler, the stores and the shell. It writes to
// stderr until one of the Init functions points it at a logfile.
var Log = log.New()

const DefaultLogPath = "simplesync.log"

func InitLoggingWithDefaultPath(verbose bool) error {
	path, err := os.UserCacheDir()
	if err != nil {
		return err
	}

	return InitLoggingWithPath(filepath.Join(path, DefaultLogPath), verbose)
}

func InitLoggingWithPath(path string, verbose bool) error {
	fmt.Println("Creating logfile at " + path)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	Log.SetOutput(file)
	Log.SetFormatter(&log.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	if verbose {
		Log.SetLevel(log.DebugLevel)
	}
	return nil
}
