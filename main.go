package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/jessevdk/go-flags"

	"simplesync/core"
	"simplesync/platform"
)

type Options struct {
	ConfigPath   string   `short:"c" long:"config" description:"Path to the configuration file. Defaults to User's Config Dir / SimpleSync / config.json"`
	Credentials  string   `long:"credentials" description:"Path to the OAuth client secret JSON used for Google Drive"`
	TokenPath    string   `long:"token" description:"Path of the cached OAuth token. Defaults to User's Cache Dir / SimpleSync / token.json"`
	LogLocation  string   `short:"l" long:"log-location" description:"Specifies path to logfile. Defaults to User's Cache Dir / simplesync.log"`
	Verbose      bool     `short:"v" long:"verbose" description:"Enable verbose logging"`
	KeepGoing    bool     `short:"k" long:"keep-going" description:"Continue a sync after a file fails and report every failure at the end"`
	Store        string   `long:"store" choice:"drive" choice:"minio" choice:"local" description:"Remote store to use for this run, overriding the configuration"`
	SyncDir      string   `short:"d" long:"sync-dir" description:"Set the local sync folder and save it to the configuration"`
	UploadFile   []string `long:"upload-file" description:"Upload a single file from the sync folder and exit. May be repeated"`
	DownloadFile []string `long:"download-file" description:"Download a single file from the drive and exit. May be repeated"`
	DeleteLocal  []string `long:"delete-local" description:"Delete a single file from the sync folder and exit. May be repeated"`
	DeleteRemote []string `long:"delete-remote" description:"Delete a single file from the drive and exit. May be repeated"`
	NoProgress   bool     `long:"no-progress" description:"Do not draw progress bars"`
	Version      bool     `long:"version" description:"Print the version and exit"`
}

func main() {
	ops := &Options{}
	_, err := flags.Parse(ops)
	if err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(1)
	}

	if ops.Version {
		fmt.Println(core.APP_NAME + " " + core.Version())
		return
	}

	if err := run(ops); err != nil {
		core.Log.WithError(err).Error("Exiting")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ops *Options) error {
	var err error
	if ops.LogLocation != "" {
		err = core.InitLoggingWithPath(ops.LogLocation, ops.Verbose)
	} else {
		err = core.InitLoggingWithDefaultPath(ops.Verbose)
	}
	if err != nil {
		return err
	}

	configPath := ops.ConfigPath
	if configPath == "" {
		if configPath, err = core.GetDefaultConfigPath(); err != nil {
			return err
		}
	}

	config, err := core.ReadConfigOrDefault(configPath)
	if err != nil {
		return err
	}

	if ops.SyncDir != "" {
		if err := config.SetSyncDir(ops.SyncDir); err != nil {
			return err
		}
		if err := core.CommitConfig(configPath, config); err != nil {
			return err
		}
		fmt.Println("Sync folder set to " + config.FileDirPath)
	}

	if ops.Store != "" {
		config.Store = ops.Store
	}

	syncDir, err := config.SyncDir()
	if err != nil {
		return err
	}

	local := core.NewOsLocalDir(syncDir)
	if err := local.Ensure(); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := core.OpenStore(ctx, config, clientProvider(ops))
	if err != nil {
		return err
	}

	reconcilerOps := &core.ReconcilerOptions{
		ContinueOnError: ops.KeepGoing,
	}
	if !ops.NoProgress {
		reconcilerOps.Meter = core.NewBarMeter(os.Stdout)
	}
	reconciler := core.NewReconciler(store, local, reconcilerOps)

	core.Log.WithField("store", config.StoreName()).WithField("dir", syncDir).WithField("version", core.Version()).Info("Main Initialized")
	if len(ops.UploadFile) > 0 || len(ops.DownloadFile) > 0 || len(ops.DeleteLocal) > 0 || len(ops.DeleteRemote) > 0 {
		return CliMain(ctx, reconciler, ops, os.Stdout)
	}

	fmt.Println("Syncing " + syncDir)
	return core.NewShell(reconciler, os.Stdin, os.Stdout).Run(ctx)
}

// CliMain runs the single-file operations requested on the command line
// without entering the shell.
func CliMain(ctx context.Context, r *core.Reconciler, ops *Options, out io.Writer) error {
	for _, name := range ops.UploadFile {
		if err := r.UploadFile(ctx, name); err != nil {
			return err
		}
		fmt.Fprintln(out, "Uploaded "+name)
	}

	for _, name := range ops.DownloadFile {
		found, err := r.DownloadFile(ctx, name)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintln(out, "No file named "+name+" in drive")
			continue
		}
		fmt.Fprintln(out, "Downloaded "+name)
	}

	for _, name := range ops.DeleteLocal {
		if err := r.DeleteLocalFile(name); err != nil {
			return err
		}
		fmt.Fprintln(out, "Deleted "+name)
	}

	for _, name := range ops.DeleteRemote {
		found, err := r.DeleteDriveFile(ctx, name)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintln(out, "No file named "+name+" in drive")
			continue
		}
		fmt.Fprintln(out, "Deleted "+name+" from drive")
	}

	return nil
}

func clientProvider(ops *Options) core.ClientProvider {
	return func(ctx context.Context) (*http.Client, error) {
		var err error
		credentialsPath := ops.Credentials
		if credentialsPath == "" {
			if credentialsPath, err = core.GetDefaultCredentialsPath(); err != nil {
				return nil, err
			}
		}

		tokenPath := ops.TokenPath
		if tokenPath == "" {
			if tokenPath, err = core.GetDefaultTokenPath(); err != nil {
				return nil, err
			}
		}

		config, err := core.LoadOAuthConfig(credentialsPath)
		if err != nil {
			return nil, err
		}

		return core.NewAuthenticator(config, tokenPath, platform.OpenBrowser).Authenticate(ctx)
	}
}
