package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

// Report describes what a bulk pass changed.
type Report struct {
	Transferred []string
	Deleted     []string
	Bytes       int64
}

func (r *Report) Summary() string {
	return fmt.Sprintf("%d transferred (%s), %d deleted",
		len(r.Transferred), humanize.Bytes(uint64(r.Bytes)), len(r.Deleted))
}

type ReconcilerOptions struct {
	// ContinueOnError keeps a bulk pass going after a per-file failure and
	// returns all failures joined at the end. By default the first failure
	// aborts the pass.
	ContinueOnError bool
	Meter           TransferMeter
}

// Reconciler converges one side of the sync onto the other. It assumes
// nothing else touches the sync directory while a pass runs.
type Reconciler struct {
	store           RemoteStore
	local           *LocalDir
	continueOnError bool
	meter           TransferMeter
}

func NewReconciler(store RemoteStore, local *LocalDir, ops *ReconcilerOptions) *Reconciler {
	r := &Reconciler{
		store: store,
		local: local,
		meter: nopMeter{},
	}

	if ops != nil {
		r.continueOnError = ops.ContinueOnError
		if ops.Meter != nil {
			r.meter = ops.Meter
		}
	}

	return r
}

// Upload pushes every local file and then deletes remote files whose names
// are not present locally.
func (r *Reconciler) Upload(ctx context.Context) (*Report, error) {
	files, err := r.local.List()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var errs []error
	localNames := make(map[string]bool, len(files))
	for _, f := range files {
		localNames[f.Name] = true
		if err := r.uploadOne(ctx, f); err != nil {
			if err := r.collect(&errs, err); err != nil {
				return report, err
			}
			continue
		}

		report.Transferred = append(report.Transferred, f.Name)
		report.Bytes += f.Size
	}

	remote, err := r.store.List(ctx)
	if err != nil {
		return report, errors.Join(append(errs, err)...)
	}

	for _, rf := range liveFiles(remote) {
		if localNames[rf.Name] {
			continue
		}

		if err := r.store.Delete(ctx, rf.Id); err != nil {
			if err := r.collect(&errs, fmt.Errorf("delete remote %q: %w", rf.Name, err)); err != nil {
				return report, err
			}
			continue
		}

		Log.WithField("name", rf.Name).WithField("id", rf.Id).Info("Deleted remote file absent locally")
		report.Deleted = append(report.Deleted, rf.Name)
	}

	return report, errors.Join(errs...)
}

// Download pulls every remote file and then deletes local files whose names
// are not present remotely. When names repeat remotely the last one listed
// wins.
func (r *Reconciler) Download(ctx context.Context) (*Report, error) {
	remote, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var errs []error
	files := liveFiles(remote)
	remoteNames := make(map[string]bool, len(files))
	for _, rf := range files {
		remoteNames[rf.Name] = true
		if err := r.downloadOne(ctx, rf.Id, rf.Name, rf.Size); err != nil {
			if err := r.collect(&errs, err); err != nil {
				return report, err
			}
			continue
		}

		report.Transferred = append(report.Transferred, rf.Name)
		report.Bytes += rf.Size
	}

	local, err := r.local.List()
	if err != nil {
		return report, errors.Join(append(errs, err)...)
	}

	for _, lf := range local {
		if remoteNames[lf.Name] {
			continue
		}

		if err := r.local.Remove(lf.Name); err != nil {
			if err := r.collect(&errs, fmt.Errorf("delete local %q: %w", lf.Name, err)); err != nil {
				return report, err
			}
			continue
		}

		Log.WithField("name", lf.Name).Info("Deleted local file absent remotely")
		report.Deleted = append(report.Deleted, lf.Name)
	}

	return report, errors.Join(errs...)
}

// ResetDrive deletes every remote file. The sync directory is untouched.
func (r *Reconciler) ResetDrive(ctx context.Context) (*Report, error) {
	remote, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var errs []error
	for _, rf := range remote {
		if err := r.store.Delete(ctx, rf.Id); err != nil {
			if err := r.collect(&errs, fmt.Errorf("delete remote %q: %w", rf.Name, err)); err != nil {
				return report, err
			}
			continue
		}

		report.Deleted = append(report.Deleted, rf.Name)
	}

	Log.WithField("count", len(report.Deleted)).Info("Reset drive")
	return report, errors.Join(errs...)
}

// DriveFileNames returns the remote names in the order the store lists
// them.
func (r *Reconciler) DriveFileNames(ctx context.Context) ([]string, error) {
	remote, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, rf := range liveFiles(remote) {
		names = append(names, rf.Name)
	}

	return names, nil
}

func (r *Reconciler) DriveFileExists(ctx context.Context, name string) (bool, error) {
	_, ok, err := r.store.FindIdByName(ctx, name)
	return ok, err
}

// UploadFile creates or replaces the remote copy of one local file.
func (r *Reconciler) UploadFile(ctx context.Context, name string) error {
	f, err := r.local.Stat(name)
	if err != nil {
		return err
	}

	return r.uploadOne(ctx, f)
}

// DownloadFile fetches one remote file by name. found is false, with no
// error, when the drive has no file of that name.
func (r *Reconciler) DownloadFile(ctx context.Context, name string) (found bool, err error) {
	id, ok, err := r.store.FindIdByName(ctx, name)
	if err != nil {
		return false, err
	}

	if !ok {
		Log.WithField("name", name).Info("No drive file to download")
		return false, nil
	}

	return true, r.downloadOne(ctx, id, name, 0)
}

// DeleteDriveFile removes one remote file by name. found is false when
// there was nothing to delete.
func (r *Reconciler) DeleteDriveFile(ctx context.Context, name string) (found bool, err error) {
	id, ok, err := r.store.FindIdByName(ctx, name)
	if err != nil || !ok {
		return false, err
	}

	if err := r.store.Delete(ctx, id); err != nil {
		return true, fmt.Errorf("delete remote %q: %w", name, err)
	}

	return true, nil
}

// DeleteLocalFile removes one file from the sync directory. A missing file
// is an error.
func (r *Reconciler) DeleteLocalFile(name string) error {
	return r.local.Remove(name)
}

func (r *Reconciler) uploadOne(ctx context.Context, f LocalFile) error {
	in, err := r.local.Open(f.Name)
	if err != nil {
		return fmt.Errorf("upload %q: %w", f.Name, err)
	}
	defer in.Close()

	transfer := r.meter.Track(f.Name, f.Size)
	defer transfer.Done()

	id, err := r.store.Put(ctx, f.Name, transfer.Reader(in), f.Size)
	if err != nil {
		return fmt.Errorf("upload %q: %w", f.Name, err)
	}

	Log.WithFields(log.Fields{
		"name": f.Name,
		"id":   id,
		"size": humanize.Bytes(uint64(f.Size)),
	}).Info("Uploaded file")
	return nil
}

func (r *Reconciler) downloadOne(ctx context.Context, id string, name string, size int64) error {
	transfer := r.meter.Track(name, size)
	err := r.local.Replace(name, func(w io.Writer) error {
		return r.store.Get(ctx, id, transfer.Writer(w))
	})
	transfer.Done()
	if err != nil {
		return fmt.Errorf("download %q: %w", name, err)
	}

	Log.WithFields(log.Fields{
		"name": name,
		"id":   id,
	}).Info("Downloaded file")
	return nil
}

func (r *Reconciler) collect(errs *[]error, err error) error {
	if !r.continueOnError {
		return err
	}

	Log.WithError(err).Error("Continuing after failure")
	*errs = append(*errs, err)
	return nil
}
