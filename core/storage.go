package core

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/afero"
)

// ClientProvider supplies the authorized client for the drive store. It is
// only called when the drive store is selected.
type ClientProvider func(ctx context.Context) (*http.Client, error)

func GetAllStoreNames() []string {
	return []string{StoreDrive, StoreMinio, StoreLocal}
}

// OpenStore builds the backend named by config.Store.
func OpenStore(ctx context.Context, config *Config, clients ClientProvider) (RemoteStore, error) {
	switch config.StoreName() {
	case StoreDrive:
		client, err := clients(ctx)
		if err != nil {
			return nil, err
		}
		return NewDriveStore(ctx, client)
	case StoreMinio:
		return NewMinioStore(ctx, config.Minio)
	case StoreLocal:
		root, err := config.LocalStoreRoot()
		if err != nil {
			return nil, err
		}
		return NewFsStore(afero.NewOsFs(), root)
	default:
		return nil, fmt.Errorf("unknown store %q, expected one of %v", config.Store, GetAllStoreNames())
	}
}
