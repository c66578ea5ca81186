package cache

import (
	"context"
	"errors"
	"io/fs"

	"github.com/dmitrijs2005/glucokeeper/internal/logging"
	"github.com/peterbourgon/diskv/v3"
)

// DiskvKV keeps one file per key under a base directory.
type DiskvKV struct {
	d *diskv.Diskv
}

// NewDiskvKV opens (or creates) a file store rooted at basePath.
func NewDiskvKV(basePath string) *DiskvKV {
	return &DiskvKV{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 1024 * 1024,
	})}
}

func (k *DiskvKV) Get(_ context.Context, key string) ([]byte, error) {
	v, err := k.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (k *DiskvKV) Set(_ context.Context, key string, value []byte) error {
	return k.d.Write(key, value)
}

func (k *DiskvKV) DeleteKeys(_ context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if !k.d.Has(key) {
			continue
		}
		if err := k.d.Erase(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewDiskv returns a Cache backed by files under basePath.
func NewDiskv(basePath string, log logging.Logger) *Cache {
	return New(NewDiskvKV(basePath), log)
}
