// Package app wires together configuration, the dataset source, and the
// local store into a single Deps struct that commands receive at runtime.
package app

import (
	"context"
	"fmt"

	"github.com/derickschaefer/emissions/internal/config"
	"github.com/derickschaefer/emissions/internal/controller"
	"github.com/derickschaefer/emissions/internal/dataset"
	"github.com/derickschaefer/emissions/internal/scale"
	"github.com/derickschaefer/emissions/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store stays nil until RequireStore is called.
type Deps struct {
	Config *config.Config
	Store  *store.Store
}

// New builds a Deps from resolved config.
func New(cfg *config.Config) *Deps {
	return &Deps{Config: cfg}
}

// RequireStore opens the bbolt database at Config.DBPath if it is not open yet.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	if d.Config.DBPath == "" {
		return fmt.Errorf("no database path configured (use --db or %s)", config.EnvDBPath)
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return err
	}
	d.Store = s
	return nil
}

// Close releases the store, if open.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}

// LoadDataset loads the configured data source once.
func (d *Deps) LoadDataset(ctx context.Context) (*dataset.Dataset, error) {
	return dataset.Open(ctx, d.Config.DataSource, dataset.OpenOptions{Timeout: d.Config.Timeout})
}

// Layout returns the drawing size from config with the default margins.
func (d *Deps) Layout() scale.Layout {
	l := scale.DefaultLayout()
	if d.Config.Width > 0 {
		l.Width = d.Config.Width
	}
	if d.Config.Height > 0 {
		l.Height = d.Config.Height
	}
	return l
}

// Variant resolves a chart variant by name. Config.MaxSelected replaces the
// selection limit of variants that have one.
func (d *Deps) Variant(name string) (controller.Variant, error) {
	v, err := controller.VariantByName(name)
	if err != nil {
		return v, err
	}
	if v.Limit > 0 && d.Config.MaxSelected > 0 {
		v.Limit = d.Config.MaxSelected
	}
	return v, nil
}

// Controller builds a controller for variant name over ds.
func (d *Deps) Controller(ds *dataset.Dataset, name string) (*controller.Controller, error) {
	v, err := d.Variant(name)
	if err != nil {
		return nil, err
	}
	return controller.New(ds, v, d.Layout()), nil
}
