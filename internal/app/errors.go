package service

import "errors"

// ErrDraining is returned by Start while the worker of a previous run is
// still applying a batch.
var ErrDraining = errors.New("previous worker still draining")
