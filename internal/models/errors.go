package models

import "errors"

// ErrNotFound is returned by repositories when a row does not exist
var ErrNotFound = errors.New("record not found")
