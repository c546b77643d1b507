package service

import "errors"

// ErrSectionNotFound indicates a section id the catalog does not know.
var ErrSectionNotFound = errors.New("section not found in catalog")
