package pipeline

import "errors"

var (
	ErrSchemaNotFound   = errors.New("schema not found")
	ErrFieldNotFound    = errors.New("field not found in schema")
	ErrAmbiguousAlias   = errors.New("raw label is aliased to more than one canonical label")
	ErrUnknownInterval  = errors.New("unknown interval")
	ErrUnknownTimeAxis  = errors.New("unknown time axis type")
	ErrInvalidTimeFrame = errors.New("invalid time frame")
	ErrNoDataset        = errors.New("no dataset or source given")
	ErrInvalidSpec      = errors.New("invalid run spec")
)
