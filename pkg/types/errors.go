package types

import "errors"

// Taxonomy construction errors. These are configuration defects detected when
// the tables are built, never during normalization.
var (
	ErrTaxonomyInvalid = errors.New("invalid taxonomy")
	ErrUnknownLabel    = errors.New("label is not in the taxonomy")
	ErrAliasConflict   = errors.New("alias maps to more than one label")
	ErrEmptyAlias      = errors.New("alias must not be empty")
)

// Dataset errors. The pipeline stops before labelling when any of these occur.
var (
	ErrNoLabelColumn      = errors.New("no recognized label column in metadata")
	ErrNoFeatureOverlap   = errors.New("no overlap between gene list and counts columns")
	ErrEmptyDataset       = errors.New("dataset has no samples")
	ErrDuplicateSample    = errors.New("duplicate sample id")
	ErrNoEmbedding        = errors.New("no cached embedding found")
	ErrCoordinateMismatch = errors.New("coordinates do not match samples")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
)

// Store errors.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidID       = errors.New("invalid entity ID")
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
