package tinyworld

import (
	"errors"

	"github.com/andrew-r-thomas/tinyworld/internal/index/hnsw"
	"github.com/andrew-r-thomas/tinyworld/internal/pool"
	"github.com/andrew-r-thomas/tinyworld/internal/storage"
)

// Core errors
var (
	ErrSessionClosed = errors.New("session is closed")
	ErrInvalidK      = errors.New("k must be positive")
	ErrInvalidEf     = errors.New("ef must be positive")
)

// Errors surfaced from the storage layer
var (
	ErrFileType      = storage.ErrFileType
	ErrHeaderDecode  = storage.ErrHeaderDecode
	ErrGraphSnapshot = hnsw.ErrGraphSnapshot
)

// Errors surfaced from the engine and the vector pool
var (
	ErrEmbSize       = hnsw.ErrEmbSize
	ErrInvalidItemID = pool.ErrInvalidItemID
	ErrInvalidLevel  = hnsw.ErrInvalidLevel
)
