package port

import (
	"github.com/vertextoedge/txtfetch/internal/domain/repository"
)

// RunRepository is an alias to domain repository interface
type RunRepository = repository.RunRepository

// Store is an alias to domain repository interface
type Store = repository.Store
