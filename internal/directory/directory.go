// Package directory exposes the resource metadata collaborator. Court and
// branch records are owned elsewhere; this core only resolves identity to
// display names.
package directory

import (
	"context"

	"github.com/google/uuid"
)

type ResourceInfo struct {
	ID           uuid.UUID
	Name         string
	LocationName string
}

type Directory interface {
	ResolveResource(ctx context.Context, id uuid.UUID) (ResourceInfo, error)
	ListResources(ctx context.Context, locationName string) ([]ResourceInfo, error)
}
