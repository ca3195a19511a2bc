package service

import (
	"context"
	"fmt"

	"github.com/Dhruvmer/assemblyParts/internal/core/domain"
	"github.com/Dhruvmer/assemblyParts/internal/port"
)

// flatten expands a constituent list into the total quantity of each raw
// part it consumes, multiplying quantities at every nesting level.
// Requirements for a raw part reached through several branches add up.
//
// Traversal uses an explicit work stack rather than native recursion, so
// arbitrarily deep assemblies cannot exhaust the goroutine stack. Cycle
// detection tracks the active descent path only: a part revisited after
// unwinding off the path is legal (shared subassemblies), a part revisited
// while still on it is a circular dependency.
func flatten(ctx context.Context, r port.PartReader, constituents []domain.Constituent, multiplier int64) (map[string]int64, error) {
	if multiplier <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	type frame struct {
		partID string
		factor int64
		unwind bool // pops partID off the active path instead of expanding
	}

	required := make(map[string]int64)
	onPath := make(map[string]struct{})
	path := make([]string, 0, 8)

	stack := make([]frame, 0, len(constituents))
	// Pushed in reverse so expansion follows the authored order.
	for i := len(constituents) - 1; i >= 0; i-- {
		c := constituents[i]
		if c.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		stack = append(stack, frame{partID: c.PartID, factor: c.Quantity * multiplier})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.unwind {
			delete(onPath, f.partID)
			path = path[:len(path)-1]
			continue
		}

		if _, active := onPath[f.partID]; active {
			cyclePath := append(append([]string(nil), path...), f.partID)
			return nil, &domain.CircularDependencyError{Path: cyclePath}
		}

		part, err := r.Get(ctx, f.partID)
		if err != nil {
			return nil, fmt.Errorf("lookup part %s: %w", f.partID, err)
		}
		if part == nil {
			return nil, &domain.PartNotFoundError{PartID: f.partID}
		}

		if part.IsRaw() {
			required[f.partID] += f.factor
			continue
		}

		onPath[f.partID] = struct{}{}
		path = append(path, f.partID)
		stack = append(stack, frame{partID: f.partID, unwind: true})
		for i := len(part.Constituents) - 1; i >= 0; i-- {
			c := part.Constituents[i]
			if c.Quantity <= 0 {
				return nil, domain.ErrInvalidQuantity
			}
			stack = append(stack, frame{partID: c.PartID, factor: c.Quantity * f.factor})
		}
	}

	return required, nil
}

// wouldCreateCycle reports whether attaching constituents to ownerID would
// close a loop in the part graph: either ownerID is reachable from one of
// the constituents, or the existing graph below them already loops.
// Missing parts terminate their branch; existence is validated separately.
func wouldCreateCycle(ctx context.Context, r port.PartReader, constituents []domain.Constituent, ownerID string) (bool, error) {
	type frame struct {
		partID string
		unwind bool
	}

	onPath := make(map[string]struct{})
	if ownerID != "" {
		onPath[ownerID] = struct{}{}
	}

	stack := make([]frame, 0, len(constituents))
	for i := len(constituents) - 1; i >= 0; i-- {
		stack = append(stack, frame{partID: constituents[i].PartID})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.unwind {
			delete(onPath, f.partID)
			continue
		}

		if _, active := onPath[f.partID]; active {
			return true, nil
		}

		part, err := r.Get(ctx, f.partID)
		if err != nil {
			return false, fmt.Errorf("lookup part %s: %w", f.partID, err)
		}
		if part == nil || part.IsRaw() {
			continue
		}

		onPath[f.partID] = struct{}{}
		stack = append(stack, frame{partID: f.partID, unwind: true})
		for i := len(part.Constituents) - 1; i >= 0; i-- {
			stack = append(stack, frame{partID: part.Constituents[i].PartID})
		}
	}

	return false, nil
}
