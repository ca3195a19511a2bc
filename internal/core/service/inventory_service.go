package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Dhruvmer/assemblyParts/internal/core/domain"
	"github.com/Dhruvmer/assemblyParts/internal/metrics"
	"github.com/Dhruvmer/assemblyParts/internal/port"
)

// InventoryService owns the part catalog and all stock movements. Stock
// mutations run as single atomic transactions against the part store:
// either every debit and the credit land, or none do.
type InventoryService struct {
	store   port.PartStore
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewInventoryService(store port.PartStore, logger *zap.Logger, m *metrics.Metrics) *InventoryService {
	return &InventoryService{
		store:   store,
		logger:  logger,
		metrics: m,
	}
}

// AddInventory adds quantity units of the target part to stock. For a raw
// part this is a plain increment. For an assembled part the bill of
// materials is flattened into raw-part requirements, every requirement is
// validated against current stock, and all debits plus the single credit
// commit atomically. Any failure aborts with no mutation applied.
//
// The debit statements carry their own non-negative guard, so a writer
// that slips between validation and commit fails the whole transaction
// with domain.ErrStockConflict instead of driving stock negative.
func (s *InventoryService) AddInventory(ctx context.Context, partID string, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}

	start := time.Now()
	err := s.store.Transactionally(ctx, func(tx port.PartTx) error {
		part, err := tx.Get(ctx, partID)
		if err != nil {
			return fmt.Errorf("lookup part %s: %w", partID, err)
		}
		if part == nil {
			return &domain.PartNotFoundError{PartID: partID}
		}

		if part.IsRaw() {
			return tx.ApplyDelta(ctx, partID, quantity)
		}

		required, err := flatten(ctx, tx, part.Constituents, quantity)
		if err != nil {
			return err
		}

		// Validate and debit in ascending id order so the first
		// insufficient part reported is deterministic.
		for _, rawID := range sortedIDs(required) {
			raw, err := tx.Get(ctx, rawID)
			if err != nil {
				return fmt.Errorf("lookup part %s: %w", rawID, err)
			}
			if raw == nil {
				return &domain.PartNotFoundError{PartID: rawID}
			}
			if raw.Quantity < required[rawID] {
				return &domain.InsufficientStockError{
					PartID:    rawID,
					Required:  required[rawID],
					Available: raw.Quantity,
				}
			}
		}

		for _, rawID := range sortedIDs(required) {
			if err := tx.ApplyDelta(ctx, rawID, -required[rawID]); err != nil {
				return err
			}
		}

		return tx.ApplyDelta(ctx, partID, quantity)
	})

	elapsed := time.Since(start)
	s.metrics.TransactionDuration.Observe(elapsed.Seconds())

	if err != nil {
		s.metrics.TransactionsTotal.WithLabelValues(metrics.OutcomeAborted).Inc()
		s.logger.Warn("stock transaction aborted",
			zap.String("part_id", partID),
			zap.Int64("quantity", quantity),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return err
	}

	s.metrics.TransactionsTotal.WithLabelValues(metrics.OutcomeCommitted).Inc()
	s.logger.Info("stock transaction committed",
		zap.String("part_id", partID),
		zap.Int64("quantity", quantity),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

// Flatten resolves a constituent list into total raw-part requirements
// without touching stock. Useful for pre-flight "can I build N" checks.
func (s *InventoryService) Flatten(ctx context.Context, constituents []domain.Constituent, multiplier int64) (map[string]int64, error) {
	return flatten(ctx, s.store, constituents, multiplier)
}

// WouldCreateCycle reports whether assigning constituents to ownerID would
// make the part graph cyclic.
func (s *InventoryService) WouldCreateCycle(ctx context.Context, constituents []domain.Constituent, ownerID string) (bool, error) {
	return wouldCreateCycle(ctx, s.store, constituents, ownerID)
}

// CreatePartInput carries the authoring fields for a new part.
type CreatePartInput struct {
	Name         string
	Kind         domain.PartKind
	Constituents []domain.Constituent
}

// CreatePart validates and stores a new part. The id is derived from the
// lower-cased name plus a per-name sequence number ("bolt-1", "bolt-2").
// Constituents of an assembled part must exist, carry positive
// multipliers, and must not close a dependency loop. Constituents supplied
// for a raw part are ignored.
func (s *InventoryService) CreatePart(ctx context.Context, in CreatePartInput) (*domain.Part, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: empty name", domain.ErrInvalidPart)
	}

	switch in.Kind {
	case domain.PartKindRaw:
		in.Constituents = nil
	case domain.PartKindAssembled:
		for _, c := range in.Constituents {
			if c.Quantity <= 0 {
				return nil, fmt.Errorf("constituent %s: %w", c.PartID, domain.ErrInvalidQuantity)
			}
			ok, err := s.store.Exists(ctx, c.PartID)
			if err != nil {
				return nil, fmt.Errorf("check constituent %s: %w", c.PartID, err)
			}
			if !ok {
				return nil, &domain.PartNotFoundError{PartID: c.PartID}
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidPart, in.Kind)
	}

	count, err := s.store.CountByName(ctx, in.Name)
	if err != nil {
		return nil, fmt.Errorf("count parts named %q: %w", in.Name, err)
	}
	id := strings.ToLower(in.Name) + "-" + strconv.FormatInt(count+1, 10)

	if in.Kind == domain.PartKindAssembled {
		cyclic, err := s.WouldCreateCycle(ctx, in.Constituents, id)
		if err != nil {
			return nil, err
		}
		if cyclic {
			return nil, &domain.CircularDependencyError{Path: []string{id}}
		}
	}

	now := time.Now()
	part := domain.Part{
		ID:           id,
		Name:         in.Name,
		Kind:         in.Kind,
		Quantity:     0,
		Constituents: in.Constituents,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, part); err != nil {
		return nil, fmt.Errorf("create part %s: %w", id, err)
	}

	s.metrics.PartsCreatedTotal.Inc()
	s.logger.Info("part created",
		zap.String("part_id", id),
		zap.String("kind", string(in.Kind)),
		zap.Int("constituents", len(part.Constituents)),
	)
	return &part, nil
}

// GetPart returns the part or a PartNotFoundError.
func (s *InventoryService) GetPart(ctx context.Context, id string) (*domain.Part, error) {
	part, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup part %s: %w", id, err)
	}
	if part == nil {
		return nil, &domain.PartNotFoundError{PartID: id}
	}
	return part, nil
}

func (s *InventoryService) ListParts(ctx context.Context) ([]domain.Part, error) {
	return s.store.List(ctx)
}

// SetQuantity overwrites a part's on-hand count. Negative values are
// rejected; BOM accounting is not involved.
func (s *InventoryService) SetQuantity(ctx context.Context, id string, quantity int64) error {
	if quantity < 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}
	return s.store.SetQuantity(ctx, id, quantity)
}

// DeletePart removes the part outright. Assemblies still referencing it
// keep their constituent lists; the dangling reference surfaces as a
// PartNotFoundError on their next resolution.
func (s *InventoryService) DeletePart(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func sortedIDs(m map[string]int64) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
