package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/ledger-saga/internal/infrastructure/store"
	"github.com/example/ledger-saga/internal/readmodel"
)

// Handler answers queries from read store documents only. It never touches
// the event store, so answers can lag behind the stream but stay cheap.
type Handler struct {
	reads store.ReadStore
}

func NewHandler(reads store.ReadStore) *Handler {
	return &Handler{reads: reads}
}

func (h *Handler) AccountSummary(ctx context.Context, accountID string) (*readmodel.AccountSummary, error) {
	var doc readmodel.AccountSummary
	if err := h.reads.Get(ctx, readmodel.CollectionAccountSummaries, accountID, &doc); err != nil {
		return nil, fmt.Errorf("account summary %s: %w", accountID, err)
	}
	return &doc, nil
}

func (h *Handler) ListAccountSummaries(ctx context.Context) ([]readmodel.AccountSummary, error) {
	return list[readmodel.AccountSummary](ctx, h.reads, readmodel.CollectionAccountSummaries)
}

func (h *Handler) ClaimDashboard(ctx context.Context, claimID string) (*readmodel.ClaimDashboard, error) {
	var doc readmodel.ClaimDashboard
	if err := h.reads.Get(ctx, readmodel.CollectionClaimDashboards, claimID, &doc); err != nil {
		return nil, fmt.Errorf("claim dashboard %s: %w", claimID, err)
	}
	return &doc, nil
}

func (h *Handler) ListClaimDashboards(ctx context.Context) ([]readmodel.ClaimDashboard, error) {
	return list[readmodel.ClaimDashboard](ctx, h.reads, readmodel.CollectionClaimDashboards)
}

func (h *Handler) OrderDashboard(ctx context.Context, orderID string) (*readmodel.OrderDashboard, error) {
	var doc readmodel.OrderDashboard
	if err := h.reads.Get(ctx, readmodel.CollectionOrderDashboards, orderID, &doc); err != nil {
		return nil, fmt.Errorf("order dashboard %s: %w", orderID, err)
	}
	return &doc, nil
}

func (h *Handler) ListOrderDashboards(ctx context.Context) ([]readmodel.OrderDashboard, error) {
	return list[readmodel.OrderDashboard](ctx, h.reads, readmodel.CollectionOrderDashboards)
}

func (h *Handler) PolicyStats(ctx context.Context, policyID string) (*readmodel.PolicyStats, error) {
	var doc readmodel.PolicyStats
	if err := h.reads.Get(ctx, readmodel.CollectionPolicyStats, policyID, &doc); err != nil {
		return nil, fmt.Errorf("policy stats %s: %w", policyID, err)
	}
	return &doc, nil
}

func (h *Handler) Transfer(ctx context.Context, transferID string) (*readmodel.TransferRecord, error) {
	var doc readmodel.TransferRecord
	if err := h.reads.Get(ctx, readmodel.CollectionTransfers, transferID, &doc); err != nil {
		return nil, fmt.Errorf("transfer %s: %w", transferID, err)
	}
	return &doc, nil
}

func (h *Handler) ListTransfers(ctx context.Context) ([]readmodel.TransferRecord, error) {
	return list[readmodel.TransferRecord](ctx, h.reads, readmodel.CollectionTransfers)
}

func list[T any](ctx context.Context, reads store.ReadStore, collection string) ([]T, error) {
	raws, err := reads.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", collection, err)
		}
		out = append(out, doc)
	}
	return out, nil
}
