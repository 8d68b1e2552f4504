package repository

import (
	"context"

	"coopfund/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository holds the read-side listing queries backing the HTTP surface.
// Mutations go through the services, which own transaction boundaries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListRedemptions retrieves redemption requests, optionally filtered by
// status, newest first, with total count.
func (r *Repository) ListRedemptions(ctx context.Context, status models.RedemptionStatus, limit, offset int) ([]*models.RedemptionRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.RedemptionRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []*models.RedemptionRequest
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// ListMemberRedemptions retrieves all redemption requests for one wallet
func (r *Repository) ListMemberRedemptions(ctx context.Context, wallet string, limit, offset int) ([]*models.RedemptionRequest, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.RedemptionRequest{}).
		Where("requester_wallet = ?", wallet).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var requests []*models.RedemptionRequest
	err = r.db.WithContext(ctx).
		Where("requester_wallet = ?", wallet).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// ListProposals retrieves proposals, optionally filtered by status
func (r *Repository) ListProposals(ctx context.Context, status models.ProposalStatus, limit, offset int) ([]*models.Proposal, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Proposal{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var proposals []*models.Proposal
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}

	return proposals, total, nil
}

// ListVotes retrieves all council votes for a proposal, oldest first
func (r *Repository) ListVotes(ctx context.Context, proposalID uuid.UUID) ([]*models.ProposalVote, error) {
	var votes []*models.ProposalVote
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Order("created_at ASC").
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

// ListLedgerEntries retrieves ledger entries touching a wallet, newest first
func (r *Repository) ListLedgerEntries(ctx context.Context, wallet string, limit, offset int) ([]*models.LedgerEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("from_wallet = ? OR to_wallet = ?", wallet, wallet)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*models.LedgerEntry
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// ListAuditLogs retrieves audit records, optionally filtered by actor,
// newest first
func (r *Repository) ListAuditLogs(ctx context.Context, actor string, limit, offset int) ([]*models.AuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if actor != "" {
		query = query.Where("actor_wallet = ?", actor)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []*models.AuditLog
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
