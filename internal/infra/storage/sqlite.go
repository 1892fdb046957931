package storage

import (
	"errors"
	"fmt"
	"time"

	"dutchman/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Journal is the audit trail of auction runs. It is write-mostly: runs are
// never reloaded to resume an auction.
type Journal struct {
	db *gorm.DB
}

// OpenJournal opens (and migrates) a SQLite journal at dsn.
// Use "file::memory:" for a journal that lives only as long as the process.
func OpenJournal(dsn string) (*Journal, error) {
	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	if err := db.AutoMigrate(
		&domain.RunRecord{},
		&domain.PricePointRecord{},
		&domain.BidRecord{},
		&domain.AllocationRecord{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close releases the underlying connection pool.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Write Operations
// ======================================================================================

// BeginRun records a new run together with its initial price point.
func (j *Journal) BeginRun(runID string, cfg domain.AuctionConfig, startedAt time.Time) error {
	run := &domain.RunRecord{
		ID:               runID,
		StartPrice:       cfg.StartPrice,
		MinPrice:         cfg.MinPrice,
		PriceDecrement:   cfg.PriceDecrement,
		FundingGoal:      cfg.FundingGoal,
		TotalTokenSupply: cfg.TotalTokenSupply,
		TickIntervalMS:   cfg.TickInterval.Milliseconds(),
		Status:           domain.StatusRunning.String(),
		FinalPrice:       cfg.StartPrice,
		StartedAt:        startedAt,
	}

	return j.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		return tx.Create(&domain.PricePointRecord{RunID: runID, Tick: 0, Price: cfg.StartPrice}).Error
	})
}

// RecordPrice appends a committed price point.
func (j *Journal) RecordPrice(runID string, point domain.PricePoint) error {
	return j.db.Create(&domain.PricePointRecord{RunID: runID, Tick: point.Tick, Price: point.Price}).Error
}

// RecordBid appends an accepted bid.
func (j *Journal) RecordBid(runID string, bid domain.Bid) error {
	return j.db.Create(&domain.BidRecord{
		ID:          bid.ID,
		RunID:       runID,
		Seq:         bid.Seq,
		Participant: bid.Participant,
		Tokens:      bid.Tokens,
		Price:       bid.Price,
		Tick:        bid.Tick,
		PlacedAt:    bid.PlacedAt,
	}).Error
}

// CompleteRun stores the settlement and marks the run completed in one transaction.
func (j *Journal) CompleteRun(runID string, reason domain.CompletionReason, totalRaised decimal.Decimal, settlement domain.Settlement, completedAt time.Time) error {
	refunds := make(map[string]domain.Refund, len(settlement.Refunds))
	for _, r := range settlement.Refunds {
		refunds[r.Participant] = r
	}

	return j.db.Transaction(func(tx *gorm.DB) error {
		for _, a := range settlement.Allocations {
			rec := &domain.AllocationRecord{
				RunID:           runID,
				Participant:     a.Participant,
				TokensAllocated: a.TokensAllocated,
				PricePaid:       a.PricePaid,
				TotalCost:       a.TotalCost,
				Refund:          refunds[a.Participant].Amount,
			}
			if err := tx.Create(rec).Error; err != nil {
				return err
			}
		}

		res := tx.Model(&domain.RunRecord{}).Where("id = ?", runID).Updates(map[string]any{
			"status":       domain.StatusCompleted.String(),
			"reason":       string(reason),
			"final_price":  settlement.FinalPrice,
			"total_raised": totalRaised,
			"completed_at": completedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("run %s not found", runID)
		}
		return nil
	})
}

// ======================================================================================
// Read Operations
// ======================================================================================

// GetRun retrieves a run by ID. A missing run is not an error.
func (j *Journal) GetRun(runID string) (*domain.RunRecord, error) {
	var run domain.RunRecord
	err := j.db.First(&run, "id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// PriceHistory returns the journaled price points of a run ordered by tick.
func (j *Journal) PriceHistory(runID string) ([]domain.PricePointRecord, error) {
	var points []domain.PricePointRecord
	err := j.db.Where("run_id = ?", runID).Order("tick").Find(&points).Error
	return points, err
}

// Bids returns the journaled bids of a run in ledger order.
func (j *Journal) Bids(runID string) ([]domain.BidRecord, error) {
	var bids []domain.BidRecord
	err := j.db.Where("run_id = ?", runID).Order("seq").Find(&bids).Error
	return bids, err
}

// Allocations returns the journaled allocation table of a run.
func (j *Journal) Allocations(runID string) ([]domain.AllocationRecord, error) {
	var allocations []domain.AllocationRecord
	err := j.db.Where("run_id = ?", runID).Order("participant").Find(&allocations).Error
	return allocations, err
}
