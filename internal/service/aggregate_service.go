package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/dto"
	"fintrack/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AggregateService answers balance questions directly from the transaction
// table, bypassing the maintained counters. Endpoints that must reflect the
// stored ledger exactly, counter drift or not, go through here.
type AggregateService struct {
	transactions repository.TransactionRepository
	categories   repository.CategoryRepository
	cache        *cache.Cache
	logger       *zap.Logger
}

func NewAggregateService(
	transactions repository.TransactionRepository,
	categories repository.CategoryRepository,
	c *cache.Cache,
	logger *zap.Logger,
) *AggregateService {
	return &AggregateService{
		transactions: transactions,
		categories:   categories,
		cache:        c,
		logger:       logger,
	}
}

// SumByAccount totals amounts into and out of the account, by account position
// rather than transaction type: incoming is everything whose toAccount is the
// account, outgoing everything whose fromAccount is. No matches means zeros.
func (s *AggregateService) SumByAccount(ctx context.Context, accountID uuid.UUID, from, to *time.Time) (*dto.AccountBalanceResponse, error) {
	cacheKey := aggregateKey("account", accountID, from, to)
	if s.cache != nil {
		if cached, ok := s.cache.GetAggregate(cacheKey); ok {
			if resp, ok := cached.(*dto.AccountBalanceResponse); ok {
				return resp, nil
			}
		}
	}

	var incoming, outgoing float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		incoming, err = s.transactions.SumIncoming(gctx, accountID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		outgoing, err = s.transactions.SumOutgoing(gctx, accountID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sum by account: %w", err)
	}

	resp := &dto.AccountBalanceResponse{
		Balance:       incoming - outgoing,
		TotalIncoming: incoming,
		TotalOutgoing: outgoing,
	}
	if s.cache != nil {
		s.cache.SetAggregate(cacheKey, resp)
	}
	return resp, nil
}

// CategoryTransactions reports direct totals, subtree totals over every
// descendant, and their sum. The subtree matches what the incrementally
// maintained counters cover, so the two paths agree when counters are healthy.
func (s *AggregateService) CategoryTransactions(ctx context.Context, categoryID uuid.UUID, from, to *time.Time) (*dto.CategoryTransactionsResponse, error) {
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	cacheKey := aggregateKey("category", categoryID, from, to)
	if s.cache != nil {
		if cached, ok := s.cache.GetAggregate(cacheKey); ok {
			if resp, ok := cached.(*dto.CategoryTransactionsResponse); ok {
				return resp, nil
			}
		}
	}

	descendants, err := s.categories.DescendantIDs(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("resolve descendants: %w", err)
	}

	var direct, subtree repository.CategoryTotals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		direct, err = s.transactions.SumByCategories(gctx, []uuid.UUID{categoryID}, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		subtree, err = s.transactions.SumByCategories(gctx, descendants, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}

	resp := &dto.CategoryTransactionsResponse{
		Direct:        dto.Totals{Total: direct.Total, Count: direct.Count},
		Subcategories: dto.Totals{Total: subtree.Total, Count: subtree.Count},
		All:           dto.Totals{Total: direct.Total + subtree.Total, Count: direct.Count + subtree.Count},
	}
	if s.cache != nil {
		s.cache.SetAggregate(cacheKey, resp)
	}
	return resp, nil
}

func aggregateKey(kind string, id uuid.UUID, from, to *time.Time) string {
	var fromPart, toPart int64
	if from != nil {
		fromPart = from.UnixMilli()
	}
	if to != nil {
		toPart = to.UnixMilli()
	}
	return fmt.Sprintf("agg:%s:%s:%d:%d", kind, id, fromPart, toPart)
}
