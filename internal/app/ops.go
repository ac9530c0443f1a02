package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JakeFAU/jobboard-crawler/internal/api"
	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// Stats reports what the posting store holds for one board.
func (a *App) Stats(ctx context.Context, site crawler.Platform) (crawler.PostingStats, error) {
	stats, err := a.Store.Stats(ctx, site)
	if err != nil {
		return crawler.PostingStats{}, fmt.Errorf("%s stats: %w", site, err)
	}
	return stats, nil
}

// OpsHandler builds the ops HTTP surface over the board, the ledger and the store.
func (a *App) OpsHandler() http.Handler {
	return api.NewServer(api.Deps{
		Board:  a.Board,
		Ledger: a.Ledger,
		Store:  a.Store,
		APIKey: a.Config.Server.APIKey,
		Logger: a.Logger.Named("api"),
	}).Handler()
}
