package render

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-sections/internal/logging"
)

// RenderPage renders the page sections concurrently and joins the fragments
// in declared order. Ids in the order without a section are skipped; with no
// order, sections render in sorted id order.
func (e *Engine) RenderPage(ctx context.Context, tenantID string, page Page) string {
	ids := pageOrder(page)
	if len(ids) == 0 {
		return ""
	}
	if skipped := len(page.Order) - len(ids); len(page.Order) > 0 && skipped > 0 {
		logging.WithTenant(e.logger, tenantID).Debug("render.page.order_skipped", "skipped", skipped)
	}

	results := make([]string, len(ids))
	group, groupCtx := errgroup.WithContext(ctx)
	if limit := e.cfg.PageConcurrency; limit > 0 {
		group.SetLimit(limit)
	}
	for i, id := range ids {
		group.Go(func() error {
			results[i] = e.RenderSection(groupCtx, tenantID, page.Sections[id], id)
			return nil
		})
	}
	_ = group.Wait()

	return strings.Join(results, "")
}

func pageOrder(page Page) []string {
	if len(page.Order) == 0 {
		ids := make([]string, 0, len(page.Sections))
		for id := range page.Sections {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids
	}
	ids := make([]string, 0, len(page.Order))
	seen := make(map[string]struct{}, len(page.Order))
	for _, id := range page.Order {
		if _, ok := page.Sections[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
